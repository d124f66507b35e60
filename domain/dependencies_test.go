package domain_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/reglet-dev/reglet-nif/"

// thirdParty lists the only non-stdlib packages the domain may use. Terms are
// cty values, so the codec port needs cty.
var thirdParty = []string{
	"github.com/zclconf/go-cty/cty",
}

// TestDomainImports keeps the domain layer free of the runtime, the guest
// export core and infrastructure. Domain packages may only import the
// standard library, each other and cty.
func TestDomainImports(t *testing.T) {
	fset := token.NewFileSet()
	for _, pkg := range []string{"entities", "errors", "ports"} {
		files, err := filepath.Glob(filepath.Join(pkg, "*.go"))
		require.NoError(t, err)
		require.NotEmpty(t, files, "domain/%s has no Go files", pkg)

		for _, file := range files {
			if strings.HasSuffix(file, "_test.go") {
				continue
			}
			f, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
			require.NoError(t, err)

			for _, imp := range f.Imports {
				path, err := strconv.Unquote(imp.Path.Value)
				require.NoError(t, err)
				assert.True(t, allowed(path), "%s imports %s", file, path)
			}
		}
	}
}

func allowed(path string) bool {
	if strings.HasPrefix(path, modulePath) {
		return strings.HasPrefix(path, modulePath+"domain/")
	}
	for _, p := range thirdParty {
		if path == p {
			return true
		}
	}
	// Standard library paths have no dot in their first element.
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}
