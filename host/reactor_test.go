package host_test

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	mymodPkg   = "github.com/reglet-dev/reglet-nif/examples/mymod"
	testmodPkg = "github.com/reglet-dev/reglet-nif/internal/testmod"
)

type reactor struct {
	once sync.Once
	wasm []byte
	err  error
}

var reactors sync.Map // package path -> *reactor

// buildReactor returns pkg compiled as a wasip1 reactor. A prebuilt
// testdata/<name>.wasm wins; otherwise the package is built once per test
// binary with the go command, and the test is skipped if there is none.
func buildReactor(t *testing.T, pkg string) []byte {
	t.Helper()

	if wasm, err := os.ReadFile(filepath.Join("testdata", path.Base(pkg)+".wasm")); err == nil {
		return wasm
	}
	if testing.Short() {
		t.Skip("building wasm reactors is skipped in short mode")
	}
	gobin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not available to build", pkg)
	}

	v, _ := reactors.LoadOrStore(pkg, &reactor{})
	r := v.(*reactor)
	r.once.Do(func() {
		r.wasm, r.err = compileReactor(gobin, pkg)
	})
	require.NoError(t, r.err)
	return r.wasm
}

func compileReactor(gobin, pkg string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "nif-reactor-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, path.Base(pkg)+".wasm")
	cmd := exec.Command(gobin, "build", "-buildmode=c-shared", "-o", out, pkg)
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm", "CGO_ENABLED=0")
	if b, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("go build %s: %w\n%s", pkg, err, b)
	}
	return os.ReadFile(out)
}
