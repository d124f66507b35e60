package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mymod = &entities.Manifest{
	Module: "mymod",
	Functions: []entities.ManifestFunction{
		{Name: "add", Arity: 2},
		{Name: "id", Arity: 1},
	},
}

func TestYamlManifestParser(t *testing.T) {
	data := []byte(`
module: mymod
functions:
  - name: add
    arity: 2
  - name: id
    arity: 1
`)
	got, err := NewYamlManifestParser().Parse(data)
	require.NoError(t, err)
	assert.Equal(t, mymod, got)
}

func TestYamlManifestParser_JSON(t *testing.T) {
	data := []byte(`{"module": "mymod", "load": true, "functions": [{"name": "add", "arity": 2}]}`)
	got, err := NewYamlManifestParser().Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "mymod", got.Module)
	assert.True(t, got.Load)
	assert.Len(t, got.Functions, 1)
}

func TestYamlManifestParser_Invalid(t *testing.T) {
	_, err := NewYamlManifestParser().Parse([]byte("module: [unclosed"))
	assert.Error(t, err)
}

func TestHCLManifestParser(t *testing.T) {
	data := []byte(`
module = "mymod"

function "add" {
  arity = 2
}

function "id" {
  arity = 1
}
`)
	got, err := NewHCLManifestParser("").Parse(data)
	require.NoError(t, err)
	assert.Equal(t, mymod, got)
}

func TestHCLManifestParser_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing module": `function "add" { arity = 2 }`,
		"bad arity":      "module = \"m\"\nfunction \"add\" { arity = \"two\" }",
		"syntax":         `module = `,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewHCLManifestParser("bad.hcl").Parse([]byte(src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse hcl manifest")
		})
	}
}

func TestForPath(t *testing.T) {
	for _, name := range []string{"m.yaml", "m.YML", "m.json"} {
		p, err := ForPath(name)
		require.NoError(t, err)
		assert.IsType(t, &YamlManifestParser{}, p)
	}

	p, err := ForPath("dir/m.hcl")
	require.NoError(t, err)
	assert.IsType(t, &HCLManifestParser{}, p)

	_, err = ForPath("m.toml")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mymod.hcl")
	require.NoError(t, os.WriteFile(path, []byte("module = \"mymod\"\nload = true\n"), 0o600))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mymod", got.Module)
	assert.True(t, got.Load)
	assert.Empty(t, got.Functions)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
