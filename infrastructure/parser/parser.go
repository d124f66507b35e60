package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/ports"
)

// ForPath returns the parser matching the extension of path.
func ForPath(path string) (ports.ManifestParser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return NewYamlManifestParser(), nil
	case ".hcl":
		return NewHCLManifestParser(filepath.Base(path)), nil
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", filepath.Ext(path))
	}
}

// LoadFile reads and parses the manifest at path.
func LoadFile(path string) (*entities.Manifest, error) {
	p, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return p.Parse(data)
}
