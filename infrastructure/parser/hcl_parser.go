package parser

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/ports"
)

// HCLManifestParser implements ManifestParser for HCL.
//
//	module = "mymod"
//	load   = true
//
//	function "add" {
//	  arity = 2
//	}
type HCLManifestParser struct {
	filename string
}

// NewHCLManifestParser creates a new HCLManifestParser. The filename only
// appears in diagnostics.
func NewHCLManifestParser(filename string) ports.ManifestParser {
	if filename == "" {
		filename = "manifest.hcl"
	}
	return &HCLManifestParser{filename: filename}
}

// Parse decodes HCL bytes into a Manifest.
func (p *HCLManifestParser) Parse(data []byte) (*entities.Manifest, error) {
	var manifest entities.Manifest
	if err := hclsimple.Decode(p.filename, data, nil, &manifest); err != nil {
		return nil, fmt.Errorf("parse hcl manifest: %w", err)
	}
	return &manifest, nil
}
