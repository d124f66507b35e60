package ports

import "github.com/reglet-dev/reglet-nif/domain/entities"

// ManifestParser parses raw bytes into a module Manifest.
type ManifestParser interface {
	// Parse unmarshals data into a Manifest.
	Parse(data []byte) (*entities.Manifest, error)
}
