package ports

import "github.com/reglet-dev/reglet-nif/domain/entities"

// ManifestValidator checks that a manifest is well formed.
type ManifestValidator interface {
	// Validate reports every structural problem in manifest.
	Validate(manifest *entities.Manifest) (*entities.VerificationResult, error)
}
