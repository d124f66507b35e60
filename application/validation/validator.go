// Package validation checks module manifests and compares them with the
// descriptors modules actually export.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/ports"
)

// ManifestValidator implements ports.ManifestValidator with struct tags.
type ManifestValidator struct {
	validate *validator.Validate
}

// NewManifestValidator creates a new validator.
func NewManifestValidator() ports.ManifestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Names end up as NUL-terminated strings in the descriptor.
	_ = v.RegisterValidation("nonul", func(fl validator.FieldLevel) bool {
		return !strings.ContainsRune(fl.Field().String(), 0)
	})
	return &ManifestValidator{validate: v}
}

// Validate reports every structural problem in manifest.
func (v *ManifestValidator) Validate(manifest *entities.Manifest) (*entities.VerificationResult, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest is nil")
	}

	result := &entities.VerificationResult{Valid: true}
	err := v.validate.Struct(manifest)
	if err == nil {
		return result, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	result.Valid = false
	for _, fe := range verrs {
		result.Mismatches = append(result.Mismatches, entities.ManifestMismatch{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return result, nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "nonul":
		return "must not contain a NUL byte"
	case "unique":
		return fmt.Sprintf("has duplicate %s values", strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}
