// Package schema provides JSON schema generation for module manifests.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/reglet-nif/domain/entities"
)

// ManifestSchemaID identifies the published manifest schema.
const ManifestSchemaID = "https://reglet.dev/schemas/nif-manifest.json"

// Option adjusts the generated schema.
type Option func(*jsonschema.Schema)

// WithID sets the schema $id.
func WithID(id string) Option {
	return func(s *jsonschema.Schema) {
		s.ID = jsonschema.ID(id)
	}
}

// WithTitle sets the schema title and description.
func WithTitle(title, description string) Option {
	return func(s *jsonschema.Schema) {
		s.Title = title
		s.Description = description
	}
}

// GenerateSchema reflects v into a JSON Schema (Draft 2020-12) with the
// top-level struct expanded inline.
func GenerateSchema(v any, opts ...Option) ([]byte, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	s := reflector.Reflect(v)
	for _, opt := range opts {
		opt(s)
	}

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}

// ManifestSchema returns the JSON schema of a module manifest.
func ManifestSchema() ([]byte, error) {
	return GenerateSchema(&entities.Manifest{},
		WithID(ManifestSchemaID),
		WithTitle("Native module manifest", "Functions a native module must export and whether it installs a load hook."),
	)
}
