package entities

// Manifest declares what a native module is expected to export.
// It is the configuration-side form of a module declaration and is checked
// against the descriptor the module actually returns at load time.
type Manifest struct {
	Module      string             `json:"module" yaml:"module" hcl:"module" validate:"required,nonul" jsonschema:"minLength=1"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty" hcl:"description,optional"`
	Functions   []ManifestFunction `json:"functions" yaml:"functions" hcl:"function,block" validate:"unique=Name,dive"`
	// Load states whether the module must install a load hook.
	Load bool `json:"load,omitempty" yaml:"load,omitempty" hcl:"load,optional"`
}

// ManifestFunction declares one exported function.
type ManifestFunction struct {
	Name  string `json:"name" yaml:"name" hcl:"name,label" validate:"required,nonul" jsonschema:"minLength=1"`
	Arity int    `json:"arity" yaml:"arity" hcl:"arity" validate:"min=0,max=255" jsonschema:"minimum=0,maximum=255"`
}

// ManifestMismatch describes one difference between a manifest and a descriptor.
type ManifestMismatch struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// VerificationResult is the outcome of checking a descriptor against a manifest.
type VerificationResult struct {
	Mismatches []ManifestMismatch `json:"mismatches,omitempty"`
	Valid      bool               `json:"valid"`
}
