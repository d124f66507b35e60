package validation

import (
	"fmt"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/nifabi"
)

// VerifyDescriptor compares the descriptor a module returned with the manifest
// it is expected to satisfy. Every difference is reported, not just the first.
func VerifyDescriptor(manifest *entities.Manifest, entry *nifabi.Entry) *entities.VerificationResult {
	result := &entities.VerificationResult{Valid: true}
	add := func(field, format string, args ...any) {
		result.Valid = false
		result.Mismatches = append(result.Mismatches, entities.ManifestMismatch{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if manifest.Module != entry.Name {
		add("module", "expected %q, module is named %q", manifest.Module, entry.Name)
	}

	exported := make(map[string]nifabi.Func, len(entry.Funcs))
	for _, f := range entry.Funcs {
		exported[f.Name] = f
	}

	declared := make(map[string]bool, len(manifest.Functions))
	for _, want := range manifest.Functions {
		declared[want.Name] = true
		got, ok := exported[want.Name]
		if !ok {
			add("functions."+want.Name, "not exported")
			continue
		}
		if int(got.Arity) != want.Arity {
			add("functions."+want.Name, "expected arity %d, exported with %d", want.Arity, got.Arity)
		}
	}
	for _, f := range entry.Funcs {
		if !declared[f.Name] {
			add("functions."+f.Name, "exported but not declared")
		}
	}

	if manifest.Load && entry.Load == 0 {
		add("load", "manifest requires a load hook")
	}
	if !manifest.Load && entry.Load != 0 {
		add("load", "module installs a load hook the manifest does not declare")
	}

	return result
}
