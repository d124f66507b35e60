package ports

import (
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/zclconf/go-cty/cty"
)

// TermCodec converts between host terms and values the guest can inspect.
// It is provided by the host runtime; the export core only consumes it.
// Implementations must be safe for concurrent use across distinct envs.
type TermCodec interface {
	// Decode returns the value behind t in env.
	Decode(env entities.Env, t entities.Term) (cty.Value, error)

	// Encode stores v in env and returns a term referring to it.
	Encode(env entities.Env, v cty.Value) (entities.Term, error)

	// Raise records reason as the pending exception of env and returns
	// entities.NonValue, which the entry point hands back to the host.
	Raise(env entities.Env, reason cty.Value) entities.Term
}
