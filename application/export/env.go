package export

import (
	"context"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/ports"
	"github.com/reglet-dev/reglet-nif/internal/wasmcontext"
	"github.com/reglet-dev/reglet-nif/term"
)

// Env is the call environment handed to module functions. It is borrowed from
// the host for the duration of one call and must not be retained.
type Env struct {
	ctx    context.Context
	Codec  ports.TermCodec
	Handle entities.Env
}

// NewEnv binds a host env handle to the codec that serves it.
func NewEnv(codec ports.TermCodec, handle entities.Env) Env {
	return Env{
		ctx:    wasmcontext.WithEnv(context.Background(), handle),
		Codec:  codec,
		Handle: handle,
	}
}

// Context returns a context carrying the env handle and, inside a call, the
// name of the running function.
func (e Env) Context() context.Context {
	if e.ctx == nil {
		return wasmcontext.WithEnv(context.Background(), e.Handle)
	}
	return e.ctx
}

func (e Env) withFunction(name string) Env {
	e.ctx = wasmcontext.WithFunction(e.Context(), name)
	return e
}

// Decode converts t to T. Intended for Raw functions and hooks.
func Decode[T any](env Env, t entities.Term) (T, error) {
	return term.Decode[T](env.Codec, env.Handle, t)
}

// Encode converts v to a term in env.
func Encode[T any](env Env, v T) (entities.Term, error) {
	return term.Encode(env.Codec, env.Handle, v)
}
