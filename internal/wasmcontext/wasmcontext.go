// Package wasmcontext tracks the call the guest is currently serving. The
// trampoline installs a context carrying the call's env before running a
// module function, so code without an explicit Env (the log handler, for one)
// can still attribute its work to the right call.
package wasmcontext

import (
	stdcontext "context"
	"sync"

	"github.com/reglet-dev/reglet-nif/domain/entities"
)

type contextKey string

// EnvKey is the context key holding the current entities.Env.
const EnvKey contextKey = "nif_env"

// FunctionKey is the context key holding the "name/arity" of the running function.
const FunctionKey contextKey = "nif_function"

var contextStore = struct {
	ctx stdcontext.Context
	sync.RWMutex
}{
	ctx: stdcontext.Background(),
}

// SetCurrentContext sets the context of the call being served.
func SetCurrentContext(ctx stdcontext.Context) {
	contextStore.Lock()
	defer contextStore.Unlock()
	contextStore.ctx = ctx
}

// GetCurrentContext returns the context of the call being served, or
// context.Background() outside a call.
func GetCurrentContext() stdcontext.Context {
	contextStore.RLock()
	defer contextStore.RUnlock()
	if contextStore.ctx == nil {
		return stdcontext.Background()
	}
	return contextStore.ctx
}

// ResetContext resets the current context to background.
// It should be called (usually via defer) when a call completes.
func ResetContext() {
	SetCurrentContext(stdcontext.Background())
}

// WithEnv returns a copy of parent carrying env.
func WithEnv(parent stdcontext.Context, env entities.Env) stdcontext.Context {
	if parent == nil {
		parent = stdcontext.Background()
	}
	return stdcontext.WithValue(parent, EnvKey, env)
}

// EnvFromContext returns the env stored in ctx.
func EnvFromContext(ctx stdcontext.Context) (entities.Env, bool) {
	if ctx == nil {
		return 0, false
	}
	env, ok := ctx.Value(EnvKey).(entities.Env)
	return env, ok
}

// WithFunction returns a copy of parent naming the running function.
func WithFunction(parent stdcontext.Context, name string) stdcontext.Context {
	if parent == nil {
		parent = stdcontext.Background()
	}
	return stdcontext.WithValue(parent, FunctionKey, name)
}

// FunctionFromContext returns the function name stored in ctx, or "".
func FunctionFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(FunctionKey).(string)
	return name
}

// CurrentEnv returns the env of the call being served.
func CurrentEnv() (entities.Env, bool) {
	return EnvFromContext(GetCurrentContext())
}
