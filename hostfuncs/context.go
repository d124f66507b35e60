package hostfuncs

import (
	"context"
	"time"
)

// Call describes the nif_host function call in progress. The registry
// attaches one to the context of every handler it dispatches.
type Call struct {
	Start    time.Time
	Function string
	// Module is the name of the calling module, empty if the caller did not
	// attach one with WithModule.
	Module string
}

type callKey struct{}

type moduleKey struct{}

// WithModule records the name of the module whose calls run under ctx.
func WithModule(ctx context.Context, module string) context.Context {
	return context.WithValue(ctx, moduleKey{}, module)
}

// ModuleName returns the module name recorded by WithModule.
func ModuleName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(moduleKey{}).(string)
	return name, ok
}

// CallFrom returns the call attached to ctx by the registry.
func CallFrom(ctx context.Context) (Call, bool) {
	c, ok := ctx.Value(callKey{}).(Call)
	return c, ok
}

func withCall(ctx context.Context, function string) context.Context {
	module, _ := ModuleName(ctx)
	return context.WithValue(ctx, callKey{}, Call{
		Start:    time.Now(),
		Function: function,
		Module:   module,
	})
}
