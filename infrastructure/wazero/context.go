package wazero

import (
	"context"

	"github.com/reglet-dev/reglet-nif/hostfuncs"
	"github.com/tetratelabs/wazero/api"
)

// ContextWithModule attributes the guest calls made under ctx to the named
// module. Instances are instantiated anonymously, so this is the only place
// a host function can learn which module called it.
func ContextWithModule(ctx context.Context, name string) context.Context {
	return hostfuncs.WithModule(ctx, name)
}

// ModuleFromContext retrieves the module name set by ContextWithModule.
func ModuleFromContext(ctx context.Context) (string, bool) {
	return hostfuncs.ModuleName(ctx)
}

// GetModuleName returns the module name from ctx, falling back to the wazero
// instance name and then to "anonymous".
func GetModuleName(ctx context.Context, mod api.Module) string {
	if name, ok := ModuleFromContext(ctx); ok && name != "" {
		return name
	}
	if mod != nil && mod.Name() != "" {
		return mod.Name()
	}
	return "anonymous"
}
