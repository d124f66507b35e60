package host

import (
	"context"
	"fmt"

	"github.com/reglet-dev/reglet-nif/application/export"
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/zclconf/go-cty/cty"
)

// LoadInProcess loads a module linked into the current process. It follows
// the same sequence as Runtime.Load: the descriptor is read from the module's
// pinned image, not from the Go declaration. Calls may run concurrently.
func LoadInProcess(ctx context.Context, mod *export.Module, loadInfo cty.Value, opts ...Option) (*Module, error) {
	if mod == nil {
		return nil, fmt.Errorf("host: module is nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	envs := term.NewEnvs()
	return load(ctx, cfg, envs, &inProcess{mod: mod, envs: envs}, loadInfo)
}

// inProcess drives an *export.Module directly. The host's env table is the
// module's term codec.
type inProcess struct {
	mod  *export.Module
	envs *term.Envs
}

func (p *inProcess) descriptor(context.Context) (uint32, nifabi.Memory, error) {
	ptr := p.mod.Entry()
	img := p.mod.Image()
	if img == nil {
		return 0, nil, fmt.Errorf("module %q has no descriptor image", p.mod.Name())
	}
	return ptr, img, nil
}

func (p *inProcess) call(ctx context.Context, ref uint32, env entities.Env, argv []entities.Term) (entities.Term, error) {
	if err := ctx.Err(); err != nil {
		return entities.NonValue, err
	}
	return p.mod.Invoke(ref, export.NewEnv(p.envs, env), argv), nil
}

func (p *inProcess) load(_ context.Context, env entities.Env, info entities.Term) (int32, error) {
	return p.mod.Load(export.NewEnv(p.envs, env), info), nil
}

func (p *inProcess) unload(_ context.Context, env entities.Env) error {
	p.mod.Unload(export.NewEnv(p.envs, env))
	return nil
}

func (p *inProcess) close(context.Context) error {
	return nil
}

func (p *inProcess) setName(string) {}
