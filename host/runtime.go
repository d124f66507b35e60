package host

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/reglet-dev/reglet-nif/hostfuncs"
	wazeroadapter "github.com/reglet-dev/reglet-nif/infrastructure/wazero"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/zclconf/go-cty/cty"
)

// Runtime loads modules compiled as wasip1 reactors. One Runtime can hold
// any number of modules; they share the env table behind the nif_host imports.
type Runtime struct {
	runtime  wazero.Runtime
	registry *hostfuncs.HandlerRegistry
	envs     *term.Envs
	cfg      config
}

// NewRuntime creates a wazero runtime with WASI and the nif_host module.
func NewRuntime(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	envs := term.NewEnvs()
	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware(), hostfuncs.LoggingMiddleware(cfg.logger)),
		hostfuncs.WithBundle(hostfuncs.CombineBundles(append(
			[]hostfuncs.HostFuncBundle{hostfuncs.TermBundle(envs)}, cfg.bundles...)...)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create host function registry: %w", err)
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	if err := wazeroadapter.RegisterWithRuntime(ctx, rt, registry,
		wazeroadapter.WithLogger(cfg.logger),
		wazeroadapter.WithMaxRequestSize(cfg.maxRequestSize),
		wazeroadapter.WithCustomHandler(wazeroadapter.LogMessageHandler(cfg.logger, cfg.maxRequestSize)),
	); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return &Runtime{runtime: rt, registry: registry, envs: envs, cfg: cfg}, nil
}

// HostFunctions returns the names of the registered nif_host byte handlers.
func (r *Runtime) HostFunctions() []string {
	return r.registry.Names()
}

// Load compiles and instantiates wasmBytes, runs the reactor initialiser, and
// loads the module it registers. loadInfo is handed to the load hook; a zero
// cty.Value is replaced with an empty object.
func (r *Runtime) Load(ctx context.Context, wasmBytes []byte, loadInfo cty.Value) (*Module, error) {
	compiled, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	stderr := hostfuncs.NewBoundedBuffer(hostfuncs.DefaultMaxOutputSize)
	mc := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithStdout(os.Stdout).
		WithStderr(io.MultiWriter(os.Stderr, stderr))
	mod, err := r.runtime.InstantiateModule(ctx, compiled, mc)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	b := &wasmModule{mod: mod, compiled: compiled, stderr: stderr}
	if err := b.initialize(ctx); err != nil {
		_ = b.close(ctx)
		return nil, err
	}
	return load(ctx, r.cfg, r.envs, b, loadInfo)
}

// Close releases the runtime and every module loaded into it.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
