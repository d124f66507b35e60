package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reglet-dev/reglet-nif/application/validation"
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/zclconf/go-cty/cty"
)

// backend is the part of a loaded module that differs between wazero and
// in-process execution.
type backend interface {
	// descriptor returns the address of the module descriptor and the memory
	// it can be read from.
	descriptor(ctx context.Context) (uint32, nifabi.Memory, error)
	call(ctx context.Context, ref uint32, env entities.Env, argv []entities.Term) (entities.Term, error)
	load(ctx context.Context, env entities.Env, info entities.Term) (int32, error)
	unload(ctx context.Context, env entities.Env) error
	close(ctx context.Context) error
	// setName tells the backend which module it drives, once known.
	setName(name string)
}

// Module is a loaded native module.
type Module struct {
	backend     backend
	envs        *term.Envs
	logger      *slog.Logger
	funcs       map[string]nifabi.Func
	entry       nifabi.Entry
	callTimeout time.Duration
	closeOnce   sync.Once
	state       atomic.Int32
}

// load runs the load sequence shared by both backends. On failure the backend
// is closed and the error is returned; the module never becomes callable.
func load(ctx context.Context, cfg config, envs *term.Envs, b backend, loadInfo cty.Value) (*Module, error) {
	m := &Module{
		backend:     b,
		envs:        envs,
		logger:      cfg.logger,
		callTimeout: cfg.callTimeout,
	}
	m.state.Store(int32(Loading))

	if err := m.init(ctx, cfg, loadInfo); err != nil {
		m.state.Store(int32(Unloaded))
		if cerr := b.close(ctx); cerr != nil {
			m.logger.WarnContext(ctx, "host: failed to close module after load error", "error", cerr)
		}
		return nil, err
	}

	m.state.Store(int32(Loaded))
	m.logger.InfoContext(ctx, "host: module loaded", "module", m.entry.Name, "functions", len(m.entry.Funcs),
		"version", fmt.Sprintf("%d.%d", m.entry.Major, m.entry.Minor))
	return m, nil
}

func (m *Module) init(ctx context.Context, cfg config, loadInfo cty.Value) error {
	ptr, mem, err := m.backend.descriptor(ctx)
	if err != nil {
		return &errors.LoadError{Err: err}
	}
	if ptr == 0 {
		return &errors.LoadError{Err: stdErrors.New("module returned no descriptor")}
	}

	entry, err := nifabi.Read(mem, ptr)
	if err != nil {
		return &errors.LoadError{Err: fmt.Errorf("read descriptor: %w", err)}
	}
	m.entry = *entry
	m.backend.setName(entry.Name)

	if !nifabi.CheckVersion(entry.Major, entry.Minor, cfg.supportedMinor) {
		return &errors.VersionError{
			Module:    entry.Name,
			Major:     entry.Major,
			Minor:     entry.Minor,
			WantMajor: nifabi.MajorVersion,
			MaxMinor:  cfg.supportedMinor,
		}
	}
	if entry.VMVariant != nifabi.VMVariant {
		m.logger.WarnContext(ctx, "host: unexpected vm variant", "module", entry.Name, "variant", entry.VMVariant)
	}

	m.funcs = make(map[string]nifabi.Func, len(entry.Funcs))
	for _, f := range entry.Funcs {
		if _, dup := m.funcs[f.Name]; dup {
			return &errors.LoadError{Module: entry.Name, Err: fmt.Errorf("function %q exported twice", f.Name)}
		}
		m.funcs[f.Name] = f
	}

	if cfg.manifest != nil {
		if res := validation.VerifyDescriptor(cfg.manifest, entry); !res.Valid {
			return &errors.LoadError{
				Module: entry.Name,
				Err:    &errors.ManifestError{Module: entry.Name, Mismatches: res.Mismatches},
			}
		}
	}

	if entry.Load == 0 {
		return nil
	}
	return m.runLoadHook(ctx, loadInfo)
}

func (m *Module) runLoadHook(ctx context.Context, loadInfo cty.Value) error {
	if loadInfo.Type() == cty.NilType {
		loadInfo = cty.EmptyObjectVal
	}
	env, _ := m.envs.Open()
	defer m.envs.Close(env)

	info, err := m.envs.Encode(env, loadInfo)
	if err != nil {
		return &errors.LoadError{Module: m.entry.Name, Err: err}
	}
	code, err := m.backend.load(ctx, env, info)
	if err != nil {
		return &errors.LoadError{Module: m.entry.Name, Err: err}
	}
	if code != nifabi.LoadOK {
		return &errors.LoadError{Module: m.entry.Name, Code: code}
	}
	return nil
}

// Name returns the module name from its descriptor.
func (m *Module) Name() string {
	return m.entry.Name
}

// Info returns a copy of the module descriptor.
func (m *Module) Info() nifabi.Entry {
	e := m.entry
	e.Funcs = append([]nifabi.Func(nil), m.entry.Funcs...)
	return e
}

// Functions returns the exported functions in descriptor order.
func (m *Module) Functions() []nifabi.Func {
	return append([]nifabi.Func(nil), m.entry.Funcs...)
}

// State returns the current lifecycle state.
func (m *Module) State() State {
	return State(m.state.Load())
}

// Call invokes the exported function name with args. The arity is checked by
// the module itself, so a wrong argument count comes back as a badarity
// exception rather than a host-side error.
func (m *Module) Call(ctx context.Context, name string, args ...cty.Value) (cty.Value, error) {
	if m.State() != Loaded {
		return cty.NilVal, fmt.Errorf("%s: %w", m.entry.Name, errors.ErrNotLoaded)
	}
	f, ok := m.funcs[name]
	if !ok {
		return cty.NilVal, &errors.CallError{
			Module: m.entry.Name,
			Name:   name,
			Reason: entities.NewErrorDetail(entities.ErrorTypeBadFun, fmt.Sprintf("%s:%s is not exported", m.entry.Name, name)),
		}
	}

	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}

	env, heap := m.envs.Open()
	defer m.envs.Close(env)

	argv := make([]entities.Term, len(args))
	for i, a := range args {
		t, err := m.envs.Encode(env, a)
		if err != nil {
			return cty.NilVal, fmt.Errorf("encode argument %d: %w", i, err)
		}
		argv[i] = t
	}

	out, err := m.backend.call(ctx, f.Ref, env, argv)
	if err != nil {
		var trap *errors.TrapError
		if stdErrors.As(err, &trap) {
			m.state.Store(int32(Unloaded))
			m.logger.ErrorContext(ctx, "host: module trapped, unloading", "module", m.entry.Name, "function", name, "error", err)
		}
		return cty.NilVal, err
	}

	if !out.IsValue() {
		reason, raised := heap.Exception()
		if !raised {
			return cty.NilVal, &errors.CallError{
				Module: m.entry.Name,
				Name:   name,
				Reason: entities.NewErrorDetail(entities.ErrorTypeInternal, "function returned no value and raised nothing"),
			}
		}
		d := term.DetailFromReason(reason)
		m.logger.DebugContext(ctx, "host: call raised", "module", m.entry.Name, "function", name, "type", d.Type)
		return cty.NilVal, &errors.CallError{Module: m.entry.Name, Name: name, Reason: d}
	}

	v, ok := heap.Get(out)
	if !ok {
		return cty.NilVal, &errors.CallError{
			Module: m.entry.Name,
			Name:   name,
			Reason: entities.NewErrorDetail(entities.ErrorTypeInternal, fmt.Sprintf("function returned unknown %s", out)),
		}
	}
	return v, nil
}

// Close runs the unload hook and releases the module. It is safe to call
// more than once; only the first call has an effect.
func (m *Module) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		wasLoaded := m.state.Swap(int32(Unloaded)) == int32(Loaded)
		if wasLoaded && m.entry.Unload != 0 {
			env, _ := m.envs.Open()
			if uerr := m.backend.unload(ctx, env); uerr != nil {
				m.logger.WarnContext(ctx, "host: unload hook failed", "module", m.entry.Name, "error", uerr)
			}
			m.envs.Close(env)
		}
		err = m.backend.close(ctx)
		m.logger.InfoContext(ctx, "host: module unloaded", "module", m.entry.Name)
	})
	return err
}
