// Package export turns a list of Go functions into a loadable native module:
// it validates the declaration, lays out the module descriptor the host reads
// at load time, and provides the trampolines and lifecycle hooks the host calls
// afterwards.
//
// A module is declared once, at package level:
//
//	var Module = export.Define("mymod", []export.Function{
//		export.Func2("add", func(_ export.Env, a, b int) (int, error) { return a + b, nil }),
//		export.Func1("id", func(_ export.Env, v cty.Value) (cty.Value, error) { return v, nil }),
//	})
//
//	func init() { export.Register(Module) }
//
// Every runtime failure (wrong argument count, undecodable argument, returned
// error, panic) is raised to the host as an exception term; only declaration
// errors are fatal, and only while the module is being built.
package export

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/internal/abi"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/reglet-dev/reglet-nif/term"
)

// LoadFunc runs when the host loads the module. Returning false refuses the load.
type LoadFunc func(env Env, loadInfo entities.Term) bool

// UnloadFunc runs when the host unloads the module.
type UnloadFunc func(env Env)

// Option configures a Module.
type Option func(*Module)

// WithLoad installs a load hook.
func WithLoad(fn LoadFunc) Option {
	return func(m *Module) {
		m.load = fn
	}
}

// WithUnload installs a callback run before the module releases its descriptor.
func WithUnload(fn UnloadFunc) Option {
	return func(m *Module) {
		m.unload = fn
	}
}

// WithLogger sets the logger used for recovered panics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Module is a validated module declaration.
type Module struct {
	image  atomic.Pointer[image]
	logger *slog.Logger
	load   LoadFunc
	unload UnloadFunc
	name   string
	funcs  []Function
}

// image is the pinned descriptor: the entry, the function table and every
// string they reference, in one buffer.
type image struct {
	buf   []byte
	base  uint32
	entry uint32
}

// Build validates the declaration and returns the module.
// Function order is preserved in the descriptor.
func Build(name string, funcs []Function, opts ...Option) (*Module, error) {
	if name == "" {
		return nil, &errors.DeclarationError{Reason: "module name is empty"}
	}
	if strings.IndexByte(name, 0) >= 0 {
		return nil, &errors.DeclarationError{Module: name, Reason: "module name contains a NUL byte"}
	}

	seen := make(map[string]struct{}, len(funcs))
	for i, f := range funcs {
		switch {
		case f.name == "":
			return nil, &errors.DeclarationError{Module: name, Reason: fmt.Sprintf("function %d has no name", i)}
		case strings.IndexByte(f.name, 0) >= 0:
			return nil, &errors.DeclarationError{Module: name, Function: f.name, Reason: "name contains a NUL byte"}
		case f.arity < 0 || f.arity > nifabi.MaxArity:
			return nil, &errors.DeclarationError{Module: name, Function: f.name,
				Reason: fmt.Sprintf("arity %d outside 0..%d", f.arity, nifabi.MaxArity)}
		case f.isNil || f.call == nil:
			return nil, &errors.DeclarationError{Module: name, Function: f.name, Reason: "function is nil"}
		}
		if _, dup := seen[f.name]; dup {
			return nil, &errors.DeclarationError{Module: name, Function: f.name, Reason: "declared more than once"}
		}
		seen[f.name] = struct{}{}
	}

	m := &Module{
		name:   name,
		funcs:  append([]Function(nil), funcs...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Define is Build for package-level declarations: it panics on a declaration error.
func Define(name string, funcs []Function, opts ...Option) *Module {
	m, err := Build(name, funcs, opts...)
	if err != nil {
		panic(fmt.Sprintf("export: %v", err))
	}
	return m
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Functions returns the declared functions in descriptor order.
func (m *Module) Functions() []Function {
	return append([]Function(nil), m.funcs...)
}

// Descriptor returns the decoded view of the descriptor this module publishes.
func (m *Module) Descriptor() nifabi.Entry {
	e := nifabi.Entry{
		Major:     nifabi.MajorVersion,
		Minor:     nifabi.MinorVersion,
		Name:      m.name,
		VMVariant: nifabi.VMVariant,
		Funcs:     make([]nifabi.Func, len(m.funcs)),
		Unload:    nifabi.UnloadHookRef,
	}
	if m.load != nil {
		e.Load = nifabi.LoadHookRef
	}
	for i, f := range m.funcs {
		e.Funcs[i] = nifabi.Func{
			Name:  f.name,
			Arity: uint32(f.arity), //nolint:gosec // G115: checked against MaxArity in Build
			Ref:   uint32(i + 1),   //nolint:gosec // G115: table size is bounded by memory
			Flags: f.flags,
		}
	}
	return e
}

// Entry returns the address of the module descriptor, building and pinning
// it on first use. Concurrent first calls agree on a single image. Entry
// returns 0 if the image cannot be allocated.
func (m *Module) Entry() uint32 {
	for {
		if img := m.image.Load(); img != nil {
			return img.entry
		}

		img, err := m.buildImage()
		if err != nil {
			m.logger.Error("export: failed to build module descriptor", "module", m.name, "error", err)
			return 0
		}
		if m.image.CompareAndSwap(nil, img) {
			return img.entry
		}
		// Lost the race. The winner's image may already be released again.
		abi.Unpin(img.base)
	}
}

// Image returns the pinned descriptor image, or nil before Entry.
func (m *Module) Image() *nifabi.Image {
	img := m.image.Load()
	if img == nil {
		return nil
	}
	return nifabi.NewImage(img.buf, img.base)
}

func (m *Module) buildImage() (*image, error) {
	desc := m.Descriptor()
	buf := make([]byte, nifabi.Size(desc))
	base := abi.Pin(buf)
	if base == 0 {
		return nil, fmt.Errorf("cannot pin %d byte descriptor", len(buf))
	}
	entry, err := nifabi.Write(buf, base, desc)
	if err != nil {
		abi.Unpin(base)
		return nil, err
	}
	return &image{buf: buf, base: base, entry: entry}, nil
}

// release drops the pinned image. A later Entry builds a fresh one.
func (m *Module) release() {
	if img := m.image.Swap(nil); img != nil {
		abi.Unpin(img.base)
	}
}

// Invoke runs the trampoline for the function referenced by ref (the fptr of
// its descriptor record). Failures are raised on env and reported as
// entities.NonValue.
func (m *Module) Invoke(ref uint32, env Env, argv []entities.Term) (out entities.Term) {
	if env.Codec == nil {
		m.logger.Error("export: call without a term codec", "module", m.name, "ref", ref)
		return entities.NonValue
	}

	var fn *Function
	defer func() {
		if r := recover(); r != nil {
			perr := &errors.PanicError{Value: r, Stack: debug.Stack()}
			attrs := []any{"module", m.name, "panic", fmt.Sprint(r)}
			if fn != nil {
				attrs = append(attrs, "function", fn.String())
			}
			m.logger.Error("export: function panic recovered", attrs...)
			out = m.raiseRecovered(env, fn, perr)
		}
	}()

	if ref == 0 || int(ref) > len(m.funcs) {
		return m.raise(env, nil, entities.NewErrorDetail(entities.ErrorTypeBadFun,
			fmt.Sprintf("no function with reference %d in module %q", ref, m.name)))
	}
	fn = &m.funcs[ref-1]

	if len(argv) != fn.arity {
		return m.raise(env, fn, &errors.ArityError{Function: fn.name, Arity: fn.arity, Got: len(argv)})
	}

	t, err := fn.call(env.withFunction(fn.String()), argv)
	if err != nil {
		return m.raise(env, fn, err)
	}
	return t
}

// raiseRecovered is raise for use inside a deferred recover, where a second
// panic would escape to the host.
func (m *Module) raiseRecovered(env Env, fn *Function, err error) (out entities.Term) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("export: raising exception panicked", "module", m.name, "panic", fmt.Sprint(r))
			out = entities.NonValue
		}
	}()
	return m.raise(env, fn, err)
}

// raise converts err to a reason and raises it on env.
func (m *Module) raise(env Env, fn *Function, err error) entities.Term {
	var d entities.ErrorDetail
	var de errors.DetailedError
	var ed *entities.ErrorDetail
	switch {
	case stdErrors.As(err, &ed), stdErrors.As(err, &de):
		d = *errors.ToErrorDetail(err)
	default:
		d = *entities.NewErrorDetail(entities.ErrorTypeError, err.Error())
	}
	if fn != nil && d.Function == "" {
		d.WithFunction(fn.name, fn.arity)
	}
	return env.Codec.Raise(env.Handle, term.Reason(&d))
}

// Load runs the load hook, if any, and returns the host load code.
func (m *Module) Load(env Env, loadInfo entities.Term) (code int32) {
	if m.load == nil {
		return nifabi.LoadOK
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("export: load hook panic recovered", "module", m.name, "panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			code = nifabi.LoadFailed
		}
	}()
	if m.load(env, loadInfo) {
		return nifabi.LoadOK
	}
	m.logger.Warn("export: load hook refused to load", "module", m.name)
	return nifabi.LoadFailed
}

// Unload runs the unload callback, if any, and releases the descriptor image.
// The image is released even when the callback panics.
func (m *Module) Unload(env Env) {
	defer m.release()
	if m.unload == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("export: unload hook panic recovered", "module", m.name, "panic", fmt.Sprint(r))
		}
	}()
	m.unload(env)
}
