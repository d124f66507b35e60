package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/reglet-nif/hostfuncs"
	"github.com/reglet-dev/reglet-nif/internal/abi"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// AdapterConfig configures RegisterWithRuntime.
type AdapterConfig struct {
	Logger *slog.Logger
	// ModuleName is the import module guests link against.
	ModuleName     string
	CustomHandlers []CustomHandler
	// MaxRequestSize caps the bytes read from guest memory per call.
	MaxRequestSize uint32
}

// CustomHandler is an import with its own signature, registered next to the
// packed i64 -> i64 handlers of the registry.
type CustomHandler struct {
	Handler     api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName overrides the import module name (nifabi.HostModule).
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the per-call request limit.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithCustomHandler adds an import that bypasses the registry.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// WithLogger sets the logger for adapter-level failures.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = l
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Logger:         slog.Default(),
		ModuleName:     nifabi.HostModule,
		MaxRequestSize: hostfuncs.DefaultMaxRequestSize,
	}
}

// RegisterWithRuntime instantiates the host module guests import. Every
// registry handler is exported as func(i64) i64: the argument is the packed
// ptr|len of a JSON request in guest memory, the result the packed ptr|len
// of a response the host wrote into memory obtained from the guest's
// allocate export. A result of 0 means no response could be delivered.
//
//	err := wazero.RegisterWithRuntime(ctx, runtime, registry,
//	    wazero.WithCustomHandler(wazero.LogMessageHandler(logger, hostfuncs.DefaultMaxRequestSize)),
//	)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	i64 := []api.ValueType{api.ValueTypeI64}
	for _, name := range registry.Names() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = cfg.call(ctx, mod, registry, name, stack[0])
			}), i64, i64).
			Export(name)
	}

	for _, ch := range cfg.CustomHandlers {
		if registry.Has(ch.Name) {
			return fmt.Errorf("custom handler %q shadows a registry handler", ch.Name)
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	_, err := builder.Instantiate(ctx)
	return err
}

// call reads the request, runs the handler and writes the response. Failures
// before the handler runs are answered with an ErrorResponse.
func (cfg AdapterConfig) call(ctx context.Context, mod api.Module, registry *hostfuncs.HandlerRegistry, name string, packed uint64) uint64 {
	ptr, length := unpackPtrLen(packed)
	l := cfg.Logger.With("function", name, "module", GetModuleName(ctx, mod))

	if length > cfg.MaxRequestSize {
		msg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, cfg.MaxRequestSize)
		l.ErrorContext(ctx, "wazero: "+msg)
		return writeResponse(ctx, l, mod, hostfuncs.NewValidationError(msg).ToJSON())
	}

	req, ok := mod.Memory().Read(ptr, length)
	if !ok {
		l.ErrorContext(ctx, "wazero: request is outside guest memory", "ptr", ptr, "len", length)
		return writeResponse(ctx, l, mod, hostfuncs.NewInternalError("request is outside guest memory").ToJSON())
	}

	resp, err := registry.Invoke(ctx, name, req)
	if err != nil {
		l.ErrorContext(ctx, "wazero: handler failed", "error", err)
		return writeResponse(ctx, l, mod, hostfuncs.NewInternalError(err.Error()).ToJSON())
	}
	return writeResponse(ctx, l, mod, resp)
}

// writeResponse copies data into memory obtained from the guest's allocate
// export and returns its packed ptr|len, or 0 on failure.
func writeResponse(ctx context.Context, l *slog.Logger, mod api.Module, data []byte) uint64 {
	allocate := mod.ExportedFunction(nifabi.ExportAllocate)
	if allocate == nil {
		l.ErrorContext(ctx, "wazero: guest does not export "+nifabi.ExportAllocate)
		return 0
	}

	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		l.ErrorContext(ctx, "wazero: guest allocate failed", "error", err)
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: wasm32 pointer
	if ptr == 0 {
		l.ErrorContext(ctx, "wazero: guest refused allocation", "bytes", len(data))
		return 0
	}
	if !mod.Memory().Write(ptr, data) {
		l.ErrorContext(ctx, "wazero: response does not fit guest memory", "ptr", ptr, "bytes", len(data))
		return 0
	}
	return packPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: bounded by the handler's response
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << abi.PtrHighBits) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64. Unlike
// abi.UnpackPtrLen it never panics: the value comes from an untrusted guest.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> abi.PtrHighBits) //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF)    //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}

// LogMessageHandler returns the log_message import: it reads a guest log
// record and re-emits it on logger, tagged with the module name unless the
// guest already tagged it. Records larger than maxRequestSize are dropped.
func LogMessageHandler(logger *slog.Logger, maxRequestSize uint32) CustomHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return CustomHandler{
		Name: hostfuncs.LogMessageFunc,
		Handler: api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			ptr, length := unpackPtrLen(stack[0])
			if length == 0 || length > maxRequestSize {
				return
			}
			payload, ok := mod.Memory().Read(ptr, length)
			if !ok {
				return
			}
			ctx = ContextWithModule(ctx, GetModuleName(ctx, mod))
			if err := hostfuncs.HandleLogMessage(ctx, logger, payload); err != nil {
				logger.WarnContext(ctx, "wazero: dropped guest log message", "error", err)
			}
		}),
		ParamTypes:  []api.ValueType{api.ValueTypeI64},
		ResultTypes: []api.ValueType{},
	}
}
