// Package log provides structured logging (slog) for module code running as a
// wasm guest. Records are forwarded to the host's log_message import, tagged
// with the env of the call that produced them.
package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"github.com/reglet-dev/reglet-nif/internal/wasmcontext"
	"github.com/reglet-dev/reglet-nif/wireformat"
)

// WasmLogHandler implements slog.Handler to route logs through a host function.
type WasmLogHandler struct {
	send   func(wireformat.LogMessageWire)
	attrs  []wireformat.LogAttrWire
	prefix string
	opts   handlerConfig
}

// HandlerOption configures the WasmLogHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level will be filtered on the guest side.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a new WasmLogHandler with the given options.
func NewHandler(opts ...HandlerOption) *WasmLogHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &WasmLogHandler{opts: cfg, send: sendToHost}
}

// Enabled reports whether the handler handles records at the given level.
func (h *WasmLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// WithAttrs returns a new WasmLogHandler that includes the given attributes.
func (h *WasmLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandler := *h
	newHandler.attrs = append(append([]wireformat.LogAttrWire(nil), h.attrs...), h.wireAttrs(attrs)...)
	return &newHandler
}

// WithGroup returns a new WasmLogHandler whose later attribute keys are
// qualified with name.
func (h *WasmLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newHandler := *h
	newHandler.prefix = h.prefix + name + "."
	return &newHandler
}

// Handle serializes a slog.Record and sends it to the host.
func (h *WasmLogHandler) Handle(ctx context.Context, record slog.Record) error {
	h.send(h.message(ctx, record))
	return nil
}

// message converts record to its wire form. The env and function come from
// ctx, or from the call currently being served when ctx carries none.
func (h *WasmLogHandler) message(ctx context.Context, record slog.Record) wireformat.LogMessageWire {
	msg := wireformat.LogMessageWire{
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
		Attrs:     append([]wireformat.LogAttrWire(nil), h.attrs...),
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	env, ok := wasmcontext.EnvFromContext(ctx)
	if !ok {
		env, ok = wasmcontext.CurrentEnv()
	}
	if ok {
		msg.Env = uint64(env)
	}
	fn := wasmcontext.FunctionFromContext(ctx)
	if fn == "" {
		fn = wasmcontext.FunctionFromContext(wasmcontext.GetCurrentContext())
	}
	if fn != "" {
		msg.Attrs = append(msg.Attrs, wireformat.LogAttrWire{Key: "function", Type: "string", Value: fn})
	}

	if h.opts.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		msg.Attrs = append(msg.Attrs, wireformat.LogAttrWire{
			Key:   slog.SourceKey,
			Type:  "string",
			Value: frame.File + ":" + strconv.Itoa(frame.Line),
		})
	}

	var attrs []slog.Attr
	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)
		return true
	})
	msg.Attrs = append(msg.Attrs, h.wireAttrs(attrs)...)
	return msg
}

func (h *WasmLogHandler) wireAttrs(attrs []slog.Attr) []wireformat.LogAttrWire {
	out := make([]wireformat.LogAttrWire, 0, len(attrs))
	for _, a := range attrs {
		out = appendAttr(out, h.prefix, a)
	}
	return out
}

// appendAttr flattens groups into dotted keys.
func appendAttr(out []wireformat.LogAttrWire, prefix string, attr slog.Attr) []wireformat.LogAttrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		p := prefix
		if attr.Key != "" {
			p = prefix + attr.Key + "."
		}
		for _, a := range attr.Value.Group() {
			out = appendAttr(out, p, a)
		}
		return out
	}
	if attr.Equal(slog.Attr{}) {
		return out
	}
	w := toLogAttrWire(attr)
	w.Key = prefix + w.Key
	return append(out, w)
}
