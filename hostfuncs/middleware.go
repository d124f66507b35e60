package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler.
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware turns a panicking handler into an internal
// ErrorResponse. A panic must never unwind into the wasm runtime, which would
// abort the guest.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = NewPanicError(r).ToJSON(), nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs every call at debug level and every failed call at
// error level, attributed to the calling module when it is known.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			call, ok := CallFrom(ctx)
			if !ok {
				call = Call{Start: time.Now(), Function: "unknown"}
			}
			l := logger.With("function", call.Function)
			if call.Module != "" {
				l = l.With("module", call.Module)
			}

			resp, err := next(ctx, payload)
			if err != nil {
				l.ErrorContext(ctx, "host function failed", "error", err)
				return resp, err
			}
			l.DebugContext(ctx, "host function completed",
				"request_bytes", len(payload), "response_bytes", len(resp), "duration", time.Since(call.Start))
			return resp, nil
		}
	}
}
