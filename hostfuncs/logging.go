package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	nlog "github.com/reglet-dev/reglet-nif/log"
	"github.com/reglet-dev/reglet-nif/wireformat"
)

// HandleLogMessage re-emits a guest log record on logger. Guest attributes are
// kept; the env that produced the record is added as "env", and the module
// recorded with WithModule as "module" unless the guest already set one.
func HandleLogMessage(ctx context.Context, logger *slog.Logger, payload []byte) error {
	var msg wireformat.LogMessageWire
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal log message: %w", err)
	}

	level := nlog.ParseLevel(msg.Level)
	if !logger.Enabled(ctx, level) {
		return nil
	}

	attrs := make([]slog.Attr, 0, len(msg.Attrs)+3)
	attrs = append(attrs, slog.String("source", "guest"))
	if msg.Env != 0 {
		attrs = append(attrs, slog.Uint64("env", msg.Env))
	}
	tagged := false
	for _, a := range msg.Attrs {
		tagged = tagged || a.Key == "module"
		attrs = append(attrs, nlog.ToSlogAttr(a))
	}
	if module, ok := ModuleName(ctx); ok && module != "" && !tagged {
		attrs = append(attrs, slog.String("module", module))
	}
	logger.LogAttrs(ctx, level, msg.Message, attrs...)
	return nil
}
