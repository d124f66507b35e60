package export

import (
	"log/slog"
	"sync/atomic"
)

var registered atomic.Pointer[Module]

// Register makes m the module served by this binary's entry points.
// Call it once, from an init function. Later calls are ignored.
func Register(m *Module) {
	if m == nil {
		slog.Warn("export: Register called with a nil module")
		return
	}
	if !registered.CompareAndSwap(nil, m) {
		slog.Warn("export: module already registered, ignoring second call",
			"registered", registered.Load().Name(), "ignored", m.Name())
		return
	}
	slog.Debug("export: module registered", "module", m.Name(), "functions", len(m.funcs))
}

// Registered returns the registered module, or nil.
func Registered() *Module {
	return registered.Load()
}
