// Package nif declares testmod, a module whose functions fail in every way a
// call can fail. The host tests load it both in process and as a reactor.
package nif

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/reglet-dev/reglet-nif/application/export"
	"github.com/reglet-dev/reglet-nif/domain/entities"
)

// DenyLoad is the load info that makes the load hook refuse.
const DenyLoad = "deny"

// Module exports:
//
//	ok/1    returns its argument and logs it
//	boom/0  panics with a runtime error
//	fail/1  returns an error carrying its argument
//	halt/0  writes to stderr and exits the process
var Module = export.Define("testmod", []export.Function{
	export.Func1("ok", func(env export.Env, v int64) (int64, error) {
		slog.InfoContext(env.Context(), "ok called", "value", v)
		return v, nil
	}),
	export.Func0("boom", func(export.Env) (int64, error) {
		var counts map[string]int64
		counts["boom"]++
		return counts["boom"], nil
	}),
	export.Func1("fail", func(_ export.Env, msg string) (bool, error) {
		return false, fmt.Errorf("failed: %s", msg)
	}),
	export.Func0("halt", func(export.Env) (bool, error) {
		fmt.Fprintln(os.Stderr, "testmod: halting")
		os.Exit(3)
		return false, nil
	}),
}, export.WithLoad(load))

// load refuses DenyLoad and accepts everything else.
func load(env export.Env, info entities.Term) bool {
	s, err := export.Decode[string](env, info)
	return err != nil || s != DenyLoad
}

func init() {
	export.Register(Module)
}
