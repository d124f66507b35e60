//go:build wasip1

package export

import (
	"fmt"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/infrastructure/wasm"
	"github.com/reglet-dev/reglet-nif/internal/abi"
	"github.com/reglet-dev/reglet-nif/internal/wasmcontext"
	_ "github.com/reglet-dev/reglet-nif/log" // Initialize WASM logging handler
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/reglet-dev/reglet-nif/term"
)

// The entry points below are the whole surface the host calls. Each one
// resolves the registered module and hands off to it; none of them lets a
// panic escape into the host.

//go:wasmexport nif_init
func nifInit() uint32 {
	m := Registered()
	if m == nil {
		return 0
	}
	return m.Entry()
}

//go:wasmexport nif_call
func nifCall(fptr uint32, env uint64, argc uint32, argv uint32) uint64 {
	e := NewEnv(wasm.HostCodec{}, entities.Env(env))
	m := Registered()
	if m == nil {
		return uint64(raiseNotLoaded(e))
	}

	raw, err := abi.ReadTerms(argc, argv)
	if err != nil {
		return uint64(e.Codec.Raise(e.Handle, term.Reason(
			entities.NewErrorDetail(entities.ErrorTypeBadArg, err.Error()))))
	}
	terms := make([]entities.Term, len(raw))
	for i, t := range raw {
		terms[i] = entities.Term(t)
	}

	wasmcontext.SetCurrentContext(e.Context())
	defer wasmcontext.ResetContext()
	return uint64(m.Invoke(fptr, e, terms))
}

//go:wasmexport nif_load
func nifLoad(env uint64, loadInfo uint64) int32 {
	m := Registered()
	if m == nil {
		return nifabi.LoadFailed
	}
	e := NewEnv(wasm.HostCodec{}, entities.Env(env))
	wasmcontext.SetCurrentContext(e.Context())
	defer wasmcontext.ResetContext()
	return m.Load(e, entities.Term(loadInfo))
}

//go:wasmexport nif_unload
func nifUnload(env uint64) {
	m := Registered()
	if m == nil {
		return
	}
	e := NewEnv(wasm.HostCodec{}, entities.Env(env))
	wasmcontext.SetCurrentContext(e.Context())
	defer wasmcontext.ResetContext()
	m.Unload(e)
}

func raiseNotLoaded(e Env) entities.Term {
	return e.Codec.Raise(e.Handle, term.Reason(
		entities.NewErrorDetail(entities.ErrorTypeNotLoaded, fmt.Sprintf("no module registered (%v)", e.Handle))))
}
