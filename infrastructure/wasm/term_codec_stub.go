//go:build !wasip1

package wasm

import (
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/zclconf/go-cty/cty"
)

// HostCodec stub for native builds. Native hosts hand the guest their codec directly.
type HostCodec struct{}

func (HostCodec) Decode(entities.Env, entities.Term) (cty.Value, error) {
	panic("WASM host codec not available in native build")
}

func (HostCodec) Encode(entities.Env, cty.Value) (entities.Term, error) {
	panic("WASM host codec not available in native build")
}

func (HostCodec) Raise(entities.Env, cty.Value) entities.Term {
	panic("WASM host codec not available in native build")
}
