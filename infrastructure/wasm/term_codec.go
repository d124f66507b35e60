//go:build wasip1

package wasm

import (
	"fmt"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/ports"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/reglet-dev/reglet-nif/wireformat"
	"github.com/zclconf/go-cty/cty"
)

// Compile-time interface compliance check
var _ ports.TermCodec = HostCodec{}

// HostCodec implements ports.TermCodec over the nif_host imports.
type HostCodec struct{}

// Decode implements ports.TermCodec.
func (HostCodec) Decode(env entities.Env, t entities.Term) (cty.Value, error) {
	resp, err := callHost[wireformat.TermDecodeRequest, wireformat.TermDecodeResponse](host_term_decode,
		wireformat.TermDecodeRequest{Env: uint64(env), Term: uint64(t)})
	if err != nil {
		return cty.NilVal, fmt.Errorf("term_decode: %w", err)
	}
	if resp.Error != nil {
		return cty.NilVal, resp.Error
	}
	if resp.Value == nil {
		return cty.NilVal, fmt.Errorf("term_decode: host returned no value for %s", t)
	}
	return term.FromWire(*resp.Value)
}

// Encode implements ports.TermCodec.
func (HostCodec) Encode(env entities.Env, v cty.Value) (entities.Term, error) {
	w, err := term.ToWire(v)
	if err != nil {
		return entities.NonValue, err
	}
	resp, err := callHost[wireformat.TermEncodeRequest, wireformat.TermEncodeResponse](host_term_encode,
		wireformat.TermEncodeRequest{Env: uint64(env), Value: w})
	if err != nil {
		return entities.NonValue, fmt.Errorf("term_encode: %w", err)
	}
	if resp.Error != nil {
		return entities.NonValue, resp.Error
	}
	return entities.Term(resp.Term), nil
}

// Raise implements ports.TermCodec. Failures to reach the host still return
// entities.NonValue; the host then reports a call without a reason.
func (HostCodec) Raise(env entities.Env, reason cty.Value) entities.Term {
	w, err := term.ToWire(reason)
	if err != nil {
		w, _ = term.ToWire(cty.StringVal(reason.GoString()))
	}
	_, _ = callHost[wireformat.RaiseRequest, wireformat.RaiseResponse](host_raise_exception,
		wireformat.RaiseRequest{Env: uint64(env), Reason: w})
	return entities.NonValue
}
