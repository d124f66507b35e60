package term

import (
	"fmt"

	"github.com/reglet-dev/reglet-nif/wireformat"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	ctymsgpack "github.com/zclconf/go-cty/cty/msgpack"
)

// ToWire encodes v for transfer across the boundary.
func ToWire(v cty.Value) (wireformat.TermWire, error) {
	ty := v.Type()
	typeJSON, err := ctyjson.MarshalType(ty)
	if err != nil {
		return wireformat.TermWire{}, fmt.Errorf("marshal term type: %w", err)
	}
	packed, err := ctymsgpack.Marshal(v, ty)
	if err != nil {
		return wireformat.TermWire{}, fmt.Errorf("marshal term value: %w", err)
	}
	return wireformat.TermWire{Type: typeJSON, Value: packed}, nil
}

// FromWire decodes a value produced by ToWire.
func FromWire(w wireformat.TermWire) (cty.Value, error) {
	ty, err := ctyjson.UnmarshalType(w.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unmarshal term type: %w", err)
	}
	v, err := ctymsgpack.Unmarshal(w.Value, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unmarshal term value: %w", err)
	}
	return v, nil
}

// FromJSON parses a JSON document into a term value using the type implied by
// the document itself (arrays become tuples, objects become objects).
func FromJSON(data []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("infer term type: %w", err)
	}
	return ctyjson.Unmarshal(data, ty)
}

// ToJSON renders a term value as JSON.
func ToJSON(v cty.Value) ([]byte, error) {
	return ctyjson.Marshal(v, v.Type())
}
