// Package term implements the value side of the module boundary: typed
// decoding and encoding of host terms, the host-owned term heap, the wire form
// used when a term value crosses into guest memory, and the exception reason
// format.
//
// Term values are go-cty values. Native Go values are mapped with gocty, so any
// type gocty understands (numbers, strings, bools, slices, maps, and structs with
// `cty` tags) can be used as a function argument or result.
package term

import (
	"fmt"
	"reflect"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/domain/ports"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var ctyValueType = reflect.TypeOf(cty.Value{})

// Decode reads t through codec and converts it to T.
// Failures are returned as *errors.DecodeError with Index -1.
func Decode[T any](codec ports.TermCodec, env entities.Env, t entities.Term) (T, error) {
	var out T
	val, err := codec.Decode(env, t)
	if err != nil {
		return out, &errors.DecodeError{Err: err, Expected: typeName[T](), Index: -1}
	}
	if err := FromValue(val, &out); err != nil {
		return out, &errors.DecodeError{Err: err, Expected: typeName[T](), Index: -1}
	}
	return out, nil
}

// Encode converts v to a term value and stores it through codec.
func Encode[T any](codec ports.TermCodec, env entities.Env, v T) (entities.Term, error) {
	val, err := ToValue(v)
	if err != nil {
		return entities.NonValue, &errors.EncodeError{Err: err, Type: typeName[T]()}
	}
	return codec.Encode(env, val)
}

// FromValue stores val into the Go value dst points to.
// Tuples are converted to lists when dst is a slice, and numbers are checked to
// fit the destination type.
func FromValue(val cty.Value, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dst)
	}
	if rv.Elem().Type() == ctyValueType {
		rv.Elem().Set(reflect.ValueOf(val))
		return nil
	}
	if !val.IsKnown() {
		return fmt.Errorf("value is unknown")
	}
	if val.IsNull() {
		return fmt.Errorf("value is null")
	}

	if want, err := gocty.ImpliedType(rv.Elem().Interface()); err == nil && !want.Equals(val.Type()) {
		// Only structural conversions (tuple to list, object to map, ...) are
		// allowed; a string term never decodes as a number or the reverse.
		if want.IsPrimitiveType() || val.Type().IsPrimitiveType() {
			return fmt.Errorf("expected %s, got %s", want.FriendlyName(), val.Type().FriendlyName())
		}
		converted, err := convert.Convert(val, want)
		if err != nil {
			return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), want.FriendlyName(), err)
		}
		val = converted
	}
	return gocty.FromCtyValue(val, dst)
}

// ToValue converts a Go value to a term value.
func ToValue(v any) (cty.Value, error) {
	if val, ok := v.(cty.Value); ok {
		return val, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(v, ty)
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
