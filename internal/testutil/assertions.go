// Package testutil provides assertions shared by the module and host tests.
package testutil

import (
	stdErrors "errors"
	"testing"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// RequireRaised asserts that err is an exception raised by a module function
// with the given error type, and returns its detail.
func RequireRaised(t testing.TB, err error, errorType string, msgAndArgs ...interface{}) *entities.ErrorDetail {
	t.Helper()
	require.Error(t, err, msgAndArgs...)

	var callErr *errors.CallError
	require.True(t, stdErrors.As(err, &callErr), "expected *errors.CallError, got %T: %v", err, err)
	require.NotNil(t, callErr.Reason)
	require.Equal(t, errorType, callErr.Reason.Type, "raised %v", callErr.Reason)
	return callErr.Reason
}

// AssertValueEqual compares two term values structurally.
func AssertValueEqual(t testing.TB, expected, actual cty.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if expected.RawEquals(actual) {
		return true
	}
	return assert.Fail(t, "term values differ:\nexpected: "+expected.GoString()+"\nactual:   "+actual.GoString(), msgAndArgs...)
}

// RequireDecode converts v to T, failing the test if it cannot.
func RequireDecode[T any](t testing.TB, v cty.Value) T {
	t.Helper()
	var out T
	require.NoError(t, term.FromValue(v, &out), "decode %s", v.GoString())
	return out
}

// RequireValue converts a Go value to a term value.
func RequireValue(t testing.TB, v any) cty.Value {
	t.Helper()
	val, err := term.ToValue(v)
	require.NoError(t, err, "encode %T", v)
	return val
}
