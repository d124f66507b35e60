// Package niftest provides a test harness for native modules. It loads an
// *export.Module in-process through the same load sequence the host uses for
// wasm modules, so descriptor checks, load hooks and exception handling are
// exercised exactly as in production.
package niftest

import (
	"context"
	stdErrors "errors"
	"reflect"
	"testing"

	"github.com/reglet-dev/reglet-nif/application/export"
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/host"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/zclconf/go-cty/cty"
)

// Harness is a loaded module bound to a test.
type Harness struct {
	t      testing.TB
	Module *host.Module
}

// Load loads m with an empty load info and unloads it when the test ends.
func Load(t testing.TB, m *export.Module, opts ...host.Option) *Harness {
	t.Helper()
	return LoadWith(t, m, cty.EmptyObjectVal, opts...)
}

// LoadWith is Load with an explicit load info.
func LoadWith(t testing.TB, m *export.Module, loadInfo cty.Value, opts ...host.Option) *Harness {
	t.Helper()
	mod, err := host.LoadInProcess(context.Background(), m, loadInfo, opts...)
	if err != nil {
		t.Fatalf("failed to load module %q: %v", m.Name(), err)
	}
	t.Cleanup(func() {
		if err := mod.Close(context.Background()); err != nil {
			t.Errorf("failed to unload module %q: %v", m.Name(), err)
		}
	})
	return &Harness{t: t, Module: mod}
}

// Call converts args to term values and calls name.
func (h *Harness) Call(name string, args ...any) (cty.Value, error) {
	h.t.Helper()
	vals := make([]cty.Value, len(args))
	for i, a := range args {
		v, err := term.ToValue(a)
		if err != nil {
			h.t.Fatalf("argument %d of %s: %v", i, name, err)
		}
		vals[i] = v
	}
	return h.Module.Call(context.Background(), name, vals...)
}

// MustCall is Call that fails the test on any error.
func (h *Harness) MustCall(name string, args ...any) cty.Value {
	h.t.Helper()
	v, err := h.Call(name, args...)
	if err != nil {
		h.t.Fatalf("%s: %v", name, err)
	}
	return v
}

// AssertRaised calls name and checks that it raised an exception of errorType.
// It returns the raised detail, or nil if the check failed.
func (h *Harness) AssertRaised(errorType, name string, args ...any) *entities.ErrorDetail {
	h.t.Helper()
	_, err := h.Call(name, args...)
	var callErr *errors.CallError
	if !stdErrors.As(err, &callErr) {
		h.t.Errorf("%s: expected a raised %s exception, got %v", name, errorType, err)
		return nil
	}
	if callErr.Reason.Type != errorType {
		h.t.Errorf("%s: expected a raised %s exception, got %v", name, errorType, callErr.Reason)
		return nil
	}
	return callErr.Reason
}

// TestCase is one call in a table-driven module test.
type TestCase struct {
	Name     string
	Function string
	Args     []any
	// Want is decoded into a value of its own type and compared.
	Want any
	// Raises, when set, is the expected exception type.
	Raises string
}

// RunTests loads m once and runs every test case against it.
func RunTests(t *testing.T, m *export.Module, tests []TestCase, opts ...host.Option) {
	t.Helper()
	h := Load(t, m, opts...)

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			sub := &Harness{t: t, Module: h.Module}
			if tc.Raises != "" {
				sub.AssertRaised(tc.Raises, tc.Function, tc.Args...)
				return
			}
			got := sub.MustCall(tc.Function, tc.Args...)
			AssertResult(t, tc.Want, got)
		})
	}
}

// AssertResult decodes got into the type of want and compares the two.
func AssertResult(t testing.TB, want any, got cty.Value) {
	t.Helper()
	if wantVal, ok := want.(cty.Value); ok {
		if !wantVal.RawEquals(got) {
			t.Errorf("expected %#v, got %#v", wantVal, got)
		}
		return
	}
	if want == nil {
		t.Errorf("no expectation set for result %#v", got)
		return
	}
	ptr := reflect.New(reflect.TypeOf(want))
	if err := term.FromValue(got, ptr.Interface()); err != nil {
		t.Errorf("cannot decode result %#v as %T: %v", got, want, err)
		return
	}
	if !reflect.DeepEqual(want, ptr.Elem().Interface()) {
		t.Errorf("expected %v, got %v", want, ptr.Elem().Interface())
	}
}
