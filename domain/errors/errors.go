// Package errors provides domain-specific error types for the export core and the host.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/reglet-nif/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// ErrNotLoaded is returned when a module is called outside the Loaded state.
var ErrNotLoaded = stdErrors.New("module is not loaded")

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
// Errors that are neither an *ErrorDetail nor a DetailedError are categorised as internal.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// DeclarationError reports an invalid module declaration. It is fatal:
// a module with a declaration error is never built.
type DeclarationError struct {
	Module   string
	Function string
	Reason   string
}

func (e *DeclarationError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("module %q: function %q: %s", e.Module, e.Function, e.Reason)
	}
	return fmt.Sprintf("module %q: %s", e.Module, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *DeclarationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeDeclaration}
}

// ArityError reports a call whose argument count differs from the declared arity.
type ArityError struct {
	Function string
	Arity    int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s/%d called with %d argument(s)", e.Function, e.Arity, e.Got)
}

// ToErrorDetail implements DetailedError.
func (e *ArityError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeBadArity, e.Error()).
		WithFunction(e.Function, e.Arity).
		WithCode(fmt.Sprintf("argc_%d", e.Got))
}

// DecodeError reports a term that could not be converted to the expected native type.
type DecodeError struct {
	Err error
	// Expected is the Go type the term was decoded into.
	Expected string
	// Index is the zero-based argument position, or -1 when not decoding an argument.
	Index int
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("argument %d: cannot decode as %s: %v", e.Index, e.Expected, e.Err)
	}
	return fmt.Sprintf("cannot decode as %s: %v", e.Expected, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *DecodeError) ToErrorDetail() *entities.ErrorDetail {
	d := entities.NewErrorDetail(entities.ErrorTypeBadArg, e.Error())
	if e.Index >= 0 {
		d.Code = fmt.Sprintf("arg_%d", e.Index)
	}
	return d
}

// EncodeError reports a native value that could not be turned into a term.
type EncodeError struct {
	Err  error
	Type string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode %s: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *EncodeError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeBadArg, e.Error()).WithCode("result")
}

// PanicError wraps a value recovered from a panic inside guest code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ToErrorDetail implements DetailedError.
func (e *PanicError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: fmt.Sprintf("%v", e.Value),
		Type:    entities.ErrorTypePanic,
		Stack:   e.Stack,
	}
}

// LoadError reports that a module refused to load.
type LoadError struct {
	Err    error
	Module string
	Code   int32
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("module %q failed to load: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("module %q failed to load (load hook returned %d)", e.Module, e.Code)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LoadError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeLoad, e.Error())
}

// VersionError reports a descriptor built against an unsupported interface version.
type VersionError struct {
	Module       string
	Major, Minor uint32
	WantMajor    uint32
	MaxMinor     uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("module %q implements interface %d.%d, host supports %d.0-%d.%d",
		e.Module, e.Major, e.Minor, e.WantMajor, e.WantMajor, e.MaxMinor)
}

// ToErrorDetail implements DetailedError.
func (e *VersionError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeVersion, e.Error())
}

// CallError is returned by the host when an exported function raised an exception.
type CallError struct {
	Reason *entities.ErrorDetail
	Module string
	Name   string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s:%s raised %v", e.Module, e.Name, e.Reason)
}

// Unwrap exposes the raised reason so errors.As can match *ErrorDetail.
func (e *CallError) Unwrap() error {
	return e.Reason
}

// ToErrorDetail implements DetailedError.
func (e *CallError) ToErrorDetail() *entities.ErrorDetail {
	return e.Reason
}

// TrapError reports a guest trap (the wasm instance aborted) during a call.
type TrapError struct {
	Err    error
	Module string
	Export string
	// Stderr is what the guest wrote to stderr during the trapping call.
	Stderr string
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("module %q trapped in %s: %v", e.Module, e.Export, e.Err)
}

func (e *TrapError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *TrapError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeTrap, e.Error()).WithCode(e.Export)
}

// IsType reports whether err carries an ErrorDetail of the given type.
func IsType(err error, errorType string) bool {
	d := ToErrorDetail(err)
	return d != nil && d.Type == errorType
}

// ManifestError reports a descriptor that does not match the expected manifest.
type ManifestError struct {
	Module     string
	Mismatches []entities.ManifestMismatch
}

func (e *ManifestError) Error() string {
	if len(e.Mismatches) == 0 {
		return fmt.Sprintf("module %q does not match its manifest", e.Module)
	}
	first := e.Mismatches[0]
	return fmt.Sprintf("module %q does not match its manifest: %s: %s (%d mismatch(es))",
		e.Module, first.Field, first.Message, len(e.Mismatches))
}

// ToErrorDetail implements DetailedError.
func (e *ManifestError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeLoad, e.Error()).WithCode("manifest")
}
