package entities

import "fmt"

// Error types carried in ErrorDetail.Type.
const (
	ErrorTypeBadArity    = "badarity"
	ErrorTypeBadArg      = "badarg"
	ErrorTypeBadFun      = "badfun"
	ErrorTypePanic       = "panic"
	ErrorTypeNotLoaded   = "not_loaded"
	ErrorTypeLoad        = "load"
	ErrorTypeTrap        = "trap"
	ErrorTypeDeclaration = "declaration"
	ErrorTypeVersion     = "version"
	ErrorTypeInternal    = "internal"

	// ErrorTypeError is used for plain errors returned by module functions.
	ErrorTypeError = "error"
)

// ErrorDetail provides structured error information.
// It is the payload of every exception raised across the module boundary.
type ErrorDetail struct {
	// Wrapped contains a wrapped error for error chains.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type categorizes the error (see the ErrorType constants).
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Function is "name/arity" of the exported function that raised, if any.
	Function string `json:"function,omitempty"`

	// Stack contains the stack trace for panic errors.
	Stack []byte `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Function != "" {
		msg = fmt.Sprintf("%s (in %s)", msg, e.Function)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithCode sets the code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// WithFunction sets the raising function and returns e.
func (e *ErrorDetail) WithFunction(name string, arity int) *ErrorDetail {
	e.Function = fmt.Sprintf("%s/%d", name, arity)
	return e
}
