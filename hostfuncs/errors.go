package hostfuncs

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/reglet-nif/wireformat"
)

// Error types carried in ErrorResponse.
const (
	ErrorTypeValidation = "validation"
	ErrorTypeNotFound   = "not_found"
	ErrorTypeInternal   = "internal"
)

// ErrorResponse is a structured error returned as JSON to the guest instead of
// trapping it. Every response type in wireformat carries the same "error"
// field, so the guest decodes an ErrorResponse into whatever response it
// expected and sees the error.
type ErrorResponse struct {
	Error *wireformat.ErrorDetail `json:"error"`
}

// ToJSON serializes the ErrorResponse to JSON bytes.
// Returns nil if serialization fails (which should never happen for this simple type).
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

func newErrorResponse(errorType, message string, code int) ErrorResponse {
	return ErrorResponse{Error: &wireformat.ErrorDetail{
		Type:    errorType,
		Message: message,
		Code:    fmt.Sprintf("%d", code),
	}}
}

// NewValidationError creates an error response for bad input (e.g., malformed JSON).
func NewValidationError(message string) ErrorResponse {
	return newErrorResponse(ErrorTypeValidation, message, 400)
}

// NewNotFoundError creates an error response for unknown handler names.
func NewNotFoundError(name string) ErrorResponse {
	return newErrorResponse(ErrorTypeNotFound, "unknown host function: "+name, 404)
}

// NewInternalError creates an error response for unexpected failures.
func NewInternalError(message string) ErrorResponse {
	return newErrorResponse(ErrorTypeInternal, message, 500)
}

// NewPanicError creates an error response for recovered panics.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	switch v := panicValue.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = "panic recovered"
	}
	return NewInternalError("panic: " + msg)
}

// detailOf converts err to its wire form.
func detailOf(errorType string, err error) *wireformat.ErrorDetail {
	return &wireformat.ErrorDetail{Type: errorType, Message: err.Error()}
}
