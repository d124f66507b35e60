package hostfuncs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse_ToJSON(t *testing.T) {
	tests := []struct {
		name     string
		err      ErrorResponse
		expected string
	}{
		{
			name:     "validation error",
			err:      NewValidationError("invalid JSON"),
			expected: `{"error":{"type":"validation","message":"invalid JSON","code":"400"}}`,
		},
		{
			name:     "not found",
			err:      NewNotFoundError("foo"),
			expected: `{"error":{"type":"not_found","message":"unknown host function: foo","code":"404"}}`,
		},
		{
			name:     "internal error",
			err:      NewInternalError("oh no"),
			expected: `{"error":{"type":"internal","message":"oh no","code":"500"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.ToJSON()
			require.NotNil(t, got)
			assert.JSONEq(t, tt.expected, string(got))
		})
	}
}

func TestNewPanicError(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "oh no", "panic: oh no"},
		{"error", errors.New("bad state"), "panic: bad state"},
		{"other", 42, "panic: panic recovered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewPanicError(tt.value)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrorTypeInternal, resp.Error.Type)
			assert.Equal(t, tt.want, resp.Error.Message)
		})
	}
}
