package hostfuncs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nop(context.Context, []byte) ([]byte, error) { return nil, nil }

func TestNewRegistry_Empty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Empty(t, reg.Names())
	assert.False(t, reg.Has(""))
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := NewRegistry(
		WithByteHandler("term_decode", nop),
		WithByteHandler("term_decode", nop),
		WithByteHandler("", nop),
		WithByteHandler("term_encode", nil),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate handler name: "term_decode"`)
	assert.Contains(t, err.Error(), "cannot be empty")
	assert.Contains(t, err.Error(), `handler "term_encode" is nil`)
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	reg, err := NewRegistry(WithByteHandler("echo", func(_ context.Context, p []byte) ([]byte, error) {
		return append([]byte("echo:"), p...), nil
	}))
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), "echo", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "echo:hello", string(resp))

	resp, err = reg.Invoke(context.Background(), "raise_exception", nil)
	require.NoError(t, err, "unknown names are answered, not failed")
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, ErrorTypeNotFound, errResp.Error.Type)
	assert.Equal(t, "404", errResp.Error.Code)
	assert.Contains(t, errResp.Error.Message, "raise_exception")
}

func TestHandlerRegistry_NamesSortedAndCopied(t *testing.T) {
	reg, err := NewRegistry(
		WithByteHandler("term_encode", nop),
		WithByteHandler("log_message", nop),
		WithByteHandler("term_decode", nop),
	)
	require.NoError(t, err)

	names := reg.Names()
	assert.Equal(t, []string{"log_message", "term_decode", "term_encode"}, names)
	names[0] = "changed"
	assert.Equal(t, "log_message", reg.Names()[0])
}

func TestHandlerRegistry_InvokeAttachesCall(t *testing.T) {
	var got Call
	reg, err := NewRegistry(WithByteHandler("term_decode", func(ctx context.Context, _ []byte) ([]byte, error) {
		got, _ = CallFrom(ctx)
		return nil, nil
	}))
	require.NoError(t, err)

	_, err = reg.Invoke(WithModule(context.Background(), "mymod"), "term_decode", nil)
	require.NoError(t, err)
	assert.Equal(t, "term_decode", got.Function)
	assert.Equal(t, "mymod", got.Module)
}
