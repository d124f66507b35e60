package hostfuncs

import (
	"context"
	"testing"

	"github.com/reglet-dev/reglet-nif/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermBundle(t *testing.T) {
	handlers := TermBundle(term.NewEnvs()).Handlers()

	assert.Len(t, handlers, 3)
	assert.Contains(t, handlers, TermDecodeFunc)
	assert.Contains(t, handlers, TermEncodeFunc)
	assert.Contains(t, handlers, RaiseExceptionFunc)
}

func TestWithBundle(t *testing.T) {
	reg, err := NewRegistry(
		WithBundle(TermBundle(term.NewEnvs())),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{RaiseExceptionFunc, TermDecodeFunc, TermEncodeFunc}, reg.Names())
}

func TestWithBundle_DuplicateRejected(t *testing.T) {
	envs := term.NewEnvs()
	_, err := NewRegistry(
		WithBundle(TermBundle(envs)),
		WithBundle(TermBundle(envs)),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestCombineBundles(t *testing.T) {
	extra := &staticBundle{handlers: map[string]ByteHandler{
		"ping": func(context.Context, []byte) ([]byte, error) { return []byte("pong"), nil },
	}}

	combined := CombineBundles(TermBundle(term.NewEnvs()), extra)
	assert.Len(t, combined.Handlers(), 4)

	reg, err := NewRegistry(WithBundle(combined))
	require.NoError(t, err)
	resp, err := reg.Invoke(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(resp))
}

type echoReq struct {
	Input string `json:"input"`
}

type echoResp struct {
	Output string `json:"output"`
}

func TestWithHandler(t *testing.T) {
	reg, err := NewRegistry(
		WithHandler("echo", func(_ context.Context, req echoReq) echoResp {
			return echoResp{Output: req.Input}
		}),
	)
	require.NoError(t, err)

	resp, err := reg.Invoke(context.Background(), "echo", []byte(`{"input":"hi"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"output":"hi"}`, string(resp))
}
