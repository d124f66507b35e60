package log

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/internal/wasmcontext"
	"github.com/reglet-dev/reglet-nif/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogAttrWire(t *testing.T) {
	tests := []struct {
		name     string
		attr     slog.Attr
		wantType string
		wantVal  string
	}{
		{
			name:     "string",
			attr:     slog.String("key", "value"),
			wantType: "string",
			wantVal:  "value",
		},
		{
			name:     "int64",
			attr:     slog.Int64("key", 123),
			wantType: "int64",
			wantVal:  "123",
		},
		{
			name:     "bool",
			attr:     slog.Bool("key", true),
			wantType: "bool",
			wantVal:  "true",
		},
		{
			name:     "float64",
			attr:     slog.Float64("key", 1.23),
			wantType: "float64",
			wantVal:  "1.230000",
		},
		{
			name:     "time",
			attr:     slog.Time("key", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			wantType: "time",
			wantVal:  "2024-01-01T00:00:00Z",
		},
		{
			name:     "duration",
			attr:     slog.Duration("key", 1*time.Hour),
			wantType: "duration",
			wantVal:  "1h0m0s",
		},
		{
			name:     "error",
			attr:     slog.Any("key", errors.New("test error")),
			wantType: "error",
			wantVal:  "test error",
		},
		{
			name:     "nil",
			attr:     slog.Any("key", nil),
			wantType: "any",
			wantVal:  "<nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := toLogAttrWire(tt.attr)
			assert.Equal(t, tt.attr.Key, wire.Key)
			assert.Equal(t, tt.wantType, wire.Type)
			assert.Equal(t, tt.wantVal, wire.Value)
		})
	}
}

func TestToLogAttrWire_JSON(t *testing.T) {
	// Test structured object that should be serialized as JSON
	type MyStruct struct {
		Field string `json:"field"`
	}
	obj := MyStruct{Field: "data"}
	attr := slog.Any("key", obj)

	wire := toLogAttrWire(attr)
	assert.Equal(t, "key", wire.Key)
	assert.Equal(t, "json", wire.Type)

	var decoded MyStruct
	err := json.Unmarshal([]byte(wire.Value), &decoded)
	require.NoError(t, err)
	assert.Equal(t, obj, decoded)
}

func TestToLogAttrWire_LogValuer(t *testing.T) {
	// Test types that implement LogValuer
	attr := slog.Any("key", logValuer{val: "resolved"})
	wire := toLogAttrWire(attr)

	assert.Equal(t, "key", wire.Key)
	assert.Equal(t, "string", wire.Type)
	assert.Equal(t, "resolved", wire.Value)
}

type logValuer struct {
	val string
}

func (l logValuer) LogValue() slog.Value {
	return slog.StringValue(l.val)
}

func TestNewHandler_Defaults(t *testing.T) {
	h := NewHandler()
	assert.NotNil(t, h)
	// Check default level via Enabled
	assert.True(t, h.Enabled(context.TODO(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.TODO(), slog.LevelDebug))
}

func TestNewHandler_Options(t *testing.T) {
	h := NewHandler(
		WithLevel(slog.LevelDebug),
		WithSource(true),
	)
	assert.NotNil(t, h)
	assert.True(t, h.Enabled(context.TODO(), slog.LevelDebug))
	assert.True(t, h.opts.addSource)
}

// capture returns a handler that records messages instead of calling the host.
func capture(opts ...HandlerOption) (*WasmLogHandler, *[]wireformat.LogMessageWire) {
	var got []wireformat.LogMessageWire
	h := NewHandler(opts...)
	h.send = func(m wireformat.LogMessageWire) { got = append(got, m) }
	return h, &got
}

func TestHandle_AttrsAndGroups(t *testing.T) {
	h, got := capture()
	logger := slog.New(h).With("module", "mymod").WithGroup("call")

	logger.Info("called", "name", "add", slog.Group("args", slog.Int("n", 2)))

	require.Len(t, *got, 1)
	msg := (*got)[0]
	assert.Equal(t, "INFO", msg.Level)
	assert.Equal(t, "called", msg.Message)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, []wireformat.LogAttrWire{
		{Key: "module", Type: "string", Value: "mymod"},
		{Key: "call.name", Type: "string", Value: "add"},
		{Key: "call.args.n", Type: "int64", Value: "2"},
	}, msg.Attrs)
}

func TestHandle_Env(t *testing.T) {
	h, got := capture()
	logger := slog.New(h)

	ctx := wasmcontext.WithEnv(context.Background(), entities.Env(9))
	logger.InfoContext(ctx, "with env")

	wasmcontext.SetCurrentContext(wasmcontext.WithFunction(
		wasmcontext.WithEnv(context.Background(), entities.Env(4)), "id/1"))
	logger.Info("from current call")
	wasmcontext.ResetContext()

	logger.Info("outside a call")

	logger.InfoContext(wasmcontext.WithFunction(ctx, "add/2"), "inside add")

	require.Len(t, *got, 4)
	assert.Equal(t, uint64(9), (*got)[0].Env)
	assert.Equal(t, uint64(4), (*got)[1].Env)
	assert.Contains(t, (*got)[1].Attrs, wireformat.LogAttrWire{Key: "function", Type: "string", Value: "id/1"})
	assert.Zero(t, (*got)[2].Env)
	assert.Equal(t, uint64(9), (*got)[3].Env)
	assert.Contains(t, (*got)[3].Attrs, wireformat.LogAttrWire{Key: "function", Type: "string", Value: "add/2"})
}

func TestHandle_Source(t *testing.T) {
	h, got := capture(WithSource(true))
	slog.New(h).Warn("here")

	require.Len(t, *got, 1)
	require.NotEmpty(t, (*got)[0].Attrs)
	src := (*got)[0].Attrs[0]
	assert.Equal(t, slog.SourceKey, src.Key)
	assert.Contains(t, src.Value, "log_test.go:")
}

func TestHandle_Filtered(t *testing.T) {
	h, got := capture(WithLevel(slog.LevelWarn))
	slog.New(h).Info("dropped")
	assert.Empty(t, *got)
}

func TestToSlogAttr(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, attr := range []slog.Attr{
		slog.String("s", "v"),
		slog.Int64("i", -3),
		slog.Uint64("u", 3),
		slog.Bool("b", true),
		slog.Float64("f", 1.5),
		slog.Time("t", ts),
		slog.Duration("d", time.Second),
	} {
		back := ToSlogAttr(toLogAttrWire(attr))
		assert.True(t, attr.Equal(back), "%s: got %v", attr.Key, back)
	}

	raw := ToSlogAttr(wireformat.LogAttrWire{Key: "j", Type: "json", Value: `{"a":1}`})
	assert.Equal(t, json.RawMessage(`{"a":1}`), raw.Value.Any())

	bad := ToSlogAttr(wireformat.LogAttrWire{Key: "n", Type: "int64", Value: "x"})
	assert.Equal(t, "x", bad.Value.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo+2, ParseLevel("INFO+2"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}
