package host

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/reglet-dev/reglet-nif/application/export"
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// trappingBackend wraps the in-process backend and traps on demand.
type trappingBackend struct {
	*inProcess
	trap   bool
	closed int
}

func (b *trappingBackend) call(ctx context.Context, ref uint32, env entities.Env, argv []entities.Term) (entities.Term, error) {
	if b.trap {
		return entities.NonValue, &errors.TrapError{Module: "testmod", Export: nifabi.ExportCall, Err: stdErrors.New("unreachable")}
	}
	return b.inProcess.call(ctx, ref, env, argv)
}

func (b *trappingBackend) close(context.Context) error {
	b.closed++
	return nil
}

func loadTrapping(t *testing.T) (*Module, *trappingBackend) {
	t.Helper()
	m := export.Define("testmod", []export.Function{
		export.Func1("id", func(_ export.Env, v cty.Value) (cty.Value, error) { return v, nil }),
	})
	envs := term.NewEnvs()
	b := &trappingBackend{inProcess: &inProcess{mod: m, envs: envs}}
	mod, err := load(context.Background(), defaultConfig(), envs, b, cty.NilVal)
	require.NoError(t, err)
	return mod, b
}

func TestTrapUnloadsModule(t *testing.T) {
	ctx := context.Background()
	mod, b := loadTrapping(t)

	_, err := mod.Call(ctx, "id", cty.True)
	require.NoError(t, err)

	b.trap = true
	_, err = mod.Call(ctx, "id", cty.True)
	var trap *errors.TrapError
	require.ErrorAs(t, err, &trap)
	assert.Equal(t, Unloaded, mod.State())
	assert.True(t, errors.IsType(err, entities.ErrorTypeTrap))

	b.trap = false
	_, err = mod.Call(ctx, "id", cty.True)
	assert.ErrorIs(t, err, errors.ErrNotLoaded)

	require.NoError(t, mod.Close(ctx))
	assert.Equal(t, 1, b.closed)
}

// silentBackend returns the non-value without raising.
type silentBackend struct {
	*inProcess
}

func (b *silentBackend) call(context.Context, uint32, entities.Env, []entities.Term) (entities.Term, error) {
	return entities.NonValue, nil
}

func TestCall_NonValueWithoutException(t *testing.T) {
	m := export.Define("testmod", []export.Function{
		export.Func0("nothing", func(export.Env) (bool, error) { return true, nil }),
	})
	envs := term.NewEnvs()
	mod, err := load(context.Background(), defaultConfig(), envs, &silentBackend{&inProcess{mod: m, envs: envs}}, cty.NilVal)
	require.NoError(t, err)

	_, err = mod.Call(context.Background(), "nothing")
	var ce *errors.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, entities.ErrorTypeInternal, ce.Reason.Type)
}

// rawDescriptor serves a hand-written descriptor image.
type rawDescriptor struct {
	*inProcess
	img    *nifabi.Image
	ptr    uint32
	closed bool
}

func (r *rawDescriptor) descriptor(context.Context) (uint32, nifabi.Memory, error) {
	return r.ptr, r.img, nil
}

func (r *rawDescriptor) close(context.Context) error {
	r.closed = true
	return nil
}

func writeDescriptor(t *testing.T, e nifabi.Entry) *rawDescriptor {
	t.Helper()
	buf := make([]byte, nifabi.Size(e))
	ptr, err := nifabi.Write(buf, 0x100, e)
	require.NoError(t, err)
	return &rawDescriptor{inProcess: &inProcess{}, img: nifabi.NewImage(buf, 0x100), ptr: ptr}
}

func TestLoad_DescriptorChecks(t *testing.T) {
	base := nifabi.Entry{
		Major: nifabi.MajorVersion, Minor: nifabi.MinorVersion,
		Name: "raw", VMVariant: nifabi.VMVariant,
	}

	t.Run("future major", func(t *testing.T) {
		e := base
		e.Major++
		b := writeDescriptor(t, e)
		_, err := load(context.Background(), defaultConfig(), term.NewEnvs(), b, cty.NilVal)
		var ve *errors.VersionError
		require.ErrorAs(t, err, &ve)
		assert.True(t, b.closed)
	})

	t.Run("duplicate function", func(t *testing.T) {
		e := base
		e.Funcs = []nifabi.Func{{Name: "f", Ref: 1}, {Name: "f", Ref: 2}}
		_, err := load(context.Background(), defaultConfig(), term.NewEnvs(), writeDescriptor(t, e), cty.NilVal)
		var le *errors.LoadError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, err.Error(), "exported twice")
	})

	t.Run("no descriptor", func(t *testing.T) {
		b := writeDescriptor(t, base)
		b.ptr = 0
		_, err := load(context.Background(), defaultConfig(), term.NewEnvs(), b, cty.NilVal)
		assert.Error(t, err)
	})

	t.Run("older minor is accepted", func(t *testing.T) {
		e := base
		e.Minor = 0
		mod, err := load(context.Background(), defaultConfig(), term.NewEnvs(), writeDescriptor(t, e), cty.NilVal)
		require.NoError(t, err)
		assert.Equal(t, Loaded, mod.State())
		assert.Equal(t, "raw", mod.Name())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unloaded", Unloaded.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "state(7)", State(7).String())
}

func TestOptions(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{
		WithSupportedMinor(99),
		WithMaxRequestSize(0),
		WithLogger(nil),
		WithMemoryLimitPages(16),
	} {
		opt(&cfg)
	}
	assert.Equal(t, nifabi.MinorVersion, cfg.supportedMinor)
	assert.NotZero(t, cfg.maxRequestSize)
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, uint32(16), cfg.memoryLimitPages)
}
