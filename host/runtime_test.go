package host_test

import (
	"context"
	"sync"
	"testing"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/host"
	"github.com/reglet-dev/reglet-nif/hostfuncs"
	"github.com/reglet-dev/reglet-nif/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// emptyModule is the smallest valid wasm binary: magic and version only.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func newRuntime(t *testing.T, opts ...host.Option) *host.Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := host.NewRuntime(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return rt
}

func TestNewRuntime(t *testing.T) {
	rt := newRuntime(t)
	assert.ElementsMatch(t,
		[]string{hostfuncs.TermDecodeFunc, hostfuncs.TermEncodeFunc, hostfuncs.RaiseExceptionFunc},
		rt.HostFunctions())
}

func TestNewRuntime_ExtraHostFunctions(t *testing.T) {
	bundle := hostfuncs.CombineBundles()
	rt := newRuntime(t, host.WithHostFunctions(bundle), host.WithMemoryLimitPages(64))
	assert.Len(t, rt.HostFunctions(), 3)
}

func TestRuntime_LoadInvalid(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	_, err := rt.Load(ctx, []byte("not wasm"), cty.NilVal)
	assert.Error(t, err)

	_, err = rt.Load(ctx, emptyModule, cty.NilVal)
	require.Error(t, err)
	var le *errors.LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "not a reactor")
}

// TestRuntime_Mymod runs the mymod example compiled as a reactor.
func TestRuntime_Mymod(t *testing.T) {
	wasm := buildReactor(t, mymodPkg)

	ctx := context.Background()
	rt := newRuntime(t)
	mod, err := rt.Load(ctx, wasm, cty.NilVal)
	require.NoError(t, err)
	defer mod.Close(ctx)

	assert.Equal(t, "mymod", mod.Name())
	assert.Equal(t, host.Loaded, mod.State())
	require.Len(t, mod.Functions(), 2)
	assert.Zero(t, mod.Info().Load)

	got, err := mod.Call(ctx, "add", cty.NumberIntVal(2), cty.NumberIntVal(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), testutil.RequireDecode[int64](t, got))

	_, err = mod.Call(ctx, "add", cty.NumberIntVal(2))
	testutil.RequireRaised(t, err, entities.ErrorTypeBadArity)

	_, err = mod.Call(ctx, "add", cty.StringVal("2"), cty.NumberIntVal(3))
	testutil.RequireRaised(t, err, entities.ErrorTypeBadArg)

	v := cty.TupleVal([]cty.Value{cty.StringVal("ok"), cty.NumberIntVal(1)})
	got, err = mod.Call(ctx, "id", v)
	require.NoError(t, err)
	testutil.AssertValueEqual(t, v, got)

	// Calls into one instance are serialised.
	var wg sync.WaitGroup
	for i := int64(0); i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := mod.Call(ctx, "add", cty.NumberIntVal(i), cty.NumberIntVal(1))
			if assert.NoError(t, err) {
				assert.True(t, got.Equals(cty.NumberIntVal(i+1)).True())
			}
		}()
	}
	wg.Wait()

	require.NoError(t, mod.Close(ctx))
	assert.Equal(t, host.Unloaded, mod.State())
}
