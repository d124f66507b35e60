package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/hostfuncs"
	wazeroadapter "github.com/reglet-dev/reglet-nif/infrastructure/wazero"
	"github.com/reglet-dev/reglet-nif/internal/abi"
	"github.com/reglet-dev/reglet-nif/nifabi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmModule drives a reactor instance through the nif_* exports. A wasm
// instance is single-threaded, so every export call holds mu.
type wasmModule struct {
	mod      api.Module
	compiled wazero.CompiledModule
	// stderr retains the guest's stderr since the last export call.
	stderr *hostfuncs.BoundedBuffer
	name   string
	mu     sync.Mutex
}

func (w *wasmModule) setName(name string) {
	w.name = name
}

func (w *wasmModule) ctx(ctx context.Context) context.Context {
	if w.name == "" {
		return ctx
	}
	return wazeroadapter.ContextWithModule(ctx, w.name)
}

// export calls fn and turns a failed call into a TrapError.
func (w *wasmModule) export(ctx context.Context, fn string, params ...uint64) ([]uint64, error) {
	f := w.mod.ExportedFunction(fn)
	if f == nil {
		return nil, fmt.Errorf("module does not export %q", fn)
	}
	w.stderr.Reset()
	results, err := f.Call(w.ctx(ctx), params...)
	if err != nil {
		return nil, &errors.TrapError{Module: w.name, Export: fn, Err: err, Stderr: w.stderr.Take()}
	}
	return results, nil
}

func (w *wasmModule) initialize(ctx context.Context) error {
	if w.mod.ExportedFunction(nifabi.ExportInitialize) == nil {
		return &errors.LoadError{Err: fmt.Errorf("module is not a reactor: missing %q", nifabi.ExportInitialize)}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.export(ctx, nifabi.ExportInitialize); err != nil {
		return &errors.LoadError{Err: err}
	}
	return nil
}

func (w *wasmModule) descriptor(ctx context.Context) (uint32, nifabi.Memory, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	results, err := w.export(ctx, nifabi.ExportInit)
	if err != nil {
		return 0, nil, err
	}
	return uint32(results[0]), w.mod.Memory(), nil //nolint:gosec // G115: wasm32 pointer
}

func (w *wasmModule) call(ctx context.Context, ref uint32, env entities.Env, argv []entities.Term) (entities.Term, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ptr, size uint32
	if len(argv) > 0 {
		terms := make([]uint64, len(argv))
		for i, t := range argv {
			terms[i] = uint64(t)
		}
		buf := abi.EncodeTerms(terms)
		size = uint32(len(buf)) //nolint:gosec // G115: at most MaxArity terms reach a valid call

		results, err := w.export(ctx, nifabi.ExportAllocate, uint64(size))
		if err != nil {
			return entities.NonValue, err
		}
		ptr = uint32(results[0]) //nolint:gosec // G115: wasm32 pointer
		if ptr == 0 {
			return entities.NonValue, fmt.Errorf("guest refused to allocate %d bytes for arguments", size)
		}
		if !w.mod.Memory().Write(ptr, buf) {
			return entities.NonValue, fmt.Errorf("failed to write arguments to guest memory")
		}
		defer func() {
			// The instance may already be closed after a trap.
			_, _ = w.export(ctx, nifabi.ExportDeallocate, uint64(ptr), uint64(size))
		}()
	}

	results, err := w.export(ctx, nifabi.ExportCall, uint64(ref), uint64(env), uint64(len(argv)), uint64(ptr))
	if err != nil {
		return entities.NonValue, err
	}
	return entities.Term(results[0]), nil
}

func (w *wasmModule) load(ctx context.Context, env entities.Env, info entities.Term) (int32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	results, err := w.export(ctx, nifabi.ExportLoad, uint64(env), uint64(info))
	if err != nil {
		return nifabi.LoadFailed, err
	}
	return int32(uint32(results[0])), nil //nolint:gosec // G115: i32 result
}

func (w *wasmModule) unload(ctx context.Context, env entities.Env) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.export(ctx, nifabi.ExportUnload, uint64(env))
	return err
}

func (w *wasmModule) close(ctx context.Context) error {
	err := w.mod.Close(ctx)
	if cerr := w.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
