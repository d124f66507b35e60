package term

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/zclconf/go-cty/cty"
)

// Heap holds the terms created during one host call. Terms are indices into the
// heap, so a term is only meaningful together with the env that owns the heap.
type Heap struct {
	terms     []cty.Value
	exception *cty.Value
	mu        sync.Mutex
}

// Put stores v and returns its term.
func (h *Heap) Put(v cty.Value) entities.Term {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.terms = append(h.terms, v)
	return entities.Term(len(h.terms))
}

// Get returns the value behind t.
func (h *Heap) Get(t entities.Term) (cty.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t == entities.NonValue || uint64(t) > uint64(len(h.terms)) {
		return cty.NilVal, false
	}
	return h.terms[t-1], true
}

// Len returns the number of live terms.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.terms)
}

// Raise records reason as the pending exception. The first raise wins.
func (h *Heap) Raise(reason cty.Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exception == nil {
		h.exception = &reason
	}
}

// Exception returns the pending exception, if any.
func (h *Heap) Exception() (cty.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exception == nil {
		return cty.NilVal, false
	}
	return *h.exception, true
}

// Envs is the host's table of open call environments. It implements
// ports.TermCodec, so it can be handed to the guest directly (in-process) or
// served through host functions (wasm).
type Envs struct {
	envs sync.Map // entities.Env -> *Heap
	next atomic.Uint64
}

// NewEnvs returns an empty env table.
func NewEnvs() *Envs {
	return &Envs{}
}

// Open creates a new env with an empty heap.
func (e *Envs) Open() (entities.Env, *Heap) {
	env := entities.Env(e.next.Add(1))
	h := &Heap{}
	e.envs.Store(env, h)
	return env, h
}

// Close releases env and every term it owns.
func (e *Envs) Close(env entities.Env) {
	e.envs.Delete(env)
}

// Heap returns the heap of an open env.
func (e *Envs) Heap(env entities.Env) (*Heap, bool) {
	v, ok := e.envs.Load(env)
	if !ok {
		return nil, false
	}
	return v.(*Heap), true
}

// Decode implements ports.TermCodec.
func (e *Envs) Decode(env entities.Env, t entities.Term) (cty.Value, error) {
	h, ok := e.Heap(env)
	if !ok {
		return cty.NilVal, fmt.Errorf("%s is not open", env)
	}
	v, ok := h.Get(t)
	if !ok {
		return cty.NilVal, fmt.Errorf("%s is not valid in %s", t, env)
	}
	return v, nil
}

// Encode implements ports.TermCodec.
func (e *Envs) Encode(env entities.Env, v cty.Value) (entities.Term, error) {
	h, ok := e.Heap(env)
	if !ok {
		return entities.NonValue, fmt.Errorf("%s is not open", env)
	}
	return h.Put(v), nil
}

// Raise implements ports.TermCodec.
func (e *Envs) Raise(env entities.Env, reason cty.Value) entities.Term {
	if h, ok := e.Heap(env); ok {
		h.Raise(reason)
	}
	return entities.NonValue
}
