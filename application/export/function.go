package export

import (
	"fmt"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/errors"
	"github.com/reglet-dev/reglet-nif/term"
)

// RawFunc handles its argument terms directly.
type RawFunc func(env Env, argv []entities.Term) (entities.Term, error)

// Function is one exported function: its declared name and arity and the
// trampoline that adapts the host call to the Go function.
type Function struct {
	call  RawFunc
	name  string
	arity int
	flags uint32
	isNil bool
}

// FuncOption configures a Function.
type FuncOption func(*Function)

// WithFlags sets the scheduling flags written into the descriptor
// (nifabi.FlagDirtyCPU, nifabi.FlagDirtyIO).
func WithFlags(flags uint32) FuncOption {
	return func(f *Function) {
		f.flags = flags
	}
}

// Name returns the exported name.
func (f Function) Name() string { return f.name }

// Arity returns the declared argument count.
func (f Function) Arity() int { return f.arity }

// Flags returns the descriptor flags.
func (f Function) Flags() uint32 { return f.flags }

// String returns "name/arity".
func (f Function) String() string {
	return fmt.Sprintf("%s/%d", f.name, f.arity)
}

func newFunction(name string, arity int, isNil bool, call RawFunc, opts []FuncOption) Function {
	f := Function{name: name, arity: arity, call: call, isNil: isNil}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Raw declares a function that receives its arguments as undecoded terms.
func Raw(name string, arity int, fn RawFunc, opts ...FuncOption) Function {
	return newFunction(name, arity, fn == nil, fn, opts)
}

// Func0 declares a function without arguments.
func Func0[R any](name string, fn func(Env) (R, error), opts ...FuncOption) Function {
	return newFunction(name, 0, fn == nil, func(env Env, _ []entities.Term) (entities.Term, error) {
		r, err := fn(env)
		if err != nil {
			return entities.NonValue, err
		}
		return result(env, r)
	}, opts)
}

// Func1 declares a function of one argument.
func Func1[A, R any](name string, fn func(Env, A) (R, error), opts ...FuncOption) Function {
	return newFunction(name, 1, fn == nil, func(env Env, argv []entities.Term) (entities.Term, error) {
		a, err := arg[A](env, argv, 0)
		if err != nil {
			return entities.NonValue, err
		}
		r, err := fn(env, a)
		if err != nil {
			return entities.NonValue, err
		}
		return result(env, r)
	}, opts)
}

// Func2 declares a function of two arguments.
func Func2[A, B, R any](name string, fn func(Env, A, B) (R, error), opts ...FuncOption) Function {
	return newFunction(name, 2, fn == nil, func(env Env, argv []entities.Term) (entities.Term, error) {
		a, err := arg[A](env, argv, 0)
		if err != nil {
			return entities.NonValue, err
		}
		b, err := arg[B](env, argv, 1)
		if err != nil {
			return entities.NonValue, err
		}
		r, err := fn(env, a, b)
		if err != nil {
			return entities.NonValue, err
		}
		return result(env, r)
	}, opts)
}

// Func3 declares a function of three arguments.
func Func3[A, B, C, R any](name string, fn func(Env, A, B, C) (R, error), opts ...FuncOption) Function {
	return newFunction(name, 3, fn == nil, func(env Env, argv []entities.Term) (entities.Term, error) {
		a, err := arg[A](env, argv, 0)
		if err != nil {
			return entities.NonValue, err
		}
		b, err := arg[B](env, argv, 1)
		if err != nil {
			return entities.NonValue, err
		}
		c, err := arg[C](env, argv, 2)
		if err != nil {
			return entities.NonValue, err
		}
		r, err := fn(env, a, b, c)
		if err != nil {
			return entities.NonValue, err
		}
		return result(env, r)
	}, opts)
}

// Func4 declares a function of four arguments.
func Func4[A, B, C, D, R any](name string, fn func(Env, A, B, C, D) (R, error), opts ...FuncOption) Function {
	return newFunction(name, 4, fn == nil, func(env Env, argv []entities.Term) (entities.Term, error) {
		a, err := arg[A](env, argv, 0)
		if err != nil {
			return entities.NonValue, err
		}
		b, err := arg[B](env, argv, 1)
		if err != nil {
			return entities.NonValue, err
		}
		c, err := arg[C](env, argv, 2)
		if err != nil {
			return entities.NonValue, err
		}
		d, err := arg[D](env, argv, 3)
		if err != nil {
			return entities.NonValue, err
		}
		r, err := fn(env, a, b, c, d)
		if err != nil {
			return entities.NonValue, err
		}
		return result(env, r)
	}, opts)
}

func arg[T any](env Env, argv []entities.Term, i int) (T, error) {
	v, err := term.Decode[T](env.Codec, env.Handle, argv[i])
	if de, ok := err.(*errors.DecodeError); ok {
		de.Index = i
	}
	return v, err
}

func result[R any](env Env, r R) (entities.Term, error) {
	return term.Encode(env.Codec, env.Handle, r)
}
