package entities

import "fmt"

// Term is an opaque handle to a value owned by the host runtime.
// Guest code never interprets the bits; it only passes a Term through a TermCodec.
type Term uint64

// NonValue is returned by an entry point that raised an exception instead of
// producing a result. It is never a valid term.
const NonValue Term = 0

// IsValue reports whether t can refer to a host value.
func (t Term) IsValue() bool {
	return t != NonValue
}

func (t Term) String() string {
	if t == NonValue {
		return "term<none>"
	}
	return fmt.Sprintf("term<%d>", uint64(t))
}

// Env is an opaque handle to a host call environment.
// The guest borrows it for the duration of a single call and never owns it.
type Env uint64

func (e Env) String() string {
	return fmt.Sprintf("env<%d>", uint64(e))
}
