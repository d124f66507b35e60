package host

import "fmt"

// State is the lifecycle state of a loaded module.
type State int32

const (
	// Unloaded modules cannot be called. Every module ends here.
	Unloaded State = iota
	// Loading covers descriptor checks and the load hook.
	Loading
	// Loaded modules accept calls.
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
