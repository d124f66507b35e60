package hostfuncs

import (
	"bytes"
	"sync"
)

// DefaultMaxOutputSize is how much guest stderr is retained per call (64KB).
const DefaultMaxOutputSize = 64 * 1024

// BoundedBuffer is an io.Writer that keeps at most limit bytes and discards
// the rest. The host points a guest's stderr at one so that the output of a
// call that traps can be attached to the trap error.
type BoundedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	truncated bool
	mu        sync.Mutex
}

// NewBoundedBuffer creates a BoundedBuffer holding at most limit bytes.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	return &BoundedBuffer{limit: limit}
}

// Write implements io.Writer. It never returns a short write: bytes past the
// limit are dropped and the buffer is marked truncated.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - b.buffer.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		b.truncated = true
		b.buffer.Write(p[:remaining])
		return len(p), nil
	}
	return b.buffer.Write(p)
}

// String returns the retained output.
func (b *BoundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// Len returns the number of retained bytes.
func (b *BoundedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Len()
}

// Truncated reports whether any output was dropped since the last Reset.
func (b *BoundedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// Take returns the retained output and resets the buffer.
func (b *BoundedBuffer) Take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buffer.String()
	if b.truncated {
		s += "...(truncated)"
	}
	b.buffer.Reset()
	b.truncated = false
	return s
}

// Reset discards the retained output and clears the truncated flag.
func (b *BoundedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer.Reset()
	b.truncated = false
}
