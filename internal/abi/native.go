//go:build !wasip1

package abi

// NativeBase is the address native builds assign to the first byte of a pinned
// buffer. Native images are never dereferenced through real pointers, so any
// non-zero address with room for a 32-bit image works.
const NativeBase uint32 = 0x10000

// AddressOf returns the address buf is published under.
func AddressOf(buf []byte) uint32 {
	if len(buf) == 0 {
		return 0
	}
	return NativeBase
}

// Pin returns the address buf is published under. Native builds need no
// pinning; the caller's reference keeps buf alive.
func Pin(buf []byte) uint32 {
	return AddressOf(buf)
}

// Unpin is a no-op on native builds.
func Unpin(uint32) {}
