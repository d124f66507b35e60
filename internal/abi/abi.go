//go:build wasip1

package abi

import (
	"sync"
	"unsafe"
)

// DefaultMaxTotalAllocations is the default ceiling on bytes handed out by allocate.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// Option configures the memory manager.
type Option func(*config)

type config struct {
	maxTotalAllocations int
}

// WithMaxTotalAllocations sets the allocation ceiling. Non-positive values are ignored.
func WithMaxTotalAllocations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTotalAllocations = n
		}
	}
}

// memoryManager keeps a reference to every buffer handed to the host so the Go
// GC does not reclaim it while the host still holds its address.
var memoryManager = struct {
	sync.Mutex
	ptrs           map[uint32][]byte // ptr -> slice reference
	totalAllocated int
	limit          int
}{
	ptrs:  make(map[uint32][]byte),
	limit: DefaultMaxTotalAllocations,
}

// Configure applies opts to the memory manager.
func Configure(opts ...Option) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	c := config{maxTotalAllocations: memoryManager.limit}
	for _, opt := range opts {
		opt(&c)
	}
	memoryManager.limit = c.maxTotalAllocations
}

// Stats returns the number of tracked buffers and their total size.
func Stats() (allocations, bytes int) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return len(memoryManager.ptrs), memoryManager.totalAllocated
}

// allocate reserves memory in linear memory and returns its address, or 0 when
// size is zero or the allocation would exceed the configured limit. The host
// treats 0 as an allocation failure.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return pin(make([]byte, size))
}

// deallocate releases a buffer obtained from allocate. Unknown pointers are ignored.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, _ uint32) {
	Unpin(ptr)
}

func pin(buf []byte) uint32 {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.totalAllocated+len(buf) > memoryManager.limit {
		return 0
	}
	ptr := AddressOf(buf)
	memoryManager.ptrs[ptr] = buf
	memoryManager.totalAllocated += len(buf)
	return ptr
}

// Pin keeps buf alive until Unpin and returns its address, or 0 when the
// allocation limit would be exceeded.
func Pin(buf []byte) uint32 {
	if len(buf) == 0 {
		return 0
	}
	return pin(buf)
}

// Unpin releases a buffer pinned by Pin or allocate. The stored length is used
// for accounting, not a caller-supplied size.
func Unpin(ptr uint32) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	buf, ok := memoryManager.ptrs[ptr]
	if !ok {
		return
	}
	delete(memoryManager.ptrs, ptr)
	memoryManager.totalAllocated -= len(buf)
	if memoryManager.totalAllocated < 0 {
		memoryManager.totalAllocated = 0
	}
}

// FreeAllTracked drops every pinned buffer.
func FreeAllTracked() {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	clear(memoryManager.ptrs)
	memoryManager.totalAllocated = 0
}

// AddressOf returns the linear memory address of buf's first byte.
func AddressOf(buf []byte) uint32 {
	if len(buf) == 0 {
		return 0
	}
	//nolint:gosec // G103: wasm32 pointers fit in uint32
	return uint32(uintptr(unsafe.Pointer(&buf[0])))
}

// PtrFromBytes copies data into a pinned buffer and returns the packed
// pointer and length. It returns 0 for empty data or when allocation fails.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	ptr := pin(buf)
	if ptr == 0 {
		return 0
	}
	return PackPtrLen(ptr, uint32(len(buf))) //nolint:gosec // G115: bounded by wasm32 memory
}

// BytesFromPtr copies the region described by packed out of linear memory.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	return readFromMemory(ptr, length)
}

// DeallocatePacked releases the buffer behind a packed pointer.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		Unpin(ptr)
	}
}

// ReadTerms reads argc terms from the vector at argv.
func ReadTerms(argc, argv uint32) ([]uint64, error) {
	if argc == 0 {
		return nil, nil
	}
	return DecodeTerms(readFromMemory(argv, argc*TermSize), int(argc))
}

func readFromMemory(ptr uint32, length uint32) []byte {
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	data := make([]byte, length)
	copy(data, src)
	return data
}

func copyToMemory(ptr uint32, data []byte) {
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	dest := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), len(data))
	copy(dest, data)
}
