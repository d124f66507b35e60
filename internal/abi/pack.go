// Package abi provides the low-level memory contract between guest and host:
// packed pointer/length values, term vectors in linear memory, and (on wasip1)
// the allocator the host uses to hand data to the guest.
package abi

import (
	"encoding/binary"
	"fmt"
)

// PtrHighBits is the shift of the pointer half of a packed value.
const PtrHighBits = 32

// TermSize is the width of one term in a term vector.
const TermSize = 8

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits)
	length = uint32(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}

// EncodeTerms lays out terms as consecutive little-endian uint64 words.
func EncodeTerms(terms []uint64) []byte {
	buf := make([]byte, len(terms)*TermSize)
	for i, t := range terms {
		binary.LittleEndian.PutUint64(buf[i*TermSize:], t)
	}
	return buf
}

// DecodeTerms reads argc terms from buf.
func DecodeTerms(buf []byte, argc int) ([]uint64, error) {
	if argc < 0 {
		return nil, fmt.Errorf("abi: negative term count %d", argc)
	}
	if len(buf) < argc*TermSize {
		return nil, fmt.Errorf("abi: term vector of %d bytes is too short for %d terms", len(buf), argc)
	}
	terms := make([]uint64, argc)
	for i := range terms {
		terms[i] = binary.LittleEndian.Uint64(buf[i*TermSize:])
	}
	return terms, nil
}
