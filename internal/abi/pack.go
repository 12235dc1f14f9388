// Package abi holds the devkit plugin ABI. Buffers cross the boundary as a
// single i64 holding a linear-memory pointer in the high 32 bits and a byte
// length in the low 32 bits. The packing helpers are shared by host and
// guest; the allocator in memory.go is compiled into guests only.
package abi

import "fmt"

// PtrHighBits is the shift of the pointer inside a packed value.
const PtrHighBits = 32

// PackPtrLen packs a pointer and length into one i64. A null pointer with
// a non-zero length is a programming error and panics.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with length %d", length))
	}
	return uint64(ptr)<<PtrHighBits | uint64(length)
}

// UnpackPtrLen splits a packed value. Zero unpacks to (0, 0), the empty
// buffer.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: high half of the packed value
	length = uint32(packed)             //nolint:gosec // G115: low half of the packed value
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with length %d", length))
	}
	return ptr, length
}

// Split unpacks without validating. The host uses it on values returned by
// a guest and bounds-checks the result against guest memory itself.
func Split(packed uint64) (ptr, length uint32) {
	return uint32(packed >> PtrHighBits), uint32(packed) //nolint:gosec // G115: halves of the packed value
}
