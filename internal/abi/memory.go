//go:build wasip1

package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// MaxPinnedBytes caps the memory the guest keeps pinned for the host.
const MaxPinnedBytes = 64 << 20

// pinned keeps buffers handed to the host reachable until they are freed,
// so the Go collector cannot reclaim memory the host is about to read or
// write.
var pinned = struct {
	bufs  map[uint32][]byte
	total int
	sync.Mutex
}{bufs: make(map[uint32][]byte)}

// allocate is called by the host before it writes a request or response
// into guest memory.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	pinned.Lock()
	defer pinned.Unlock()

	if pinned.total+int(size) > MaxPinnedBytes {
		panic(fmt.Sprintf("abi: pinning %d bytes would exceed %d (pinned: %d)", size, MaxPinnedBytes, pinned.total))
	}
	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0]))) //nolint:gosec // G103/G115: wasm32 linear memory address
	pinned.bufs[ptr] = buf
	pinned.total += int(size)
	return ptr
}

//go:wasmexport deallocate
func deallocate(ptr uint32, _ uint32) {
	free(ptr)
}

func free(ptr uint32) {
	pinned.Lock()
	defer pinned.Unlock()

	buf, ok := pinned.bufs[ptr]
	if !ok {
		return
	}
	delete(pinned.bufs, ptr)
	pinned.total -= len(buf)
}

// Pinned returns the number of bytes currently pinned.
func Pinned() int {
	pinned.Lock()
	defer pinned.Unlock()
	return pinned.total
}

// FreeAll unpins every buffer. Exports call it when a hook returns or
// panics; nothing handed to the host outlives one boundary call.
func FreeAll() {
	pinned.Lock()
	defer pinned.Unlock()
	clear(pinned.bufs)
	pinned.total = 0
}

// Send copies data into pinned memory and returns it packed, ready to be
// passed to a host function or returned from an export.
func Send(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data)) //nolint:gosec // G115: bounded by MaxPinnedBytes
	ptr := allocate(size)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size), data) //nolint:gosec // G103: wasm32 linear memory
	return PackPtrLen(ptr, size)
}

// Receive copies the buffer a packed value points at out of linear memory
// and unpins it.
func Receive(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if length == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length) //nolint:gosec // G103: wasm32 linear memory
	out := make([]byte, length)
	copy(out, src)
	free(ptr)
	return out
}
