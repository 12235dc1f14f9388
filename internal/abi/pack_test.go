package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
		want   uint64
	}{
		{"empty", 0, 0, 0},
		{"typical", 0x1000, 42, 0x1000<<PtrHighBits | 42},
		{"max", 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFFFFFFFFFF},
		{"pointer without length", 0x10, 0, 0x10 << PtrHighBits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			assert.Equal(t, tt.want, packed)

			ptr, length := UnpackPtrLen(packed)
			assert.Equal(t, tt.ptr, ptr)
			assert.Equal(t, tt.length, length)
		})
	}
}

func TestPackPtrLen_NullPointerPanics(t *testing.T) {
	assert.Panics(t, func() { PackPtrLen(0, 8) })
	assert.Panics(t, func() { UnpackPtrLen(8) })
}

func TestSplit(t *testing.T) {
	ptr, length := Split(0x12345678_9ABCDEF0)
	assert.Equal(t, uint32(0x12345678), ptr)
	assert.Equal(t, uint32(0x9ABCDEF0), length)

	assert.NotPanics(t, func() {
		ptr, length = Split(8)
	})
	assert.Zero(t, ptr)
	assert.Equal(t, uint32(8), length)
}
