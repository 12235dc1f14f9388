package builder

import (
	"testing"
)

func TestTailBuffer_Write(t *testing.T) {
	t.Run("writes within limit", func(t *testing.T) {
		buf := NewTailBuffer(100)
		n, err := buf.Write([]byte("hello"))
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if n != 5 {
			t.Errorf("Write() = %d, want 5", n)
		}
		if buf.String() != "hello" {
			t.Errorf("String() = %q, want %q", buf.String(), "hello")
		}
		if buf.Truncated {
			t.Error("Truncated should be false")
		}
	})

	t.Run("keeps the tail of a large write", func(t *testing.T) {
		buf := NewTailBuffer(5)
		n, _ := buf.Write([]byte("hello world"))
		if n != 11 {
			t.Errorf("Write() = %d, want 11", n)
		}
		if buf.String() != "world" {
			t.Errorf("String() = %q, want %q", buf.String(), "world")
		}
		if !buf.Truncated {
			t.Error("Truncated should be true")
		}
	})

	t.Run("drops the oldest bytes across writes", func(t *testing.T) {
		buf := NewTailBuffer(8)
		buf.Write([]byte("12345"))
		buf.Write([]byte("67890"))
		if buf.String() != "34567890" {
			t.Errorf("String() = %q, want %q", buf.String(), "34567890")
		}
		if !buf.Truncated {
			t.Error("Truncated should be true")
		}
	})

	t.Run("exact fit is not truncated", func(t *testing.T) {
		buf := NewTailBuffer(5)
		buf.Write([]byte("12"))
		buf.Write([]byte("345"))
		if buf.String() != "12345" {
			t.Errorf("String() = %q, want %q", buf.String(), "12345")
		}
		if buf.Truncated {
			t.Error("Truncated should be false")
		}
	})

	t.Run("zero limit discards", func(t *testing.T) {
		buf := NewTailBuffer(0)
		buf.Write([]byte("x"))
		if buf.Len() != 0 || !buf.Truncated {
			t.Errorf("Len() = %d, Truncated = %v", buf.Len(), buf.Truncated)
		}
	})
}

func TestTailBuffer_Reset(t *testing.T) {
	buf := NewTailBuffer(5)
	buf.Write([]byte("hello world"))
	buf.Reset()

	if buf.Truncated {
		t.Error("Truncated should be false after reset")
	}
	if buf.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after reset", buf.Len())
	}
}
