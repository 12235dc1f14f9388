package builder

// DefaultTailSize is how much trailing stderr a failed build reports (16KB).
const DefaultTailSize = 16 * 1024

// TailBuffer keeps the last limit bytes written to it. Streamed build
// output is forwarded line by line; only the tail is retained so a failed
// build can quote it without buffering the whole log.
type TailBuffer struct {
	buf       []byte
	limit     int
	Truncated bool
}

// NewTailBuffer creates a TailBuffer holding at most limit bytes.
func NewTailBuffer(limit int) *TailBuffer {
	return &TailBuffer{limit: limit}
}

// Write implements io.Writer. It never fails and always reports len(p).
func (b *TailBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		b.Truncated = b.Truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) >= b.limit {
		b.Truncated = b.Truncated || len(p) > b.limit || len(b.buf) > 0
		b.buf = append(b.buf[:0], p[len(p)-b.limit:]...)
		return len(p), nil
	}
	if overflow := len(b.buf) + len(p) - b.limit; overflow > 0 {
		b.Truncated = true
		b.buf = append(b.buf[:0], b.buf[overflow:]...)
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the retained tail.
func (b *TailBuffer) String() string {
	return string(b.buf)
}

// Len returns the number of retained bytes.
func (b *TailBuffer) Len() int {
	return len(b.buf)
}

// Reset empties the buffer and clears the Truncated flag.
func (b *TailBuffer) Reset() {
	b.buf = b.buf[:0]
	b.Truncated = false
}
