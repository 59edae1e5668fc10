package metadata

import (
	"strconv"
)

// Buffer is a fixed-capacity text builder.
//
// Every append is checked before it is written. An append that does not fit
// is dropped whole and counted; later appends are still attempted. The check
// keeps one byte for the terminator a C consumer expects, and a further byte
// of slack, so text never grows past capacity-2 bytes.
type Buffer struct {
	buf       []byte
	scratch   []byte
	section   string
	firstDrop string
	capacity  int
	dropped   int
	attempted int
}

// NewBuffer creates a buffer holding at most capacity-2 bytes of text.
func NewBuffer(capacity int) *Buffer {
	n := capacity
	if n < 0 {
		n = 0
	}
	return &Buffer{
		buf:      make([]byte, 0, n),
		scratch:  make([]byte, 0, 32),
		capacity: capacity,
	}
}

// Append adds s if it fits and reports whether it did.
func (b *Buffer) Append(s string) bool {
	b.attempted += len(s)
	if len(b.buf)+len(s) < b.capacity-1 {
		b.buf = append(b.buf, s...)
		return true
	}
	b.drop()
	return false
}

func (b *Buffer) appendBytes(p []byte) bool {
	b.attempted += len(p)
	if len(b.buf)+len(p) < b.capacity-1 {
		b.buf = append(b.buf, p...)
		return true
	}
	b.drop()
	return false
}

func (b *Buffer) drop() {
	if b.dropped == 0 {
		b.firstDrop = b.section
	}
	b.dropped++
}

// AppendInt appends v in base 10 as a single append.
func (b *Buffer) AppendInt(v int64) bool {
	b.scratch = strconv.AppendInt(b.scratch[:0], v, 10)
	return b.appendBytes(b.scratch)
}

// Enter labels subsequent appends for overflow reporting.
func (b *Buffer) Enter(section string) {
	b.section = section
}

// Bytes returns the text written so far. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Dropped returns the number of appends that did not fit.
func (b *Buffer) Dropped() int {
	return b.dropped
}

// Attempted returns the total bytes offered, written or not.
func (b *Buffer) Attempted() int {
	return b.attempted
}

// FirstDrop names the section being written when the first append was dropped.
func (b *Buffer) FirstDrop() string {
	return b.firstDrop
}
