package source

import (
	"errors"
	"fmt"
)

var (
	// ErrRange is returned when an edit falls outside the buffer.
	ErrRange = errors.New("range out of bounds")
	// ErrOverlap reports edit ranges that are unordered or overlap.
	ErrOverlap = errors.New("edit ranges overlap or are out of order")
)

// Edit replaces [Start, End) of a buffer with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Buffer is the live, mutable text of one document. Fixes are applied to
// a Buffer; it is not safe for concurrent mutation.
type Buffer struct {
	data []byte
}

// NewBuffer copies content into a new Buffer.
func NewBuffer(content []byte) *Buffer {
	return &Buffer{data: append([]byte(nil), content...)}
}

// BufferFromFile returns a Buffer holding a copy of the file content.
func BufferFromFile(f *File) *Buffer {
	return NewBuffer(f.Content)
}

// Text returns the full text of the buffer.
func (b *Buffer) Text() string {
	return string(b.data)
}

// Bytes returns a copy of the buffer content.
func (b *Buffer) Bytes() []byte {
	return append([]byte(nil), b.data...)
}

func (b *Buffer) Len() int {
	return len(b.data)
}

// Slice returns the text in [start, end).
func (b *Buffer) Slice(start, end int) (string, error) {
	if err := b.check(start, end); err != nil {
		return "", err
	}
	return string(b.data[start:end]), nil
}

// Replace substitutes the bytes in [start, end) with text.
func (b *Buffer) Replace(start, end int, text string) error {
	if err := b.check(start, end); err != nil {
		return err
	}
	out := make([]byte, 0, len(b.data)-(end-start)+len(text))
	out = append(out, b.data[:start]...)
	out = append(out, text...)
	out = append(out, b.data[end:]...)
	b.data = out
	return nil
}

// ApplyEdits applies edits given in the coordinates of the unmodified
// buffer. They must be ascending and non-overlapping and are applied left to
// right, each shifted by the length change of the edits before it. Invalid
// edits return an error without touching the buffer.
func (b *Buffer) ApplyEdits(edits []Edit) error {
	prevEnd := 0
	for i, e := range edits {
		if err := b.check(e.Start, e.End); err != nil {
			return fmt.Errorf("edit %d: %w", i, err)
		}
		if e.Start < prevEnd {
			return fmt.Errorf("edit %d: %w", i, ErrOverlap)
		}
		prevEnd = e.End
	}

	displacement := 0
	for i, e := range edits {
		if err := b.Replace(e.Start+displacement, e.End+displacement, e.Text); err != nil {
			return fmt.Errorf("edit %d: %w", i, err)
		}
		displacement += len(e.Text) - (e.End - e.Start)
	}
	return nil
}

// Insert places text at off.
func (b *Buffer) Insert(off int, text string) error {
	return b.Replace(off, off, text)
}

func (b *Buffer) check(start, end int) error {
	if start < 0 || end < start || end > len(b.data) {
		return fmt.Errorf("%w: [%d, %d) in buffer of %d bytes", ErrRange, start, end, len(b.data))
	}
	return nil
}
