// Package binio provides little-endian random-access reading and sequential
// writing over in-memory byte buffers.
package binio

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrUnexpectedEOF is returned when the buffer ends before a fixed-width field.
var ErrUnexpectedEOF = io.ErrUnexpectedEOF

// ErrSeekOutOfRange is returned when a seek target lies outside the buffer.
var ErrSeekOutOfRange = errors.New("seek out of range")

// Reader is a cursor over a byte slice. It never copies the underlying
// buffer; ReadBytes returns copies so callers may keep them after the
// buffer goes away (e.g. an unmapped file).
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader positioned at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total buffer length.
func (r *Reader) Len() int {
	return len(r.data)
}

// Position returns the current absolute offset.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of bytes left after the cursor.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Seek moves the cursor to an absolute offset. Seeking to Len() is allowed
// and leaves the reader exhausted.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return errors.Wrapf(ErrSeekOutOfRange, "偏移 0x%X 超出范围 [0, 0x%X]", pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	return r.Seek(r.pos + n)
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, errors.Wrapf(ErrUnexpectedEOF, "在 0x%X 处需要 %d 字节, 剩余 %d", r.pos, n, r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads one byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadWord reads a little-endian uint16.
func (r *Reader) ReadWord() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadDoubleWord reads a little-endian uint32.
func (r *Reader) ReadDoubleWord() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadLong reads a little-endian uint64.
func (r *Reader) ReadLong() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadFixedString reads n bytes and returns them up to the first NUL.
func (r *Reader) ReadFixedString(n int) (string, error) {
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// ReadNullTerminatedString reads bytes up to and including a NUL terminator
// and returns them without it.
func (r *Reader) ReadNullTerminatedString() (string, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", errors.Wrapf(ErrUnexpectedEOF, "从 0x%X 开始的字符串缺少终止符", r.pos)
}
