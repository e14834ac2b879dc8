package binio

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Writer appends little-endian fields to a growing buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the written bytes. The slice aliases the internal buffer
// until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteByte appends one byte. The error is always nil.
func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

// WriteWord appends a little-endian uint16.
func (w *Writer) WriteWord(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteDoubleWord appends a little-endian uint32.
func (w *Writer) WriteDoubleWord(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteLong appends a little-endian uint64.
func (w *Writer) WriteLong(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteBytes appends b verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// WriteFixedString writes s into an n-byte field, NUL padded. s is
// truncated when longer than n.
func (w *Writer) WriteFixedString(s string, n int) {
	field := make([]byte, n)
	copy(field, s)
	w.buf.Write(field)
}

// WriteNullTerminatedString writes s followed by a NUL.
func (w *Writer) WriteNullTerminatedString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// PadTo appends zero bytes until Len() == offset.
func (w *Writer) PadTo(offset int) error {
	if offset < w.buf.Len() {
		return errors.Errorf("无法回退填充: 当前 0x%X, 目标 0x%X", w.buf.Len(), offset)
	}
	w.buf.Write(make([]byte, offset-w.buf.Len()))
	return nil
}
