package pe

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// fieldReader decodes a run of fixed-width fields and keeps the first error,
// so long records read as a flat list of assignments.
type fieldReader struct {
	r   *binio.Reader
	err error
}

func (f *fieldReader) u8(dst *uint8) {
	if f.err == nil {
		*dst, f.err = f.r.ReadByte()
	}
}

func (f *fieldReader) u16(dst *uint16) {
	if f.err == nil {
		*dst, f.err = f.r.ReadWord()
	}
}

func (f *fieldReader) u32(dst *uint32) {
	if f.err == nil {
		*dst, f.err = f.r.ReadDoubleWord()
	}
}

func (f *fieldReader) u64(dst *uint64) {
	if f.err == nil {
		*dst, f.err = f.r.ReadLong()
	}
}
