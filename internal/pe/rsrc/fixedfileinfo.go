package rsrc

import (
	"fmt"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// FixedFileInfoSize is the encoded size of VS_FIXEDFILEINFO.
const FixedFileInfoSize = 52

// FixedFileInfoSignature is the expected value of FixedFileInfo.Signature.
const FixedFileInfoSignature = 0xFEEF04BD

// FixedFileInfo is the VS_FIXEDFILEINFO block of a version resource.
type FixedFileInfo struct {
	Signature        uint32
	StrucVersion     uint32
	FileVersionMS    uint32
	FileVersionLS    uint32
	ProductVersionMS uint32
	ProductVersionLS uint32
	FileFlagsMask    uint32
	FileFlags        uint32
	FileOS           uint32
	FileType         uint32
	FileSubtype      uint32
	FileDateMS       uint32
	FileDateLS       uint32
}

func (f *FixedFileInfo) fields() []*uint32 {
	return []*uint32{
		&f.Signature, &f.StrucVersion,
		&f.FileVersionMS, &f.FileVersionLS,
		&f.ProductVersionMS, &f.ProductVersionLS,
		&f.FileFlagsMask, &f.FileFlags,
		&f.FileOS, &f.FileType, &f.FileSubtype,
		&f.FileDateMS, &f.FileDateLS,
	}
}

// ReadFixedFileInfo decodes the 13 dwords at the cursor. The signature is
// not checked.
func ReadFixedFileInfo(r *binio.Reader) (FixedFileInfo, error) {
	var f FixedFileInfo
	for _, dst := range f.fields() {
		v, err := r.ReadDoubleWord()
		if err != nil {
			return f, wrap(err, "读取VS_FIXEDFILEINFO失败")
		}
		*dst = v
	}
	return f, nil
}

// WriteFixedFileInfo encodes f in decode order.
func WriteFixedFileInfo(w *binio.Writer, f *FixedFileInfo) {
	for _, v := range f.fields() {
		w.WriteDoubleWord(*v)
	}
}

// FileVersion formats the file version as a.b.c.d.
func (f *FixedFileInfo) FileVersion() string {
	return formatVersion(f.FileVersionMS, f.FileVersionLS)
}

// ProductVersion formats the product version as a.b.c.d.
func (f *FixedFileInfo) ProductVersion() string {
	return formatVersion(f.ProductVersionMS, f.ProductVersionLS)
}

func formatVersion(ms, ls uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", ms>>16, ms&0xFFFF, ls>>16, ls&0xFFFF)
}
