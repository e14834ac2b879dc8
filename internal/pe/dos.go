package pe

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// DOSHeaderSize is the encoded size of the MZ header.
const DOSHeaderSize = 64

// DOSMagic is "MZ" read as a little-endian word.
const DOSMagic = 0x5A4D

// DOSHeader is the MS-DOS MZ header at offset 0.
type DOSHeader struct {
	Magic                    uint16
	UsedBytesInLastPage      uint16
	FileSizeInPages          uint16
	NumRelocationItems       uint16
	HeaderSizeInParagraphs   uint16
	MinExtraParagraphs       uint16
	MaxExtraParagraphs       uint16
	InitialSS                uint16
	InitialSP                uint16
	Checksum                 uint16
	InitialIP                uint16
	InitialRelativeCS        uint16
	AddressOfRelocationTable uint16
	OverlayNumber            uint16
	Reserved                 [4]uint16
	OEMID                    uint16
	OEMInfo                  uint16
	Reserved2                [10]uint16
	AddressOfNewExeHeader    uint32

	// StubSize is derived from the page counts, never stored in the file.
	StubSize int
}

// ComputeStubSize returns the DOS program size implied by the header:
// min(pages*512 - (512 - lastPageBytes), e_lfanew) - paragraphs*16.
func (h *DOSHeader) ComputeStubSize() int {
	size := int(h.FileSizeInPages)*512 - (512 - int(h.UsedBytesInLastPage))
	if size > int(h.AddressOfNewExeHeader) {
		size = int(h.AddressOfNewExeHeader)
	}
	return size - int(h.HeaderSizeInParagraphs)*16
}

// ReadDOSHeader decodes the 64-byte MZ header at the cursor.
func ReadDOSHeader(r *binio.Reader) (DOSHeader, error) {
	var h DOSHeader
	fields := []*uint16{
		&h.Magic, &h.UsedBytesInLastPage, &h.FileSizeInPages, &h.NumRelocationItems,
		&h.HeaderSizeInParagraphs, &h.MinExtraParagraphs, &h.MaxExtraParagraphs,
		&h.InitialSS, &h.InitialSP, &h.Checksum, &h.InitialIP, &h.InitialRelativeCS,
		&h.AddressOfRelocationTable, &h.OverlayNumber,
	}
	for i := range h.Reserved {
		fields = append(fields, &h.Reserved[i])
	}
	fields = append(fields, &h.OEMID, &h.OEMInfo)
	for i := range h.Reserved2 {
		fields = append(fields, &h.Reserved2[i])
	}

	var err error
	for _, f := range fields {
		if *f, err = r.ReadWord(); err != nil {
			return h, classify(err, "读取DOS头失败")
		}
	}
	if h.AddressOfNewExeHeader, err = r.ReadDoubleWord(); err != nil {
		return h, classify(err, "读取DOS头失败")
	}

	h.StubSize = h.ComputeStubSize()
	return h, nil
}

// WriteDOSHeader encodes h in decode order. StubSize is not written.
func WriteDOSHeader(w *binio.Writer, h *DOSHeader) {
	for _, v := range []uint16{
		h.Magic, h.UsedBytesInLastPage, h.FileSizeInPages, h.NumRelocationItems,
		h.HeaderSizeInParagraphs, h.MinExtraParagraphs, h.MaxExtraParagraphs,
		h.InitialSS, h.InitialSP, h.Checksum, h.InitialIP, h.InitialRelativeCS,
		h.AddressOfRelocationTable, h.OverlayNumber,
	} {
		w.WriteWord(v)
	}
	for _, v := range h.Reserved {
		w.WriteWord(v)
	}
	w.WriteWord(h.OEMID)
	w.WriteWord(h.OEMInfo)
	for _, v := range h.Reserved2 {
		w.WriteWord(v)
	}
	w.WriteDoubleWord(h.AddressOfNewExeHeader)
}

// ReadDOSStub reads everything from the cursor up to e_lfanew.
func ReadDOSStub(h *DOSHeader, r *binio.Reader) ([]byte, error) {
	n := int(h.AddressOfNewExeHeader) - r.Position()
	if n < 0 {
		return nil, malformed("e_lfanew 0x%X 位于DOS头内部", h.AddressOfNewExeHeader)
	}
	stub, err := r.ReadBytes(n)
	if err != nil {
		return nil, classify(err, "读取DOS存根失败")
	}
	return stub, nil
}
