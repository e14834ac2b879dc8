package pe

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// COFFHeaderSize is the encoded size of the COFF file header.
const COFFHeaderSize = 20

// PESignature is the expected "PE\0\0" marker at e_lfanew.
var PESignature = [4]byte{'P', 'E', 0, 0}

// COFFHeader is the IMAGE_FILE_HEADER following the PE signature.
type COFFHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// ReadSignature reads the 4-byte PE signature.
func ReadSignature(r *binio.Reader) ([4]byte, error) {
	var sig [4]byte
	b, err := r.ReadBytes(len(sig))
	if err != nil {
		return sig, classify(err, "读取PE签名失败")
	}
	copy(sig[:], b)
	return sig, nil
}

// ReadCOFFHeader decodes the 20-byte COFF header.
func ReadCOFFHeader(r *binio.Reader) (COFFHeader, error) {
	var h COFFHeader
	var err error
	if h.Machine, err = r.ReadWord(); err != nil {
		return h, classify(err, "读取COFF头失败")
	}
	if h.NumberOfSections, err = r.ReadWord(); err != nil {
		return h, classify(err, "读取COFF头失败")
	}
	if h.TimeDateStamp, err = r.ReadDoubleWord(); err != nil {
		return h, classify(err, "读取COFF头失败")
	}
	if h.PointerToSymbolTable, err = r.ReadDoubleWord(); err != nil {
		return h, classify(err, "读取COFF头失败")
	}
	if h.NumberOfSymbols, err = r.ReadDoubleWord(); err != nil {
		return h, classify(err, "读取COFF头失败")
	}
	if h.SizeOfOptionalHeader, err = r.ReadWord(); err != nil {
		return h, classify(err, "读取COFF头失败")
	}
	if h.Characteristics, err = r.ReadWord(); err != nil {
		return h, classify(err, "读取COFF头失败")
	}
	return h, nil
}

// WriteCOFFHeader encodes h in decode order.
func WriteCOFFHeader(w *binio.Writer, h *COFFHeader) {
	w.WriteWord(h.Machine)
	w.WriteWord(h.NumberOfSections)
	w.WriteDoubleWord(h.TimeDateStamp)
	w.WriteDoubleWord(h.PointerToSymbolTable)
	w.WriteDoubleWord(h.NumberOfSymbols)
	w.WriteWord(h.SizeOfOptionalHeader)
	w.WriteWord(h.Characteristics)
}
