package pe

import (
	"bytes"
	"encoding/binary"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// AssembleOptions controls Assemble.
type AssembleOptions struct {
	// UpdateChecksum recomputes the optional header CheckSum over the output.
	UpdateChecksum bool
}

// Assemble encodes img back into file bytes: headers in decode order, then
// each section's gap and raw data at its PointerToRawData in ascending pointer
// order, then the overlay. Sections whose raw data overlaps an earlier one
// must agree on the shared bytes. An unmodified decode assembles to the input
// bytes.
func Assemble(img *Image) ([]byte, error) {
	return AssembleWithOptions(img, AssembleOptions{})
}

// AssembleWithOptions is Assemble with options.
func AssembleWithOptions(img *Image, opts AssembleOptions) ([]byte, error) {
	if img.Sections == nil {
		return nil, malformed("镜像缺少节区表")
	}
	t := img.Sections
	if int(img.COFFHeader.NumberOfSections) != len(t.Headers) {
		return nil, malformed("COFF头声明 %d 个节区, 节区表有 %d 个",
			img.COFFHeader.NumberOfSections, len(t.Headers))
	}

	w := binio.NewWriter()
	WriteDOSHeader(w, &img.DOSHeader)
	w.WriteBytes(img.Stub)
	if w.Len() != int(img.DOSHeader.AddressOfNewExeHeader) {
		return nil, malformed("DOS存根结束于 0x%X, e_lfanew 为 0x%X", w.Len(), img.DOSHeader.AddressOfNewExeHeader)
	}

	w.WriteBytes(img.Signature[:])
	WriteCOFFHeader(w, &img.COFFHeader)
	WriteOptionalHeader(w, &img.OptionalHeader)
	for i := range t.Headers {
		WriteSectionHeader(w, &t.Headers[i])
	}

	for _, i := range t.byPointer() {
		h := &t.Headers[i]
		data := t.Data(i)
		ptr := int(h.PointerToRawData)
		if gap := t.Gap(i); len(gap) > 0 && w.Len()+len(gap) == ptr {
			w.WriteBytes(gap)
		}
		if len(data) == 0 {
			continue
		}
		if ptr < w.Len() {
			// Raw data may share file bytes with an earlier section; only
			// identical overlaps can be written back.
			written := w.Bytes()[ptr:]
			if len(written) > len(data) {
				written = written[:len(data)]
			}
			if !bytes.Equal(written, data[:len(written)]) {
				return nil, malformed("节区 %q 与前面的数据重叠且内容不一致 (0x%X < 0x%X)", h.NameString(), ptr, w.Len())
			}
			w.WriteBytes(data[len(written):])
			continue
		}
		if err := w.PadTo(ptr); err != nil {
			return nil, malformed("节区 %q 与前面的数据重叠: %v", h.NameString(), err)
		}
		w.WriteBytes(data)
	}
	w.WriteBytes(img.Overlay)

	out := append([]byte(nil), w.Bytes()...)
	if opts.UpdateChecksum {
		off := int(img.DOSHeader.AddressOfNewExeHeader) + len(PESignature) + COFFHeaderSize + checksumFieldOffset
		if off+4 > len(out) {
			return nil, outOfBounds("校验和字段 0x%X 超出输出", off)
		}
		sum := CalculateChecksum(out, off)
		binary.LittleEndian.PutUint32(out[off:], sum)
		img.OptionalHeader.CheckSum = sum
	}
	return out, nil
}
