package pe

import (
	"sort"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// SectionHeaderSize is the encoded size of one section header.
const SectionHeaderSize = 40

// SectionHeader is one IMAGE_SECTION_HEADER entry.
type SectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

// NameString returns the section name up to the first NUL.
func (h *SectionHeader) NameString() string {
	for i, c := range h.Name {
		if c == 0 {
			return string(h.Name[:i])
		}
	}
	return string(h.Name[:])
}

// SetName stores name, truncated or NUL padded to 8 bytes.
func (h *SectionHeader) SetName(name string) {
	h.Name = [8]byte{}
	copy(h.Name[:], name)
}

// contains reports whether rva lies inside the section's virtual range.
func (h *SectionHeader) contains(rva uint32) bool {
	size := h.VirtualSize
	if h.SizeOfRawData > size {
		size = h.SizeOfRawData
	}
	return rva >= h.VirtualAddress && uint64(rva) < uint64(h.VirtualAddress)+uint64(size)
}

// SectionTable holds the section headers in file order, the raw bytes of
// every section that has them, and the RVA converter.
type SectionTable struct {
	Headers []SectionHeader

	data [][]byte
	gaps [][]byte
	rva  RVAConverter
	end  int
}

// ReadSectionHeader decodes one 40-byte header.
func ReadSectionHeader(r *binio.Reader) (SectionHeader, error) {
	var h SectionHeader
	name, err := r.ReadBytes(len(h.Name))
	if err != nil {
		return h, classify(err, "读取节区名称失败")
	}
	copy(h.Name[:], name)

	f := fieldReader{r: r}
	f.u32(&h.VirtualSize)
	f.u32(&h.VirtualAddress)
	f.u32(&h.SizeOfRawData)
	f.u32(&h.PointerToRawData)
	f.u32(&h.PointerToRelocations)
	f.u32(&h.PointerToLineNumbers)
	f.u16(&h.NumberOfRelocations)
	f.u16(&h.NumberOfLineNumbers)
	f.u32(&h.Characteristics)
	if f.err != nil {
		return h, classify(f.err, "读取节区头 %q 失败", h.NameString())
	}
	return h, nil
}

// WriteSectionHeader encodes h in decode order.
func WriteSectionHeader(w *binio.Writer, h *SectionHeader) {
	w.WriteBytes(h.Name[:])
	w.WriteDoubleWord(h.VirtualSize)
	w.WriteDoubleWord(h.VirtualAddress)
	w.WriteDoubleWord(h.SizeOfRawData)
	w.WriteDoubleWord(h.PointerToRawData)
	w.WriteDoubleWord(h.PointerToRelocations)
	w.WriteDoubleWord(h.PointerToLineNumbers)
	w.WriteWord(h.NumberOfRelocations)
	w.WriteWord(h.NumberOfLineNumbers)
	w.WriteDoubleWord(h.Characteristics)
}

// ReadSections reads count headers at the cursor, loads raw data for every
// section with a nonzero PointerToRawData in ascending pointer order, and
// builds the RVA converter in ascending virtual-address order.
//
// Bytes lying between the end of the header table (or the previous section)
// and a section's raw data are kept as that section's gap. The cursor is
// left wherever the last read ended.
func ReadSections(count int, r *binio.Reader) (*SectionTable, error) {
	t := &SectionTable{
		Headers: make([]SectionHeader, 0, count),
		data:    make([][]byte, count),
		gaps:    make([][]byte, count),
	}
	for i := 0; i < count; i++ {
		h, err := ReadSectionHeader(r)
		if err != nil {
			return nil, classify(err, "读取第 %d 个节区头失败", i)
		}
		t.Headers = append(t.Headers, h)
	}

	prev := r.Position()
	for _, i := range t.byPointer() {
		h := &t.Headers[i]
		ptr := int(h.PointerToRawData)
		if ptr > prev && ptr <= r.Len() {
			if err := r.Seek(prev); err != nil {
				return nil, classify(err, "定位节区 %q 前的填充失败", h.NameString())
			}
			gap, err := r.ReadBytes(ptr - prev)
			if err != nil {
				return nil, classify(err, "读取节区 %q 前的填充失败", h.NameString())
			}
			t.gaps[i] = gap
		}

		if err := r.Seek(ptr); err != nil {
			return nil, classify(err, "定位节区 %q 数据失败", h.NameString())
		}
		data, err := r.ReadBytes(int(h.SizeOfRawData))
		if err != nil {
			return nil, classify(err, "读取节区 %q 数据失败", h.NameString())
		}
		t.data[i] = data
		if end := ptr + len(data); end > prev {
			prev = end
		}
	}
	t.end = prev

	t.rebuildConverter()
	return t, nil
}

// byPointer returns indices of sections with raw data, ordered by ascending
// PointerToRawData. Ties keep header order.
func (t *SectionTable) byPointer() []int {
	var idx []int
	for i := range t.Headers {
		if t.Headers[i].PointerToRawData != 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Headers[idx[a]].PointerToRawData < t.Headers[idx[b]].PointerToRawData
	})
	return idx
}

func (t *SectionTable) rebuildConverter() {
	idx := make([]int, len(t.Headers))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Headers[idx[a]].VirtualAddress < t.Headers[idx[b]].VirtualAddress
	})
	va := make([]uint32, len(idx))
	ptr := make([]uint32, len(idx))
	for n, i := range idx {
		va[n] = t.Headers[i].VirtualAddress
		ptr[n] = t.Headers[i].PointerToRawData
	}
	t.rva = NewRVAConverter(va, ptr)
}

// RVAToOffset converts rva to a file offset.
func (t *SectionTable) RVAToOffset(rva uint32) (uint32, error) {
	return t.rva.Offset(rva)
}

// Converter returns the RVA converter.
func (t *SectionTable) Converter() RVAConverter {
	return t.rva
}

// Section returns the first header named name.
func (t *SectionTable) Section(name string) (SectionHeader, bool) {
	for i := range t.Headers {
		if t.Headers[i].NameString() == name {
			return t.Headers[i], true
		}
	}
	return SectionHeader{}, false
}

// SectionBytes returns the raw bytes of the first section named name that has
// raw data. Sections without raw data (e.g. .bss) are absent.
func (t *SectionTable) SectionBytes(name string) ([]byte, bool) {
	for i := range t.Headers {
		if t.Headers[i].NameString() == name && t.data[i] != nil {
			return t.data[i], true
		}
	}
	return nil, false
}

// Lookup returns the first section named name that has raw data, with its
// bytes.
func (t *SectionTable) Lookup(name string) (SectionHeader, []byte, bool) {
	for i := range t.Headers {
		if t.Headers[i].NameString() == name && t.data[i] != nil {
			return t.Headers[i], t.data[i], true
		}
	}
	return SectionHeader{}, nil, false
}

// Gap returns the bytes preceding section i's raw data that belong to no
// section, or nil.
func (t *SectionTable) Gap(i int) []byte {
	if i < 0 || i >= len(t.gaps) {
		return nil
	}
	return t.gaps[i]
}

// End returns the file offset just past the header table and every loaded
// section.
func (t *SectionTable) End() int {
	return t.end
}

// Data returns the raw bytes of section i, or nil.
func (t *SectionTable) Data(i int) []byte {
	if i < 0 || i >= len(t.data) {
		return nil
	}
	return t.data[i]
}

// SetData replaces the raw bytes of section i. The header's SizeOfRawData is
// left untouched.
func (t *SectionTable) SetData(i int, data []byte) {
	if i >= 0 && i < len(t.data) {
		t.data[i] = data
	}
}

// Add appends a section header with its raw data and rebuilds the RVA
// converter. The COFF section count is the caller's to update.
func (t *SectionTable) Add(h SectionHeader, data []byte) {
	t.Headers = append(t.Headers, h)
	t.data = append(t.data, data)
	t.gaps = append(t.gaps, nil)
	t.rebuildConverter()
}

// SectionFor returns the index of the section whose virtual range holds rva.
func (t *SectionTable) SectionFor(rva uint32) (int, bool) {
	for i := range t.Headers {
		if t.Headers[i].contains(rva) {
			return i, true
		}
	}
	return -1, false
}

// Entropy returns the Shannon entropy of section i's raw bytes.
func (t *SectionTable) Entropy(i int) float64 {
	return CalculateEntropy(t.Data(i))
}

// NewSectionTable returns an empty table for building images by hand.
func NewSectionTable() *SectionTable {
	return &SectionTable{}
}
