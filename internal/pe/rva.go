package pe

import (
	"sort"
)

// RVAConverter translates relative virtual addresses into file offsets using
// two parallel arrays sorted by ascending virtual address.
type RVAConverter struct {
	virtualAddresses []uint32
	pointers         []uint32
}

// NewRVAConverter builds a converter. Both slices must have the same length
// and virtualAddresses must be ascending.
func NewRVAConverter(virtualAddresses, pointers []uint32) RVAConverter {
	return RVAConverter{
		virtualAddresses: append([]uint32(nil), virtualAddresses...),
		pointers:         append([]uint32(nil), pointers...),
	}
}

// Offset returns the file offset of rva: the raw pointer of the section with
// the greatest virtual address <= rva, plus the distance into that section.
func (c RVAConverter) Offset(rva uint32) (uint32, error) {
	// First index whose address is > rva; the owning section is the one before it.
	i := sort.Search(len(c.virtualAddresses), func(i int) bool {
		return c.virtualAddresses[i] > rva
	}) - 1
	if i < 0 {
		return 0, outOfBounds("RVA 0x%X 位于第一个节区之前", rva)
	}
	return c.pointers[i] + (rva - c.virtualAddresses[i]), nil
}

// Len returns the number of sections known to the converter.
func (c RVAConverter) Len() int {
	return len(c.virtualAddresses)
}
