package pe

// CodeCave represents a usable code cave in a PE file.
type CodeCave struct {
	Section  string // Section name.
	Offset   uint32 // File offset.
	RVA      uint32 // Relative Virtual Address.
	Size     uint32 // Available size in bytes.
	FillByte byte   // Fill pattern (0x00 or 0xCC).
}

// FindCodeCaves scans the raw data of every section for runs of at least
// minSize identical 0x00 or 0xCC bytes.
func (t *SectionTable) FindCodeCaves(minSize uint32) []CodeCave {
	var caves []CodeCave
	for i := range t.Headers {
		caves = append(caves, t.findInSection(i, minSize)...)
	}
	return caves
}

func (t *SectionTable) findInSection(i int, minSize uint32) []CodeCave {
	data := t.Data(i)
	h := &t.Headers[i]

	var caves []CodeCave
	caveStart := -1
	var fillByte byte

	emit := func(end int) {
		if caveStart != -1 && uint32(end-caveStart) >= minSize {
			caves = append(caves, CodeCave{
				Section:  h.NameString(),
				Offset:   h.PointerToRawData + uint32(caveStart),
				RVA:      h.VirtualAddress + uint32(caveStart),
				Size:     uint32(end - caveStart),
				FillByte: fillByte,
			})
		}
	}

	for pos, b := range data {
		switch {
		case b != 0x00 && b != 0xCC:
			emit(pos)
			caveStart = -1
		case caveStart == -1:
			caveStart, fillByte = pos, b
		case b != fillByte:
			// Different fill byte, end previous cave and start a new one.
			emit(pos)
			caveStart, fillByte = pos, b
		}
	}
	emit(len(data))
	return caves
}
