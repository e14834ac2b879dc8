package pe

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

const (
	importDescriptorSize = 20

	// ordinalFlag marks a lookup-table value that imports by ordinal.
	ordinalFlag = 0x80000000
)

// ImportDirectory is the ordered list of imported modules.
type ImportDirectory struct {
	Entries []ImportDirectoryEntry
}

// ImportDirectoryEntry is one IMAGE_IMPORT_DESCRIPTOR plus its resolved
// module name and lookup table. The import address table is only recorded
// by RVA; its contents are not resolved.
type ImportDirectoryEntry struct {
	ImportLookupTableRVA  uint32
	TimeDateStamp         uint32
	ForwarderChain        uint32
	NameRVA               uint32
	ImportAddressTableRVA uint32

	Name    string
	Imports []ImportEntry
}

// ImportEntry is one lookup-table value, resolved to either an ordinal or a
// hint/name pair.
type ImportEntry struct {
	Value   uint32
	Ordinal uint32
	Hint    uint16
	Name    string
}

// ByOrdinal reports whether the entry imports by ordinal.
func (e *ImportEntry) ByOrdinal() bool {
	return e.Value&ordinalFlag != 0
}

// sectionReader resolves RVAs against the raw bytes of a single section.
type sectionReader struct {
	r    *binio.Reader
	base uint32
}

// ReadImportDirectory decodes the import descriptors starting at importVA.
// rdata holds the raw bytes of the section whose virtual address is rdataVA;
// every RVA met while decoding is resolved relative to it.
func ReadImportDirectory(rdata []byte, rdataVA, importVA uint32) (*ImportDirectory, error) {
	sr := &sectionReader{r: binio.NewReader(rdata), base: rdataVA}
	if err := sr.seek(importVA); err != nil {
		return nil, classify(err, "定位导入目录失败")
	}

	dir := &ImportDirectory{}
	for {
		e, err := sr.readDescriptor()
		if err != nil {
			return nil, classify(err, "读取第 %d 个导入描述符失败", len(dir.Entries))
		}
		// Zero lookup table marks the terminator.
		if e.ImportLookupTableRVA == 0 {
			break
		}
		dir.Entries = append(dir.Entries, e)
	}

	for i := range dir.Entries {
		e := &dir.Entries[i]
		if err := sr.seek(e.NameRVA); err != nil {
			return nil, classify(err, "定位导入模块名称失败")
		}
		name, err := sr.r.ReadNullTerminatedString()
		if err != nil {
			return nil, classify(err, "读取导入模块名称失败")
		}
		e.Name = name

		if err := sr.seek(e.ImportLookupTableRVA); err != nil {
			return nil, classify(err, "定位 %s 的导入查找表失败", e.Name)
		}
		imports, err := sr.readLookupTable()
		if err != nil {
			return nil, classify(err, "读取 %s 的导入查找表失败", e.Name)
		}
		e.Imports = imports
	}

	return dir, nil
}

func (sr *sectionReader) readDescriptor() (ImportDirectoryEntry, error) {
	var e ImportDirectoryEntry
	f := fieldReader{r: sr.r}
	f.u32(&e.ImportLookupTableRVA)
	f.u32(&e.TimeDateStamp)
	f.u32(&e.ForwarderChain)
	f.u32(&e.NameRVA)
	f.u32(&e.ImportAddressTableRVA)
	return e, f.err
}

// readLookupTable reads 4-byte values until a zero terminator, then resolves
// each value to an ordinal or a hint/name pair.
func (sr *sectionReader) readLookupTable() ([]ImportEntry, error) {
	var entries []ImportEntry
	for {
		v, err := sr.r.ReadDoubleWord()
		if err != nil {
			return nil, err
		}
		if v == 0 {
			break
		}
		entries = append(entries, ImportEntry{Value: v})
	}

	for i := range entries {
		e := &entries[i]
		if e.ByOrdinal() {
			e.Ordinal = e.Value &^ ordinalFlag
			continue
		}
		if err := sr.seek(e.Value); err != nil {
			return nil, err
		}
		hint, err := sr.r.ReadWord()
		if err != nil {
			return nil, err
		}
		name, err := sr.r.ReadNullTerminatedString()
		if err != nil {
			return nil, err
		}
		e.Hint = hint
		e.Name = name
	}
	return entries, nil
}

func (sr *sectionReader) seek(rva uint32) error {
	if rva < sr.base || int64(rva-sr.base) >= int64(sr.r.Len()) {
		return outOfBounds("RVA 0x%X 不在节区 [0x%X, 0x%X) 内", rva, sr.base, int64(sr.base)+int64(sr.r.Len()))
	}
	return sr.r.Seek(int(rva - sr.base))
}
