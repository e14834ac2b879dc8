package pe

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

const exportDirectorySize = 40

// maxExportNames bounds the name-pointer walk on hostile input.
const maxExportNames = 1 << 16

// ExportDirectory is the export directory table with the DLL name and the
// named exports resolved. Names whose RVA falls outside the section holding
// the directory are skipped.
type ExportDirectory struct {
	ExportFlags           uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	NameRVA               uint32
	OrdinalBase           uint32
	AddressTableEntries   uint32
	NumberOfNamePointers  uint32
	ExportAddressTableRVA uint32
	NamePointerRVA        uint32
	OrdinalTableRVA       uint32

	Name  string
	Names []string
}

// ReadExportDirectory decodes the export directory at exportVA from the bytes
// of the section at sectionVA.
func ReadExportDirectory(section []byte, sectionVA, exportVA uint32) (*ExportDirectory, error) {
	sr := &sectionReader{r: binio.NewReader(section), base: sectionVA}
	if err := sr.seek(exportVA); err != nil {
		return nil, classify(err, "定位导出目录失败")
	}

	ed := &ExportDirectory{}
	f := fieldReader{r: sr.r}
	f.u32(&ed.ExportFlags)
	f.u32(&ed.TimeDateStamp)
	f.u16(&ed.MajorVersion)
	f.u16(&ed.MinorVersion)
	f.u32(&ed.NameRVA)
	f.u32(&ed.OrdinalBase)
	f.u32(&ed.AddressTableEntries)
	f.u32(&ed.NumberOfNamePointers)
	f.u32(&ed.ExportAddressTableRVA)
	f.u32(&ed.NamePointerRVA)
	f.u32(&ed.OrdinalTableRVA)
	if f.err != nil {
		return nil, classify(f.err, "读取导出目录失败")
	}

	if sr.seek(ed.NameRVA) == nil {
		if name, err := sr.r.ReadNullTerminatedString(); err == nil {
			ed.Name = name
		}
	}

	count := ed.NumberOfNamePointers
	if count > maxExportNames {
		return nil, malformed("导出名称数量异常: %d", count)
	}
	if count == 0 {
		return ed, nil
	}
	if err := sr.seek(ed.NamePointerRVA); err != nil {
		return nil, classify(err, "定位导出名称指针失败")
	}
	pointers := make([]uint32, count)
	for i := range pointers {
		f.u32(&pointers[i])
	}
	if f.err != nil {
		return nil, classify(f.err, "读取导出名称指针失败")
	}

	for _, rva := range pointers {
		if sr.seek(rva) != nil {
			continue
		}
		name, err := sr.r.ReadNullTerminatedString()
		if err != nil {
			continue
		}
		ed.Names = append(ed.Names, name)
	}
	return ed, nil
}
