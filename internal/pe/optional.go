package pe

import (
	"fmt"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// OptionalHeaderSize is the number of bytes ReadOptionalHeader consumes.
const OptionalHeaderSize = 224

// checksumFieldOffset is the CheckSum offset within the optional header.
const checksumFieldOffset = 64

// NumDataDirectories is the fixed number of data directories.
const NumDataDirectories = 16

// Data directory indices.
const (
	DirExport = iota
	DirImport
	DirResource
	DirException
	DirCertificate
	DirBaseRelocation
	DirDebug
	DirArchitecture
	DirGlobalPtr
	DirTLS
	DirLoadConfig
	DirBoundImport
	DirIAT
	DirDelayImport
	DirCLRRuntimeHeader
	DirReserved
)

var dataDirectoryNames = [NumDataDirectories]string{
	"Export", "Import", "Resource", "Exception", "Certificate",
	"Base Relocation", "Debug", "Architecture", "Global Ptr", "TLS",
	"Load Config", "Bound Import", "IAT", "Delay Import", "CLR", "Reserved",
}

// DataDirectoryName returns the conventional name of directory i.
func DataDirectoryName(i int) string {
	if i < 0 || i >= NumDataDirectories {
		return fmt.Sprintf("Unknown(%d)", i)
	}
	return dataDirectoryNames[i]
}

// DataDirectory is a (virtual address, size) pair.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// OptionalHeader holds the standard and NT-specific fields. Every image is
// decoded with the PE32 field layout.
type OptionalHeader struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	BaseOfData                  uint32
	ImageBase                   uint32
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint32
	SizeOfStackCommit           uint32
	SizeOfHeapReserve           uint32
	SizeOfHeapCommit            uint32
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
	DataDirectories             [NumDataDirectories]DataDirectory

	// Trailing holds bytes declared by SizeOfOptionalHeader beyond the
	// decoded fields.
	Trailing []byte `yaml:"-"`
}

// ImportTable returns the import data directory.
func (o *OptionalHeader) ImportTable() DataDirectory { return o.DataDirectories[DirImport] }

// ResourceTable returns the resource data directory.
func (o *OptionalHeader) ResourceTable() DataDirectory { return o.DataDirectories[DirResource] }

// LoadConfigTable returns the load-config data directory.
func (o *OptionalHeader) LoadConfigTable() DataDirectory { return o.DataDirectories[DirLoadConfig] }

// ReadOptionalHeader decodes the optional header including all 16 data
// directories.
func ReadOptionalHeader(r *binio.Reader) (OptionalHeader, error) {
	var o OptionalHeader
	f := fieldReader{r: r}
	f.u16(&o.Magic)
	f.u8(&o.MajorLinkerVersion)
	f.u8(&o.MinorLinkerVersion)
	f.u32(&o.SizeOfCode)
	f.u32(&o.SizeOfInitializedData)
	f.u32(&o.SizeOfUninitializedData)
	f.u32(&o.AddressOfEntryPoint)
	f.u32(&o.BaseOfCode)
	f.u32(&o.BaseOfData)

	f.u32(&o.ImageBase)
	f.u32(&o.SectionAlignment)
	f.u32(&o.FileAlignment)
	f.u16(&o.MajorOperatingSystemVersion)
	f.u16(&o.MinorOperatingSystemVersion)
	f.u16(&o.MajorImageVersion)
	f.u16(&o.MinorImageVersion)
	f.u16(&o.MajorSubsystemVersion)
	f.u16(&o.MinorSubsystemVersion)
	f.u32(&o.Win32VersionValue)
	f.u32(&o.SizeOfImage)
	f.u32(&o.SizeOfHeaders)
	f.u32(&o.CheckSum)
	f.u16(&o.Subsystem)
	f.u16(&o.DllCharacteristics)
	f.u32(&o.SizeOfStackReserve)
	f.u32(&o.SizeOfStackCommit)
	f.u32(&o.SizeOfHeapReserve)
	f.u32(&o.SizeOfHeapCommit)
	f.u32(&o.LoaderFlags)
	f.u32(&o.NumberOfRvaAndSizes)

	for i := range o.DataDirectories {
		f.u32(&o.DataDirectories[i].VirtualAddress)
		f.u32(&o.DataDirectories[i].Size)
	}
	if f.err != nil {
		return o, classify(f.err, "读取可选头失败")
	}
	return o, nil
}

// WriteOptionalHeader encodes o in decode order followed by Trailing.
func WriteOptionalHeader(w *binio.Writer, o *OptionalHeader) {
	w.WriteWord(o.Magic)
	_ = w.WriteByte(o.MajorLinkerVersion)
	_ = w.WriteByte(o.MinorLinkerVersion)
	for _, v := range []uint32{
		o.SizeOfCode, o.SizeOfInitializedData, o.SizeOfUninitializedData,
		o.AddressOfEntryPoint, o.BaseOfCode, o.BaseOfData,
		o.ImageBase, o.SectionAlignment, o.FileAlignment,
	} {
		w.WriteDoubleWord(v)
	}
	for _, v := range []uint16{
		o.MajorOperatingSystemVersion, o.MinorOperatingSystemVersion,
		o.MajorImageVersion, o.MinorImageVersion,
		o.MajorSubsystemVersion, o.MinorSubsystemVersion,
	} {
		w.WriteWord(v)
	}
	w.WriteDoubleWord(o.Win32VersionValue)
	w.WriteDoubleWord(o.SizeOfImage)
	w.WriteDoubleWord(o.SizeOfHeaders)
	w.WriteDoubleWord(o.CheckSum)
	w.WriteWord(o.Subsystem)
	w.WriteWord(o.DllCharacteristics)
	for _, v := range []uint32{
		o.SizeOfStackReserve, o.SizeOfStackCommit,
		o.SizeOfHeapReserve, o.SizeOfHeapCommit,
		o.LoaderFlags, o.NumberOfRvaAndSizes,
	} {
		w.WriteDoubleWord(v)
	}
	for _, dd := range o.DataDirectories {
		w.WriteDoubleWord(dd.VirtualAddress)
		w.WriteDoubleWord(dd.Size)
	}
	w.WriteBytes(o.Trailing)
}
