package cli

import (
	"os"
	"testing"

	"github.com/fatih/color"

	"github.com/ZacharyZcR/pecoff/internal/pe"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// newReportImage builds a small image by hand with one executable section
// and decoded import, export, load-config and debug directories.
func newReportImage() *pe.Image {
	img := &pe.Image{
		DOSHeader: pe.DOSHeader{
			Magic:                 pe.DOSMagic,
			AddressOfNewExeHeader: pe.DOSHeaderSize,
		},
		Signature: pe.PESignature,
		COFFHeader: pe.COFFHeader{
			Machine:              0x14C,
			NumberOfSections:     1,
			TimeDateStamp:        0x5F5E1000,
			SizeOfOptionalHeader: pe.OptionalHeaderSize,
			Characteristics:      0x102,
		},
		OptionalHeader: pe.OptionalHeader{
			Magic:               0x10B,
			AddressOfEntryPoint: 0x1010,
			ImageBase:           0x400000,
			SectionAlignment:    0x1000,
			FileAlignment:       0x200,
			SizeOfImage:         0x2000,
			SizeOfHeaders:       0x200,
			Subsystem:           3,
			NumberOfRvaAndSizes: pe.NumDataDirectories,
		},
		Sections: pe.NewSectionTable(),
	}
	img.OptionalHeader.DataDirectories[pe.DirImport] = pe.DataDirectory{VirtualAddress: 0x1100, Size: 0x28}

	var h pe.SectionHeader
	h.SetName(".text")
	h.VirtualAddress = 0x1000
	h.VirtualSize = 0x200
	h.SizeOfRawData = 0x200
	h.PointerToRawData = 0x200
	h.Characteristics = 0x60000020
	data := make([]byte, 0x200)
	for i := 0; i < 0x80; i++ {
		data[i] = byte(i)
	}
	img.Sections.Add(h, data)

	img.Imports = &pe.ImportDirectory{Entries: []pe.ImportDirectoryEntry{{
		Name: "KERNEL32.dll",
		Imports: []pe.ImportEntry{
			{Name: "ExitProcess"},
			{Name: "GetModuleHandleA"},
			{Name: "GetProcAddress"},
			{Value: 0x80000007, Ordinal: 7},
		},
	}}}
	img.Exports = &pe.ExportDirectory{Name: "demo.dll", Names: []string{"FuncA", "FuncB", "FuncC"}}
	img.LoadConfig = &pe.LoadConfigDirectory{Characteristics: 100, SecurityCookie: 0x403000, SEHandlerCount: 3}
	img.Debug = []pe.DebugDirectory{{Type: 2, SizeOfData: 0x20, AddressOfRawData: 0x1180}}
	return img
}
