package pe

import (
	"encoding/binary"
	"sort"
	"testing"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// Layout of the synthetic image built by newTestImage.
const (
	testTextVA  = 0x1000
	testRDataVA = 0x2000
	testRsrcVA  = 0x3000
	testBSSVA   = 0x4000

	testTextPtr  = 0x400
	testRDataPtr = 0x600
	testRsrcPtr  = 0xA00

	testTextSize  = 0x200
	testRDataSize = 0x400
	testRsrcSize  = 0x200

	// .rdata offsets
	testImportOff     = 0x000
	testILT0Off       = 0x100
	testILT1Off       = 0x120
	testIAT0Off       = 0x140
	testIAT1Off       = 0x160
	testDLL0Off       = 0x180
	testDLL1Off       = 0x190
	testHintName0Off  = 0x1A0
	testHintName1Off  = 0x1B0
	testExportOff     = 0x1D0
	testExportNameOff = 0x200
	testEATOff        = 0x210
	testNamePtrOff    = 0x218
	testOrdinalOff    = 0x220
	testFuncAOff      = 0x230
	testFuncBOff      = 0x238
	testDebugOff      = 0x240
	testLoadConfigOff = 0x2A0
)

var (
	testResourceTypes = []uint32{RT_ICON, RT_VERSION}
	testResourceNames = []uint32{1, 2}
	testResourceLangs = []uint32{0x409, 0x804}
)

const testResourceLeaves = 8

var testOverlay = []byte("OVERLAY!")

// le is a zero-filled buffer with little-endian poke helpers.
type le []byte

func (b le) u16(off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }
func (b le) u32(off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }
func (b le) u64(off int, v uint64) { binary.LittleEndian.PutUint64(b[off:], v) }
func (b le) str(off int, s string) { copy(b[off:], s) }

type testSection struct {
	header SectionHeader
	data   []byte
}

// testImage describes a small PE32 image. Tests tweak fields before calling
// bytes.
type testImage struct {
	dos      DOSHeader
	stub     []byte
	coff     COFFHeader
	opt      OptionalHeader
	sections []*testSection
	overlay  []byte
}

func newSectionHeader(name string, va, vsize, ptr, size, chars uint32) SectionHeader {
	h := SectionHeader{
		VirtualAddress:   va,
		VirtualSize:      vsize,
		PointerToRawData: ptr,
		SizeOfRawData:    size,
		Characteristics:  chars,
	}
	h.SetName(name)
	return h
}

func newTestImage() *testImage {
	ti := &testImage{
		dos: DOSHeader{
			Magic:                    DOSMagic,
			UsedBytesInLastPage:      200,
			FileSizeInPages:          3,
			HeaderSizeInParagraphs:   4,
			MaxExtraParagraphs:       0xFFFF,
			InitialSP:                0xB8,
			AddressOfRelocationTable: 0x40,
			AddressOfNewExeHeader:    216,
		},
		coff: COFFHeader{
			Machine:              0x14C,
			TimeDateStamp:        0x5F5E1000,
			SizeOfOptionalHeader: OptionalHeaderSize,
			Characteristics:      0x0102,
		},
		opt: OptionalHeader{
			Magic:                       0x10B,
			MajorLinkerVersion:          14,
			SizeOfCode:                  testTextSize,
			SizeOfInitializedData:       testRDataSize + testRsrcSize,
			SizeOfUninitializedData:     0x100,
			AddressOfEntryPoint:         testTextVA,
			BaseOfCode:                  testTextVA,
			BaseOfData:                  testRDataVA,
			ImageBase:                   0x400000,
			SectionAlignment:            0x1000,
			FileAlignment:               0x200,
			MajorOperatingSystemVersion: 6,
			MajorSubsystemVersion:       6,
			SizeOfImage:                 0x5000,
			SizeOfHeaders:               testTextPtr,
			Subsystem:                   3,
			DllCharacteristics:          0x8140,
			SizeOfStackReserve:          0x100000,
			SizeOfStackCommit:           0x1000,
			SizeOfHeapReserve:           0x100000,
			SizeOfHeapCommit:            0x1000,
			NumberOfRvaAndSizes:         NumDataDirectories,
		},
		overlay: append([]byte(nil), testOverlay...),
	}

	ti.stub = make([]byte, 152)
	copy(ti.stub[14:], "This program cannot be run in DOS mode.\r\r\n$")

	rsrc := buildTestResources(testRsrcVA, testResourceTypes, testResourceNames, testResourceLangs)

	dd := &ti.opt.DataDirectories
	dd[DirExport] = DataDirectory{testRDataVA + testExportOff, exportDirectorySize}
	dd[DirImport] = DataDirectory{testRDataVA + testImportOff, 3 * importDescriptorSize}
	dd[DirResource] = DataDirectory{testRsrcVA, uint32(len(rsrc))}
	dd[DirDebug] = DataDirectory{testRDataVA + testDebugOff, DebugDirectorySize}
	dd[DirLoadConfig] = DataDirectory{testRDataVA + testLoadConfigOff, LoadConfigDirectorySize}
	dd[DirIAT] = DataDirectory{testRDataVA + testIAT0Off, 0x30}

	text := make([]byte, testTextSize)
	copy(text, []byte{0x55, 0x8B, 0xEC, 0x6A, 0x00, 0xFF, 0x15, 0x40, 0x21, 0x40, 0x00, 0x5D, 0xC3})

	rsrcData := make([]byte, testRsrcSize)
	copy(rsrcData, rsrc)

	ti.sections = []*testSection{
		{newSectionHeader(".text", testTextVA, 0x10D, testTextPtr, testTextSize, 0x60000020), text},
		{newSectionHeader(".rdata", testRDataVA, 0x304, testRDataPtr, testRDataSize, 0x40000040), buildTestRData()},
		{newSectionHeader(".rsrc", testRsrcVA, uint32(len(rsrc)), testRsrcPtr, testRsrcSize, 0x40000040), rsrcData},
		{newSectionHeader(".bss", testBSSVA, 0x100, 0, 0, 0xC0000080), nil},
	}
	return ti
}

func (ti *testImage) section(name string) *testSection {
	for _, s := range ti.sections {
		if s.header.NameString() == name {
			return s
		}
	}
	return nil
}

func (ti *testImage) removeSection(name string) {
	for i, s := range ti.sections {
		if s.header.NameString() == name {
			ti.sections = append(ti.sections[:i], ti.sections[i+1:]...)
			return
		}
	}
}

// bytes lays the image out: headers, then each section's data at its raw
// pointer (zero filled in between), then the overlay.
func (ti *testImage) bytes(t *testing.T) []byte {
	t.Helper()
	ti.coff.NumberOfSections = uint16(len(ti.sections))

	w := binio.NewWriter()
	WriteDOSHeader(w, &ti.dos)
	w.WriteBytes(ti.stub)
	w.WriteBytes(PESignature[:])
	WriteCOFFHeader(w, &ti.coff)
	WriteOptionalHeader(w, &ti.opt)
	for _, s := range ti.sections {
		WriteSectionHeader(w, &s.header)
	}
	byPtr := append([]*testSection(nil), ti.sections...)
	sort.SliceStable(byPtr, func(i, j int) bool {
		return byPtr[i].header.PointerToRawData < byPtr[j].header.PointerToRawData
	})
	for _, s := range byPtr {
		if s.header.PointerToRawData == 0 {
			continue
		}
		if err := w.PadTo(int(s.header.PointerToRawData)); err != nil {
			t.Fatalf("layout %s: %v", s.header.NameString(), err)
		}
		w.WriteBytes(s.data)
	}
	w.WriteBytes(ti.overlay)
	return w.Bytes()
}

func buildTestImage(t *testing.T) []byte {
	t.Helper()
	return newTestImage().bytes(t)
}

// buildTestRData returns .rdata holding two import descriptors, an export
// directory, one debug entry and a load config record.
func buildTestRData() []byte {
	b := le(make([]byte, testRDataSize))
	rva := func(off int) uint32 { return uint32(testRDataVA + off) }

	// KERNEL32.dll by name, USER32.dll by ordinal; third descriptor is zero.
	b.u32(testImportOff+0, rva(testILT0Off))
	b.u32(testImportOff+12, rva(testDLL0Off))
	b.u32(testImportOff+16, rva(testIAT0Off))
	b.u32(testImportOff+20, rva(testILT1Off))
	b.u32(testImportOff+20+12, rva(testDLL1Off))
	b.u32(testImportOff+20+16, rva(testIAT1Off))

	for _, off := range []int{testILT0Off, testIAT0Off} {
		b.u32(off, rva(testHintName0Off))
		b.u32(off+4, rva(testHintName1Off))
	}
	for _, off := range []int{testILT1Off, testIAT1Off} {
		b.u32(off, 0x80000007)
	}
	b.str(testDLL0Off, "KERNEL32.dll")
	b.str(testDLL1Off, "USER32.dll")
	b.u16(testHintName0Off, 0x0100)
	b.str(testHintName0Off+2, "ExitProcess")
	b.u16(testHintName1Off, 0x0200)
	b.str(testHintName1Off+2, "GetModuleHandleA")

	b.u32(testExportOff+12, rva(testExportNameOff))
	b.u32(testExportOff+16, 1)
	b.u32(testExportOff+20, 2)
	b.u32(testExportOff+24, 2)
	b.u32(testExportOff+28, rva(testEATOff))
	b.u32(testExportOff+32, rva(testNamePtrOff))
	b.u32(testExportOff+36, rva(testOrdinalOff))
	b.str(testExportNameOff, "test.dll")
	b.u32(testEATOff, testTextVA)
	b.u32(testEATOff+4, testTextVA+0x10)
	b.u32(testNamePtrOff, rva(testFuncAOff))
	b.u32(testNamePtrOff+4, rva(testFuncBOff))
	b.u16(testOrdinalOff, 0)
	b.u16(testOrdinalOff+2, 1)
	b.str(testFuncAOff, "FuncA")
	b.str(testFuncBOff, "FuncB")

	b.u32(testDebugOff+4, 0x5F5E1000)
	b.u32(testDebugOff+12, 2)
	b.u32(testDebugOff+16, 0x20)
	b.u32(testDebugOff+20, rva(0x280))
	b.u32(testDebugOff+24, testRDataPtr+0x280)

	b.u32(testLoadConfigOff, LoadConfigDirectorySize)
	b.u64(testLoadConfigOff+24, 0x1122334455667788)
	b.u32(testLoadConfigOff+88, 0x00403000)
	b.u32(testLoadConfigOff+96, 3)
	return b
}

// buildTestResources lays out an id-only tree with every combination of
// the given type, name and language ids, preceded at the root by one named
// entry that readers must skip. Leaf k holds four bytes: type index, name
// index, language index, 0xAA.
func buildTestResources(base uint32, types, names, langs []uint32) []byte {
	nT, nN, nL := len(types), len(names), len(langs)
	leaves := nT * nN * nL

	rootSize := resourceTableSize + resourcePointerSize*(1+nT)
	typeSize := resourceTableSize + resourcePointerSize*nN
	nameSize := resourceTableSize + resourcePointerSize*nL
	nameBase := rootSize + nT*typeSize
	entryBase := nameBase + nT*nN*nameSize
	dataBase := entryBase + leaves*resourceDataEntrySize

	b := le(make([]byte, dataBase+leaves*4))
	table := func(off, named, ids int) {
		b.u16(off+8, 4)
		b.u16(off+12, uint16(named))
		b.u16(off+14, uint16(ids))
	}

	table(0, 1, nT)
	b.u32(resourceTableSize, subdirectoryFlag|uint32(dataBase))
	b.u32(resourceTableSize+4, subdirectoryFlag|uint32(rootSize))
	for ti, typeID := range types {
		typeOff := rootSize + ti*typeSize
		p := resourceTableSize + resourcePointerSize*(1+ti)
		b.u32(p, typeID)
		b.u32(p+4, subdirectoryFlag|uint32(typeOff))

		table(typeOff, 0, nN)
		for ni, nameID := range names {
			nameOff := nameBase + (ti*nN+ni)*nameSize
			p := typeOff + resourceTableSize + resourcePointerSize*ni
			b.u32(p, nameID)
			b.u32(p+4, subdirectoryFlag|uint32(nameOff))

			table(nameOff, 0, nL)
			for li, langID := range langs {
				k := (ti*nN+ni)*nL + li
				entryOff := entryBase + k*resourceDataEntrySize
				p := nameOff + resourceTableSize + resourcePointerSize*li
				b.u32(p, langID)
				b.u32(p+4, uint32(entryOff))

				dataOff := dataBase + k*4
				b.u32(entryOff, base+uint32(dataOff))
				b.u32(entryOff+4, 4)
				b.u32(entryOff+8, 1252)
				copy(b[dataOff:], []byte{byte(ti), byte(ni), byte(li), 0xAA})
			}
		}
	}
	return b
}
