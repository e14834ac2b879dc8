package pe

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// DebugDirectorySize is the encoded size of one debug directory entry.
const DebugDirectorySize = 28

// DebugDirectory is one IMAGE_DEBUG_DIRECTORY entry. The debug data it
// points to is not interpreted.
type DebugDirectory struct {
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	Type             uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32
}

// ReadDebugDirectories decodes size/28 entries at debugVA from the bytes of
// the section at sectionVA.
func ReadDebugDirectories(section []byte, sectionVA, debugVA, size uint32) ([]DebugDirectory, error) {
	sr := &sectionReader{r: binio.NewReader(section), base: sectionVA}
	if err := sr.seek(debugVA); err != nil {
		return nil, classify(err, "定位调试目录失败")
	}

	count := int(size / DebugDirectorySize)
	if count*DebugDirectorySize > sr.r.Remaining() {
		return nil, outOfBounds("调试目录 (%d 项) 超出节区", count)
	}
	out := make([]DebugDirectory, count)
	f := fieldReader{r: sr.r}
	for i := range out {
		d := &out[i]
		f.u32(&d.Characteristics)
		f.u32(&d.TimeDateStamp)
		f.u16(&d.MajorVersion)
		f.u16(&d.MinorVersion)
		f.u32(&d.Type)
		f.u32(&d.SizeOfData)
		f.u32(&d.AddressOfRawData)
		f.u32(&d.PointerToRawData)
	}
	if f.err != nil {
		return nil, classify(f.err, "读取调试目录失败")
	}
	return out, nil
}
