package pe

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// LoadConfigDirectorySize is the encoded size of LoadConfigDirectory.
const LoadConfigDirectorySize = 100

// LoadConfigDirectory is the load configuration record. The pointer-width
// fields are always decoded as 64-bit values, whatever the image bitness.
type LoadConfigDirectory struct {
	Characteristics               uint32
	TimeDateStamp                 uint32
	MajorVersion                  uint16
	MinorVersion                  uint16
	GlobalFlagsClear              uint32
	GlobalFlagsSet                uint32
	CriticalSectionDefaultTimeout uint32
	DeCommitFreeBlockThreshold    uint64
	DeCommitTotalFreeThreshold    uint64
	LockPrefixTable               uint64
	MaximumAllocationSize         uint64
	VirtualMemoryThreshold        uint64
	ProcessAffinityMask           uint64
	ProcessHeapFlags              uint32
	CSDVersion                    uint16
	Reserved                      uint16
	EditList                      uint64
	SecurityCookie                uint32
	SEHandlerTable                uint32
	SEHandlerCount                uint32
}

// ReadLoadConfigDirectory decodes the record at the cursor.
func ReadLoadConfigDirectory(r *binio.Reader) (LoadConfigDirectory, error) {
	var lc LoadConfigDirectory
	f := fieldReader{r: r}
	f.u32(&lc.Characteristics)
	f.u32(&lc.TimeDateStamp)
	f.u16(&lc.MajorVersion)
	f.u16(&lc.MinorVersion)
	f.u32(&lc.GlobalFlagsClear)
	f.u32(&lc.GlobalFlagsSet)
	f.u32(&lc.CriticalSectionDefaultTimeout)
	f.u64(&lc.DeCommitFreeBlockThreshold)
	f.u64(&lc.DeCommitTotalFreeThreshold)
	f.u64(&lc.LockPrefixTable)
	f.u64(&lc.MaximumAllocationSize)
	f.u64(&lc.VirtualMemoryThreshold)
	f.u64(&lc.ProcessAffinityMask)
	f.u32(&lc.ProcessHeapFlags)
	f.u16(&lc.CSDVersion)
	f.u16(&lc.Reserved)
	f.u64(&lc.EditList)
	f.u32(&lc.SecurityCookie)
	f.u32(&lc.SEHandlerTable)
	f.u32(&lc.SEHandlerCount)
	if f.err != nil {
		return lc, classify(f.err, "读取加载配置目录失败")
	}
	return lc, nil
}

// WriteLoadConfigDirectory encodes lc in decode order.
func WriteLoadConfigDirectory(w *binio.Writer, lc *LoadConfigDirectory) {
	w.WriteDoubleWord(lc.Characteristics)
	w.WriteDoubleWord(lc.TimeDateStamp)
	w.WriteWord(lc.MajorVersion)
	w.WriteWord(lc.MinorVersion)
	w.WriteDoubleWord(lc.GlobalFlagsClear)
	w.WriteDoubleWord(lc.GlobalFlagsSet)
	w.WriteDoubleWord(lc.CriticalSectionDefaultTimeout)
	w.WriteLong(lc.DeCommitFreeBlockThreshold)
	w.WriteLong(lc.DeCommitTotalFreeThreshold)
	w.WriteLong(lc.LockPrefixTable)
	w.WriteLong(lc.MaximumAllocationSize)
	w.WriteLong(lc.VirtualMemoryThreshold)
	w.WriteLong(lc.ProcessAffinityMask)
	w.WriteDoubleWord(lc.ProcessHeapFlags)
	w.WriteWord(lc.CSDVersion)
	w.WriteWord(lc.Reserved)
	w.WriteLong(lc.EditList)
	w.WriteDoubleWord(lc.SecurityCookie)
	w.WriteDoubleWord(lc.SEHandlerTable)
	w.WriteDoubleWord(lc.SEHandlerCount)
}
