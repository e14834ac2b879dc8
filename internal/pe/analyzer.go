package pe

import (
	stdpe "debug/pe"
	"fmt"
)

// Info is a flattened summary of a decoded image for reports.
type Info struct {
	FilePath     string
	FileSize     int64
	Architecture string
	Subsystem    string
	EntryPoint   uint64
	ImageBase    uint64
	Checksum     uint32
	Sections     []SectionInfo
	Directories  []DirectoryInfo
	Imports      []ImportInfo
	Exports      []string
	Resources    []ResourceInfo
	OverlaySize  int
}

// SectionInfo contains information about a PE section.
type SectionInfo struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	Size            uint32
	Offset          uint32
	Characteristics uint32
	Permissions     string
	Entropy         float64
}

// DirectoryInfo describes a non-empty data directory.
type DirectoryInfo struct {
	Index          int
	Name           string
	VirtualAddress uint32
	Size           uint32
}

// ImportInfo contains information about imported DLL and functions.
type ImportInfo struct {
	DLL       string
	Functions []string
}

// ResourceInfo describes one resource leaf.
type ResourceInfo struct {
	Type     string
	NameID   uint32
	Language uint32
	Size     uint32
	CodePage uint32
}

// Summarize flattens img into an Info. path and size describe where it came
// from and may be empty.
func Summarize(img *Image, path string, size int64) *Info {
	oh := &img.OptionalHeader
	info := &Info{
		FilePath:     path,
		FileSize:     size,
		Architecture: getArchitecture(img.COFFHeader.Machine),
		Subsystem:    getSubsystem(oh.Subsystem),
		EntryPoint:   uint64(oh.AddressOfEntryPoint),
		ImageBase:    uint64(oh.ImageBase),
		Checksum:     oh.CheckSum,
		OverlaySize:  len(img.Overlay),
	}

	for i := range img.Sections.Headers {
		h := &img.Sections.Headers[i]
		info.Sections = append(info.Sections, SectionInfo{
			Name:            h.NameString(),
			VirtualAddress:  h.VirtualAddress,
			VirtualSize:     h.VirtualSize,
			Size:            h.SizeOfRawData,
			Offset:          h.PointerToRawData,
			Characteristics: h.Characteristics,
			Permissions:     getSectionPermissions(h.Characteristics),
			Entropy:         img.Sections.Entropy(i),
		})
	}

	for i, dd := range oh.DataDirectories {
		if dd.VirtualAddress == 0 && dd.Size == 0 {
			continue
		}
		info.Directories = append(info.Directories, DirectoryInfo{
			Index:          i,
			Name:           DataDirectoryName(i),
			VirtualAddress: dd.VirtualAddress,
			Size:           dd.Size,
		})
	}

	if img.Imports != nil {
		for _, e := range img.Imports.Entries {
			imp := ImportInfo{DLL: e.Name}
			for _, fn := range e.Imports {
				if fn.ByOrdinal() {
					imp.Functions = append(imp.Functions, fmt.Sprintf("#%d", fn.Ordinal))
				} else {
					imp.Functions = append(imp.Functions, fn.Name)
				}
			}
			info.Imports = append(info.Imports, imp)
		}
	}

	if img.Exports != nil {
		info.Exports = img.Exports.Names
	}

	if img.Resources != nil {
		_ = img.Resources.Walk(func(typeID, nameID, langID uint32, leaf *ResourceLanguageEntry) error {
			info.Resources = append(info.Resources, ResourceInfo{
				Type:     ResourceTypeName(typeID),
				NameID:   nameID,
				Language: langID,
				Size:     leaf.Entry.Size,
				CodePage: leaf.Entry.CodePage,
			})
			return nil
		})
	}

	return info
}

func getArchitecture(machine uint16) string {
	switch machine {
	case stdpe.IMAGE_FILE_MACHINE_I386:
		return "x86 (32位)"
	case stdpe.IMAGE_FILE_MACHINE_AMD64:
		return "x64 (64位)"
	case stdpe.IMAGE_FILE_MACHINE_ARM:
		return "ARM"
	case stdpe.IMAGE_FILE_MACHINE_ARM64:
		return "ARM64"
	default:
		return fmt.Sprintf("未知 (0x%X)", machine)
	}
}

func getSubsystem(subsystem uint16) string {
	switch subsystem {
	case stdpe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
		return "Windows GUI"
	case stdpe.IMAGE_SUBSYSTEM_WINDOWS_CUI:
		return "Windows 控制台"
	case stdpe.IMAGE_SUBSYSTEM_NATIVE:
		return "Native"
	case stdpe.IMAGE_SUBSYSTEM_EFI_APPLICATION:
		return "EFI 应用"
	default:
		return fmt.Sprintf("未知 (0x%X)", subsystem)
	}
}

func getSectionPermissions(c uint32) string {
	perms := [3]byte{'-', '-', '-'}
	if c&stdpe.IMAGE_SCN_MEM_READ != 0 {
		perms[0] = 'R'
	}
	if c&stdpe.IMAGE_SCN_MEM_WRITE != 0 {
		perms[1] = 'W'
	}
	if c&stdpe.IMAGE_SCN_MEM_EXECUTE != 0 {
		perms[2] = 'X'
	}
	return string(perms[:])
}
