package pe

import (
	stdpe "debug/pe"
)

// Edits made through these helpers only touch the decoded structures; call
// Assemble to get the patched file bytes.

func (img *Image) sectionIndex(name string) (int, error) {
	for i := range img.Sections.Headers {
		if img.Sections.Headers[i].NameString() == name {
			return i, nil
		}
	}
	return -1, malformed("未找到节区: %s", name)
}

// SetSectionCharacteristics replaces the characteristics of the first section
// named name.
func (img *Image) SetSectionCharacteristics(name string, chars uint32) error {
	i, err := img.sectionIndex(name)
	if err != nil {
		return err
	}
	img.Sections.Headers[i].Characteristics = chars
	return nil
}

// RemoveSectionWritePermission clears the MEM_WRITE flag of a section.
func (img *Image) RemoveSectionWritePermission(name string) error {
	i, err := img.sectionIndex(name)
	if err != nil {
		return err
	}
	img.Sections.Headers[i].Characteristics &^= stdpe.IMAGE_SCN_MEM_WRITE
	return nil
}

// SetSectionPermissions sets exact permissions for a section. Executable
// sections are marked as code, the rest as initialized data.
func (img *Image) SetSectionPermissions(name string, read, write, execute bool) error {
	var perms uint32
	if read {
		perms |= stdpe.IMAGE_SCN_MEM_READ
	}
	if write {
		perms |= stdpe.IMAGE_SCN_MEM_WRITE
	}
	if execute {
		perms |= stdpe.IMAGE_SCN_MEM_EXECUTE | stdpe.IMAGE_SCN_CNT_CODE
	} else {
		perms |= stdpe.IMAGE_SCN_CNT_INITIALIZED_DATA
	}
	return img.SetSectionCharacteristics(name, perms)
}

// SetEntryPoint moves AddressOfEntryPoint. The new address must fall inside
// a section.
func (img *Image) SetEntryPoint(rva uint32) error {
	if rva == 0 {
		return malformed("入口点地址不能为0")
	}
	if _, ok := img.Sections.SectionFor(rva); !ok {
		return outOfBounds("入口点 0x%X 不在任何节区内", rva)
	}
	img.OptionalHeader.AddressOfEntryPoint = rva
	return nil
}

// ReadRVA returns size bytes of raw section data starting at rva.
func (img *Image) ReadRVA(rva, size uint32) ([]byte, error) {
	i, ok := img.Sections.SectionFor(rva)
	if !ok {
		return nil, outOfBounds("RVA 0x%X 不在任何节区内", rva)
	}
	data := img.Sections.Data(i)
	start := uint64(rva - img.Sections.Headers[i].VirtualAddress)
	if start+uint64(size) > uint64(len(data)) {
		return nil, outOfBounds("读取RVA 0x%X (+%d) 超出节区 %q 的原始数据", rva, size, img.Sections.Headers[i].NameString())
	}
	return append([]byte(nil), data[start:start+uint64(size)]...), nil
}
