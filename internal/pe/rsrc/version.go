package rsrc

import (
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/ZacharyZcR/pecoff/internal/binio"
	"github.com/ZacharyZcR/pecoff/internal/pe"
)

const (
	versionInfoKey    = "VS_VERSION_INFO"
	stringFileInfoKey = "StringFileInfo"
	varFileInfoKey    = "VarFileInfo"
	translationKey    = "Translation"

	versionTypeText = 1

	// VS_VERSIONINFO > StringFileInfo > StringTable > String
	maxVersionDepth = 4
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// VersionInfo is a decoded RT_VERSION resource.
type VersionInfo struct {
	Fixed        *FixedFileInfo
	StringTables []StringTable
	Translations []Translation
}

// StringTable is one language/code-page block of StringFileInfo. Key is the
// eight hex digit language and code page, e.g. "040904b0".
type StringTable struct {
	Key     string
	Strings []VersionString
}

// VersionString is one key/value pair of a string table.
type VersionString struct {
	Key   string
	Value string
}

// Translation is one language and code page pair from VarFileInfo.
type Translation struct {
	Language uint16
	CodePage uint16
}

// Lookup returns the value of key from the first string table that has it.
func (v *VersionInfo) Lookup(key string) string {
	for _, t := range v.StringTables {
		for _, s := range t.Strings {
			if s.Key == key {
				return s.Value
			}
		}
	}
	return ""
}

// FileVersion returns the FileVersion string, falling back to the fixed
// file info.
func (v *VersionInfo) FileVersion() string {
	if s := v.Lookup("FileVersion"); s != "" {
		return s
	}
	if v.Fixed != nil {
		return v.Fixed.FileVersion()
	}
	return ""
}

// ProductVersion returns the ProductVersion string, falling back to the
// fixed file info.
func (v *VersionInfo) ProductVersion() string {
	if s := v.Lookup("ProductVersion"); s != "" {
		return s
	}
	if v.Fixed != nil {
		return v.Fixed.ProductVersion()
	}
	return ""
}

type versionBlock struct {
	key      string
	typ      uint16
	value    []byte
	children []versionBlock
}

// ParseVersionInfo decodes a VS_VERSIONINFO payload.
func ParseVersionInfo(data []byte) (*VersionInfo, error) {
	root, _, err := readVersionBlock(data, 0, 1)
	if err != nil {
		return nil, err
	}
	if root.key != versionInfoKey {
		return nil, malformed("版本资源键无效: %q", root.key)
	}

	info := &VersionInfo{}
	if len(root.value) >= FixedFileInfoSize {
		ffi, err := ReadFixedFileInfo(binio.NewReader(root.value))
		if err != nil {
			return nil, err
		}
		if ffi.Signature != FixedFileInfoSignature {
			return nil, malformed("VS_FIXEDFILEINFO签名无效: 0x%08X", ffi.Signature)
		}
		info.Fixed = &ffi
	}

	for _, child := range root.children {
		switch child.key {
		case stringFileInfoKey:
			for _, tb := range child.children {
				table := StringTable{Key: tb.key}
				for _, sb := range tb.children {
					value, err := decodeUTF16(sb.value)
					if err != nil {
						return nil, wrap(err, "解码版本字符串 %s 失败", sb.key)
					}
					table.Strings = append(table.Strings, VersionString{
						Key:   sb.key,
						Value: strings.TrimRight(value, "\x00"),
					})
				}
				info.StringTables = append(info.StringTables, table)
			}
		case varFileInfoKey:
			for _, vb := range child.children {
				if vb.key != translationKey {
					continue
				}
				r := binio.NewReader(vb.value)
				for r.Remaining() >= 4 {
					lang, _ := r.ReadWord()
					cp, _ := r.ReadWord()
					info.Translations = append(info.Translations, Translation{Language: lang, CodePage: cp})
				}
			}
		}
	}
	return info, nil
}

// readVersionBlock decodes the block at off and its children. data is
// bounded by the parent block, so offsets stay absolute.
func readVersionBlock(data []byte, off, depth int) (versionBlock, int, error) {
	var b versionBlock
	if depth > maxVersionDepth {
		return b, 0, malformed("版本资源嵌套超过 %d 层", maxVersionDepth)
	}

	r := binio.NewReader(data)
	if err := r.Seek(off); err != nil {
		return b, 0, wrap(err, "定位版本块失败")
	}
	var length, valueLength uint16
	var err error
	for _, dst := range []*uint16{&length, &valueLength, &b.typ} {
		if *dst, err = r.ReadWord(); err != nil {
			return b, 0, wrap(err, "读取版本块头失败")
		}
	}
	end := off + int(length)
	if length < 6 || end > len(data) {
		return b, 0, malformed("版本块长度无效: %d (偏移 0x%X)", length, off)
	}
	r = binio.NewReader(data[:end])
	_ = r.Seek(off + 6)

	if b.key, err = readUTF16String(r); err != nil {
		return b, 0, wrap(err, "读取版本块键失败")
	}

	n := int(valueLength)
	if b.typ == versionTypeText {
		n *= 2
	}
	pos := align4(r.Position())
	if pos > end {
		pos = end
	}
	if pos+n > end {
		// Some linkers count text values in bytes instead of characters.
		if b.typ != versionTypeText {
			return b, 0, malformed("版本块 %s 的值超出块长度", b.key)
		}
		n = end - pos
	}
	b.value = append([]byte(nil), data[pos:pos+n]...)

	for pos = align4(pos + n); end-pos >= 6; {
		child, childEnd, err := readVersionBlock(data[:end], pos, depth+1)
		if err != nil {
			return b, 0, err
		}
		b.children = append(b.children, child)
		pos = align4(childEnd)
	}
	return b, end, nil
}

// readUTF16String reads a NUL-terminated UTF-16LE string and leaves the
// cursor after the terminator.
func readUTF16String(r *binio.Reader) (string, error) {
	start := r.Position()
	n := 0
	for {
		c, err := r.ReadWord()
		if err != nil {
			return "", err
		}
		if c == 0 {
			break
		}
		n += 2
	}
	if err := r.Seek(start); err != nil {
		return "", err
	}
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if err := r.Skip(2); err != nil {
		return "", err
	}
	return decodeUTF16(b)
}

func decodeUTF16(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// FindVersionInfo decodes the first RT_VERSION leaf of dir. It returns nil
// when the image has no version resource.
func FindVersionInfo(dir *pe.ResourceDirectory) (*VersionInfo, error) {
	if dir == nil {
		return nil, nil
	}
	leaves := dir.FindType(pe.RT_VERSION)
	if len(leaves) == 0 {
		return nil, nil
	}
	return ParseVersionInfo(leaves[0].Data)
}

// FindIconGroups decodes every RT_GROUP_ICON leaf of dir.
func FindIconGroups(dir *pe.ResourceDirectory) ([]IconDirectory, error) {
	if dir == nil {
		return nil, nil
	}
	var groups []IconDirectory
	for _, leaf := range dir.FindType(pe.RT_GROUP_ICON) {
		g, err := ReadGroupIconDirectory(binio.NewReader(leaf.Data))
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}
