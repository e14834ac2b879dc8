package rsrc

import (
	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// Icon directory types.
const (
	IconTypeIcon   = 1
	IconTypeCursor = 2
)

const (
	iconDirectorySize      = 6
	iconDirectoryEntrySize = 16
	groupIconEntrySize     = 14
)

// IconDirectory is the ICONDIR header of an .ico file followed by its
// entries.
type IconDirectory struct {
	Reserved uint16
	Type     uint16
	Count    uint16
	Entries  []IconDirectoryEntry
}

// IconDirectoryEntry is one ICONDIRENTRY. In a resource group Offset holds
// the RT_ICON id instead of a file offset.
type IconDirectoryEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	BytesInRes uint32
	Offset     uint32
}

// ReadIconDirectory decodes the header and Count 16-byte entries.
func ReadIconDirectory(r *binio.Reader) (IconDirectory, error) {
	var d IconDirectory
	if err := readIconHeader(r, &d); err != nil {
		return d, err
	}
	if int(d.Count)*iconDirectoryEntrySize > r.Remaining() {
		return d, wrap(binio.ErrUnexpectedEOF, "图标目录声明 %d 项", d.Count)
	}
	d.Entries = make([]IconDirectoryEntry, d.Count)
	for i := range d.Entries {
		e, err := readIconEntry(r, false)
		if err != nil {
			return d, wrap(err, "读取第 %d 个图标项失败", i)
		}
		d.Entries[i] = e
	}
	return d, nil
}

// ReadGroupIconDirectory decodes an RT_GROUP_ICON payload, whose entries are
// 14 bytes with a 16-bit icon id in place of the file offset.
func ReadGroupIconDirectory(r *binio.Reader) (IconDirectory, error) {
	var d IconDirectory
	if err := readIconHeader(r, &d); err != nil {
		return d, err
	}
	if int(d.Count)*groupIconEntrySize > r.Remaining() {
		return d, wrap(binio.ErrUnexpectedEOF, "图标组声明 %d 项", d.Count)
	}
	d.Entries = make([]IconDirectoryEntry, d.Count)
	for i := range d.Entries {
		e, err := readIconEntry(r, true)
		if err != nil {
			return d, wrap(err, "读取第 %d 个图标组项失败", i)
		}
		d.Entries[i] = e
	}
	return d, nil
}

func readIconHeader(r *binio.Reader, d *IconDirectory) error {
	for _, dst := range []*uint16{&d.Reserved, &d.Type, &d.Count} {
		v, err := r.ReadWord()
		if err != nil {
			return wrap(err, "读取图标目录头失败")
		}
		*dst = v
	}
	if d.Type != IconTypeIcon && d.Type != IconTypeCursor {
		return malformed("图标目录类型无效: %d", d.Type)
	}
	return nil
}

func readIconEntry(r *binio.Reader, group bool) (IconDirectoryEntry, error) {
	var e IconDirectoryEntry
	var err error
	for _, dst := range []*uint8{&e.Width, &e.Height, &e.ColorCount, &e.Reserved} {
		if *dst, err = r.ReadByte(); err != nil {
			return e, err
		}
	}
	if e.Planes, err = r.ReadWord(); err != nil {
		return e, err
	}
	if e.BitCount, err = r.ReadWord(); err != nil {
		return e, err
	}
	if e.BytesInRes, err = r.ReadDoubleWord(); err != nil {
		return e, err
	}
	if group {
		id, err := r.ReadWord()
		e.Offset = uint32(id)
		return e, err
	}
	e.Offset, err = r.ReadDoubleWord()
	return e, err
}

// WriteIconDirectoryEntry encodes e in .ico layout.
func WriteIconDirectoryEntry(w *binio.Writer, e *IconDirectoryEntry) {
	for _, b := range []uint8{e.Width, e.Height, e.ColorCount, e.Reserved} {
		_ = w.WriteByte(b)
	}
	w.WriteWord(e.Planes)
	w.WriteWord(e.BitCount)
	w.WriteDoubleWord(e.BytesInRes)
	w.WriteDoubleWord(e.Offset)
}

// WriteIconDirectory encodes the header and the first Count entries.
func WriteIconDirectory(w *binio.Writer, d *IconDirectory) error {
	if int(d.Count) > len(d.Entries) {
		return malformed("图标目录声明 %d 项, 实际 %d 项", d.Count, len(d.Entries))
	}
	w.WriteWord(d.Reserved)
	w.WriteWord(d.Type)
	w.WriteWord(d.Count)
	for i := 0; i < int(d.Count); i++ {
		WriteIconDirectoryEntry(w, &d.Entries[i])
	}
	return nil
}

// Size returns the encoded size of d in .ico layout.
func (d *IconDirectory) Size() int {
	return iconDirectorySize + int(d.Count)*iconDirectoryEntrySize
}
