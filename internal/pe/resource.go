package pe

import (
	"fmt"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// Resource types.
const (
	RT_CURSOR       = 1
	RT_BITMAP       = 2
	RT_ICON         = 3
	RT_MENU         = 4
	RT_DIALOG       = 5
	RT_STRING       = 6
	RT_ACCELERATOR  = 9
	RT_RCDATA       = 10
	RT_MESSAGETABLE = 11
	RT_GROUP_CURSOR = 12
	RT_GROUP_ICON   = 14
	RT_VERSION      = 16
	RT_MANIFEST     = 24
)

var resourceTypeNames = map[uint32]string{
	RT_CURSOR:       "CURSOR",
	RT_BITMAP:       "BITMAP",
	RT_ICON:         "ICON",
	RT_MENU:         "MENU",
	RT_DIALOG:       "DIALOG",
	RT_STRING:       "STRING",
	RT_ACCELERATOR:  "ACCELERATOR",
	RT_RCDATA:       "RCDATA",
	RT_MESSAGETABLE: "MESSAGETABLE",
	RT_GROUP_CURSOR: "GROUP_CURSOR",
	RT_GROUP_ICON:   "GROUP_ICON",
	RT_VERSION:      "VERSION",
	RT_MANIFEST:     "MANIFEST",
}

// ResourceTypeName returns the RT_* name for id, or the number.
func ResourceTypeName(id uint32) string {
	if name, ok := resourceTypeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("%d", id)
}

const (
	resourceTableSize     = 16
	resourcePointerSize   = 8
	resourceDataEntrySize = 16

	// subdirectoryFlag marks a pointer whose target is another directory.
	subdirectoryFlag = 0x80000000
)

// ResourceTable is the IMAGE_RESOURCE_DIRECTORY header shared by every
// directory level.
type ResourceTable struct {
	Characteristics uint32
	TimeDateStamp   uint32
	MajorVersion    uint16
	MinorVersion    uint16
	NumNamedEntries uint16
	NumIDEntries    uint16
}

// ResourcePointer is an IMAGE_RESOURCE_DIRECTORY_ENTRY. OffsetToData has the
// subdirectory bit masked off and is relative to the start of the resource
// section.
type ResourcePointer struct {
	ID           uint32
	OffsetToData uint32
	Subdirectory bool
}

// ResourceDataEntry is the IMAGE_RESOURCE_DATA_ENTRY at a leaf.
type ResourceDataEntry struct {
	OffsetToData uint32
	Size         uint32
	CodePage     uint32
	Reserved     uint32
}

// ResourceDirectory is the root of the tree. Each entry is one resource type.
type ResourceDirectory struct {
	Table ResourceTable
	Types []ResourceTypeDirectory
}

// ResourceTypeDirectory lists the resources of one type, keyed by name id.
type ResourceTypeDirectory struct {
	Pointer ResourcePointer
	Table   ResourceTable
	Names   []ResourceNameDirectory
}

// ResourceNameDirectory lists the language variants of one resource.
type ResourceNameDirectory struct {
	Pointer   ResourcePointer
	Table     ResourceTable
	Languages []ResourceLanguageEntry
}

// ResourceLanguageEntry is the leaf: a data entry and its payload.
type ResourceLanguageEntry struct {
	Pointer ResourcePointer
	Entry   ResourceDataEntry
	Data    []byte `yaml:"-"`
}

// resourceReader walks a resource tree inside the .rsrc bytes. Directory
// offsets are relative to the section start; data RVAs are relative to base.
type resourceReader struct {
	r    *binio.Reader
	base uint32

	// visited holds the offsets of every table and data entry decoded so
	// far; copied is the payload bytes copied so far.
	visited map[uint32]bool
	copied  int
}

// claim records off as decoded. A tree may reach each table and data entry
// only once.
func (rr *resourceReader) claim(off uint32) error {
	if rr.visited[off] {
		return malformed("资源偏移 0x%X 被多个条目引用", off)
	}
	rr.visited[off] = true
	return nil
}

// ReadResourceDirectory decodes the full four-level tree from the resource
// section bytes. base is the resource table virtual address used to turn
// data-entry RVAs into offsets within rsrc.
//
// Only id-keyed entries are followed. Named entries precede the id entries in
// each table and are stepped over without being decoded.
func ReadResourceDirectory(rsrc []byte, base uint32) (*ResourceDirectory, error) {
	rr := &resourceReader{r: binio.NewReader(rsrc), base: base, visited: make(map[uint32]bool)}

	table, pointers, err := rr.readTable(0)
	if err != nil {
		return nil, classify(err, "读取资源根目录失败")
	}
	root := &ResourceDirectory{Table: table}
	for _, p := range pointers {
		td, err := rr.readTypeDirectory(p)
		if err != nil {
			return nil, classify(err, "读取资源类型 %s 失败", ResourceTypeName(p.ID))
		}
		root.Types = append(root.Types, td)
	}
	return root, nil
}

func (rr *resourceReader) readTypeDirectory(p ResourcePointer) (ResourceTypeDirectory, error) {
	td := ResourceTypeDirectory{Pointer: p}
	if !p.Subdirectory {
		return td, malformed("类型条目 %d 未指向子目录", p.ID)
	}
	table, pointers, err := rr.readTable(p.OffsetToData)
	if err != nil {
		return td, err
	}
	td.Table = table
	for _, np := range pointers {
		nd, err := rr.readNameDirectory(np)
		if err != nil {
			return td, classify(err, "读取资源名称 %d 失败", np.ID)
		}
		td.Names = append(td.Names, nd)
	}
	return td, nil
}

func (rr *resourceReader) readNameDirectory(p ResourcePointer) (ResourceNameDirectory, error) {
	nd := ResourceNameDirectory{Pointer: p}
	if !p.Subdirectory {
		return nd, malformed("名称条目 %d 未指向子目录", p.ID)
	}
	table, pointers, err := rr.readTable(p.OffsetToData)
	if err != nil {
		return nd, err
	}
	nd.Table = table
	for _, lp := range pointers {
		le, err := rr.readLanguageEntry(lp)
		if err != nil {
			return nd, classify(err, "读取资源语言 %d 失败", lp.ID)
		}
		nd.Languages = append(nd.Languages, le)
	}
	return nd, nil
}

func (rr *resourceReader) readLanguageEntry(p ResourcePointer) (ResourceLanguageEntry, error) {
	le := ResourceLanguageEntry{Pointer: p}
	if p.Subdirectory {
		// A fourth directory level would break the fixed tree depth.
		return le, malformed("语言条目 %d 指向了子目录而非数据项", p.ID)
	}
	if err := rr.seek(p.OffsetToData, resourceDataEntrySize); err != nil {
		return le, err
	}
	if err := rr.claim(p.OffsetToData); err != nil {
		return le, err
	}

	f := fieldReader{r: rr.r}
	f.u32(&le.Entry.OffsetToData)
	f.u32(&le.Entry.Size)
	f.u32(&le.Entry.CodePage)
	f.u32(&le.Entry.Reserved)
	if f.err != nil {
		return le, f.err
	}

	if le.Entry.OffsetToData == 0 || le.Entry.Size == 0 {
		return le, nil
	}
	if le.Entry.OffsetToData < rr.base {
		return le, malformed("数据RVA 0x%X 位于资源表 0x%X 之前", le.Entry.OffsetToData, rr.base)
	}
	if err := rr.seek(le.Entry.OffsetToData-rr.base, int(le.Entry.Size)); err != nil {
		return le, err
	}
	// Distinct payloads never add up to more than the section itself.
	rr.copied += int(le.Entry.Size)
	if rr.copied > rr.r.Len() {
		return le, malformed("资源数据总量 0x%X 超出资源节区 (0x%X 字节)", rr.copied, rr.r.Len())
	}
	data, err := rr.r.ReadBytes(int(le.Entry.Size))
	if err != nil {
		return le, err
	}
	le.Data = data
	return le, nil
}

// readTable decodes a directory header at off and the id-keyed pointers that
// follow its named entries.
func (rr *resourceReader) readTable(off uint32) (ResourceTable, []ResourcePointer, error) {
	var t ResourceTable
	if err := rr.seek(off, resourceTableSize); err != nil {
		return t, nil, err
	}
	if err := rr.claim(off); err != nil {
		return t, nil, err
	}
	f := fieldReader{r: rr.r}
	f.u32(&t.Characteristics)
	f.u32(&t.TimeDateStamp)
	f.u16(&t.MajorVersion)
	f.u16(&t.MinorVersion)
	f.u16(&t.NumNamedEntries)
	f.u16(&t.NumIDEntries)
	if f.err != nil {
		return t, nil, f.err
	}

	// Named entries come first in the table. Skipping them differs from
	// reading the first NumIDEntries slots only when a table mixes both kinds.
	if err := rr.r.Skip(int(t.NumNamedEntries) * resourcePointerSize); err != nil {
		return t, nil, malformed("目录 0x%X 的命名条目超出资源节区", off)
	}
	pointers := make([]ResourcePointer, 0, t.NumIDEntries)
	for i := 0; i < int(t.NumIDEntries); i++ {
		var p ResourcePointer
		var raw uint32
		f.u32(&p.ID)
		f.u32(&raw)
		if f.err != nil {
			return t, nil, f.err
		}
		p.OffsetToData = raw &^ subdirectoryFlag
		p.Subdirectory = raw&subdirectoryFlag != 0
		pointers = append(pointers, p)
	}
	return t, pointers, nil
}

// seek positions the cursor at off after checking that n bytes fit.
func (rr *resourceReader) seek(off uint32, n int) error {
	if uint64(off)+uint64(n) > uint64(rr.r.Len()) {
		return malformed("资源偏移 0x%X(+%d) 超出资源节区 (0x%X 字节)", off, n, rr.r.Len())
	}
	return rr.r.Seek(int(off))
}

// Walk calls fn for every leaf with its type, name and language ids, in
// tree order. It stops at the first error fn returns.
func (d *ResourceDirectory) Walk(fn func(typeID, nameID, langID uint32, leaf *ResourceLanguageEntry) error) error {
	for ti := range d.Types {
		td := &d.Types[ti]
		for ni := range td.Names {
			nd := &td.Names[ni]
			for li := range nd.Languages {
				le := &nd.Languages[li]
				if err := fn(td.Pointer.ID, nd.Pointer.ID, le.Pointer.ID, le); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Find returns the first language variant of resource (typeID, nameID).
func (d *ResourceDirectory) Find(typeID, nameID uint32) (*ResourceLanguageEntry, bool) {
	for ti := range d.Types {
		td := &d.Types[ti]
		if td.Pointer.ID != typeID {
			continue
		}
		for ni := range td.Names {
			nd := &td.Names[ni]
			if nd.Pointer.ID == nameID && len(nd.Languages) > 0 {
				return &nd.Languages[0], true
			}
		}
	}
	return nil, false
}

// FindType returns every leaf of the given type.
func (d *ResourceDirectory) FindType(typeID uint32) []*ResourceLanguageEntry {
	var out []*ResourceLanguageEntry
	_ = d.Walk(func(t, _, _ uint32, leaf *ResourceLanguageEntry) error {
		if t == typeID {
			out = append(out, leaf)
		}
		return nil
	})
	return out
}

// LeafCount returns the number of data entries in the tree.
func (d *ResourceDirectory) LeafCount() int {
	n := 0
	_ = d.Walk(func(_, _, _ uint32, _ *ResourceLanguageEntry) error {
		n++
		return nil
	})
	return n
}
