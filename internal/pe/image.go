// Package pe decodes Windows Portable Executable images into a structured
// object graph and encodes that graph back into bytes.
package pe

import (
	"github.com/hashicorp/go-hclog"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// Image is a decoded PE file. Fields may be modified freely before the image
// is passed to Assemble.
type Image struct {
	DOSHeader      DOSHeader
	Stub           []byte `yaml:"-"`
	Signature      [4]byte
	COFFHeader     COFFHeader
	OptionalHeader OptionalHeader
	Sections       *SectionTable `yaml:"-"`

	// Overlay holds bytes after the last section's raw data.
	Overlay []byte `yaml:"-"`

	// Optional directories; nil when absent or skipped.
	Resources  *ResourceDirectory
	Imports    *ImportDirectory
	LoadConfig *LoadConfigDirectory
	Exports    *ExportDirectory
	Debug      []DebugDirectory
}

// Parse decodes an image from data.
func Parse(data []byte, opts ...Option) (*Image, error) {
	return Read(binio.NewReader(data), opts...)
}

// Read decodes an image from a cursor positioned at the DOS header. Header
// and section-table failures abort; optional directories that fail their
// plausibility checks are left nil.
func Read(r *binio.Reader, opts ...Option) (*Image, error) {
	o := buildOptions(opts)
	log := o.Logger

	img := &Image{}
	var err error

	if img.DOSHeader, err = ReadDOSHeader(r); err != nil {
		return nil, err
	}
	if img.DOSHeader.Magic != DOSMagic {
		return nil, malformed("DOS签名无效: 0x%04X", img.DOSHeader.Magic)
	}
	if img.Stub, err = ReadDOSStub(&img.DOSHeader, r); err != nil {
		return nil, err
	}
	if img.Signature, err = ReadSignature(r); err != nil {
		return nil, err
	}
	if img.Signature != PESignature {
		return nil, malformed("PE签名无效: % X", img.Signature[:])
	}
	if img.COFFHeader, err = ReadCOFFHeader(r); err != nil {
		return nil, err
	}
	if img.OptionalHeader, err = ReadOptionalHeader(r); err != nil {
		return nil, err
	}

	// The section table starts where SizeOfOptionalHeader says it does.
	declaredEnd := int(img.DOSHeader.AddressOfNewExeHeader) + len(PESignature) + COFFHeaderSize +
		int(img.COFFHeader.SizeOfOptionalHeader)
	if extra := declaredEnd - r.Position(); extra > 0 {
		if img.OptionalHeader.Trailing, err = r.ReadBytes(extra); err != nil {
			return nil, classify(err, "读取可选头剩余部分失败")
		}
	} else if extra < 0 {
		log.Debug("声明的可选头小于解码长度", "declared", img.COFFHeader.SizeOfOptionalHeader, "decoded", OptionalHeaderSize)
	}

	log.Debug("读取节区表", "count", img.COFFHeader.NumberOfSections, "offset", r.Position())
	if img.Sections, err = ReadSections(int(img.COFFHeader.NumberOfSections), r); err != nil {
		return nil, err
	}
	if end := img.Sections.End(); end < r.Len() {
		if err := r.Seek(end); err != nil {
			return nil, classify(err, "定位附加数据失败")
		}
		if img.Overlay, err = r.ReadBytes(r.Len() - end); err != nil {
			return nil, classify(err, "读取附加数据失败")
		}
	}

	if err := img.readOptionalDirectories(o); err != nil {
		return nil, err
	}
	return img, nil
}

func (img *Image) readOptionalDirectories(o Options) error {
	stages := []struct {
		name string
		read func(hclog.Logger) error
	}{
		{"resource", img.readResources},
		{"import", img.readImports},
		{"load_config", img.readLoadConfig},
		{"export", img.readExports},
		{"debug", img.readDebug},
	}
	for _, s := range stages {
		log := o.Logger.With("directory", s.name)
		if err := s.read(log); err != nil {
			if o.Strict {
				return err
			}
			log.Warn("可选目录解析失败, 已忽略", "error", err)
		}
	}
	return nil
}

func (img *Image) readResources(log hclog.Logger) error {
	dd := img.OptionalHeader.ResourceTable()
	rsrc, ok := img.Sections.SectionBytes(".rsrc")
	if !ok || dd.Size == 0 {
		log.Debug("跳过", "has_rsrc", ok, "size", dd.Size)
		return nil
	}
	dir, err := ReadResourceDirectory(rsrc, dd.VirtualAddress)
	if err != nil {
		return err
	}
	img.Resources = dir
	log.Debug("已解析", "types", len(dir.Types), "leaves", dir.LeafCount())
	return nil
}

func (img *Image) readImports(log hclog.Logger) error {
	hdr, rdata, ok := img.Sections.Lookup(".rdata")
	itva := img.OptionalHeader.ImportTable().VirtualAddress
	offset := int64(itva) - int64(hdr.VirtualAddress)
	if !ok || itva == 0 || offset < 0 || offset >= int64(len(rdata)) {
		log.Debug("跳过", "has_rdata", ok, "offset", offset)
		return nil
	}
	dir, err := ReadImportDirectory(rdata, hdr.VirtualAddress, itva)
	if err != nil {
		return err
	}
	img.Imports = dir
	log.Debug("已解析", "modules", len(dir.Entries))
	return nil
}

func (img *Image) readLoadConfig(log hclog.Logger) error {
	hdr, rdata, ok := img.Sections.Lookup(".rdata")
	dd := img.OptionalHeader.LoadConfigTable()
	offset := int64(dd.VirtualAddress) - int64(hdr.VirtualAddress)
	if !ok || dd.Size == 0 || offset < 0 || offset+LoadConfigDirectorySize > int64(len(rdata)) {
		log.Debug("跳过", "has_rdata", ok, "size", dd.Size, "offset", offset)
		return nil
	}
	r := binio.NewReader(rdata)
	if err := r.Seek(int(offset)); err != nil {
		return classify(err, "定位加载配置目录失败")
	}
	lc, err := ReadLoadConfigDirectory(r)
	if err != nil {
		return err
	}
	img.LoadConfig = &lc
	return nil
}

func (img *Image) readExports(log hclog.Logger) error {
	dd := img.OptionalHeader.DataDirectories[DirExport]
	hdr, data, ok := img.sectionFor(dd)
	if !ok {
		log.Debug("跳过", "rva", dd.VirtualAddress, "size", dd.Size)
		return nil
	}
	ed, err := ReadExportDirectory(data, hdr.VirtualAddress, dd.VirtualAddress)
	if err != nil {
		return err
	}
	img.Exports = ed
	log.Debug("已解析", "name", ed.Name, "names", len(ed.Names))
	return nil
}

func (img *Image) readDebug(log hclog.Logger) error {
	dd := img.OptionalHeader.DataDirectories[DirDebug]
	hdr, data, ok := img.sectionFor(dd)
	if !ok {
		log.Debug("跳过", "rva", dd.VirtualAddress, "size", dd.Size)
		return nil
	}
	dirs, err := ReadDebugDirectories(data, hdr.VirtualAddress, dd.VirtualAddress, dd.Size)
	if err != nil {
		return err
	}
	img.Debug = dirs
	return nil
}

// sectionFor returns the loaded section holding a non-empty directory.
func (img *Image) sectionFor(dd DataDirectory) (SectionHeader, []byte, bool) {
	if dd.VirtualAddress == 0 || dd.Size == 0 {
		return SectionHeader{}, nil, false
	}
	i, ok := img.Sections.SectionFor(dd.VirtualAddress)
	if !ok || img.Sections.Data(i) == nil {
		return SectionHeader{}, nil, false
	}
	return img.Sections.Headers[i], img.Sections.Data(i), true
}

// EntryPoint returns the entry point RVA.
func (img *Image) EntryPoint() uint32 {
	return img.OptionalHeader.AddressOfEntryPoint
}
