package cli

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ZacharyZcR/pecoff/internal/pe"
	"github.com/ZacharyZcR/pecoff/internal/pe/rsrc"
)

// hex32 marshals as a 0x-prefixed hex string.
type hex32 uint32

func (h hex32) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("0x%08X", uint32(h)), nil
}

type sectionView struct {
	Name             string  `yaml:"name"`
	VirtualAddress   hex32   `yaml:"virtual_address"`
	VirtualSize      hex32   `yaml:"virtual_size"`
	PointerToRawData hex32   `yaml:"pointer_to_raw_data"`
	SizeOfRawData    hex32   `yaml:"size_of_raw_data"`
	Characteristics  hex32   `yaml:"characteristics"`
	Permissions      string  `yaml:"permissions"`
	Entropy          float64 `yaml:"entropy"`
	GapSize          int     `yaml:"gap_size,omitempty"`
}

type resourceView struct {
	Type     string `yaml:"type"`
	Name     uint32 `yaml:"name"`
	Language uint32 `yaml:"language"`
	RVA      hex32  `yaml:"rva"`
	Size     uint32 `yaml:"size"`
	CodePage uint32 `yaml:"code_page"`
}

type dumpView struct {
	File        string             `yaml:"file,omitempty"`
	StubSize    int                `yaml:"stub_size"`
	OverlaySize int                `yaml:"overlay_size"`
	Image       *pe.Image          `yaml:"image"`
	Sections    []sectionView      `yaml:"sections"`
	Resources   []resourceView     `yaml:"resources,omitempty"`
	Version     *rsrc.VersionInfo  `yaml:"version,omitempty"`
	Imports     []pe.ImportInfo    `yaml:"imports,omitempty"`
	Directories []pe.DirectoryInfo `yaml:"directories,omitempty"`
}

// Dump writes img as YAML. Headers and decoded directories are emitted field
// by field; raw section bytes are summarized.
func Dump(w io.Writer, img *pe.Image, info *pe.Info) error {
	v := dumpView{
		File:        info.FilePath,
		StubSize:    len(img.Stub),
		OverlaySize: len(img.Overlay),
		Image:       img,
		Imports:     info.Imports,
		Directories: info.Directories,
	}

	for i, h := range img.Sections.Headers {
		s := info.Sections[i]
		v.Sections = append(v.Sections, sectionView{
			Name:             s.Name,
			VirtualAddress:   hex32(h.VirtualAddress),
			VirtualSize:      hex32(h.VirtualSize),
			PointerToRawData: hex32(h.PointerToRawData),
			SizeOfRawData:    hex32(h.SizeOfRawData),
			Characteristics:  hex32(h.Characteristics),
			Permissions:      s.Permissions,
			Entropy:          s.Entropy,
			GapSize:          len(img.Sections.Gap(i)),
		})
	}

	if img.Resources != nil {
		_ = img.Resources.Walk(func(typeID, nameID, langID uint32, leaf *pe.ResourceLanguageEntry) error {
			v.Resources = append(v.Resources, resourceView{
				Type:     pe.ResourceTypeName(typeID),
				Name:     nameID,
				Language: langID,
				RVA:      hex32(leaf.Entry.OffsetToData),
				Size:     leaf.Entry.Size,
				CodePage: leaf.Entry.CodePage,
			})
			return nil
		})
		// A broken version resource is left out of the dump.
		v.Version, _ = rsrc.FindVersionInfo(img.Resources)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&v); err != nil {
		return err
	}
	return enc.Close()
}
