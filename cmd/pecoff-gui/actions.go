package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ZacharyZcR/pecoff/internal/cli"
	"github.com/ZacharyZcR/pecoff/internal/config"
	"github.com/ZacharyZcR/pecoff/internal/pe"
)

// analysis is what one click of the analyze button produces.
type analysis struct {
	Report    string
	YAML      string
	DiffFirst int
	DiffCount int
}

// Status summarizes the round-trip check for the status bar.
func (a *analysis) Status() string {
	if a.DiffFirst < 0 {
		return "分析完成, 往返校验一致"
	}
	return fmt.Sprintf("分析完成, 往返校验在 0x%X 处出现差异 (%d 字节)", a.DiffFirst, a.DiffCount)
}

func analyzeFile(path string, cfg *config.Config) (*analysis, error) {
	f, err := pe.Open(path, pe.WithStrict(cfg.Strict))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info := pe.Summarize(f.Image, f.Path(), f.Size())

	var report strings.Builder
	reporter := cli.NewReporter(&report, f.Image, info)
	reporter.SetVerbose(cfg.Verbose)
	reporter.SetLimits(cfg.MaxImports, cfg.MaxExports)
	reporter.Print()

	var dump strings.Builder
	if err := cli.Dump(&dump, f.Image, info); err != nil {
		return nil, errors.Wrap(err, "生成YAML失败")
	}

	res := &analysis{Report: report.String(), YAML: dump.String(), DiffFirst: -1}
	if out, err := pe.Assemble(f.Image); err == nil {
		res.DiffFirst, res.DiffCount = cli.Diff(f.Raw(), out)
	} else {
		res.DiffFirst, res.DiffCount = 0, len(f.Raw())
	}
	return res, nil
}

// patchFile applies fn to the image at path and writes it back with an
// updated checksum.
func patchFile(path string, fn func(img *pe.Image) error) error {
	f, err := pe.Open(path)
	if err != nil {
		return err
	}
	if err := fn(f.Image); err != nil {
		_ = f.Close()
		return err
	}
	out, err := pe.AssembleWithOptions(f.Image, pe.AssembleOptions{UpdateChecksum: true})
	_ = f.Close()
	if err != nil {
		return err
	}

	st, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "获取文件信息失败")
	}
	return errors.Wrap(os.WriteFile(path, out, st.Mode().Perm()), "写入PE文件失败")
}

func patchSection(path, sectionName, perms string) error {
	upper := strings.ToUpper(perms)
	read := strings.Contains(upper, "R")
	write := strings.Contains(upper, "W")
	execute := strings.Contains(upper, "X")

	return patchFile(path, func(img *pe.Image) error {
		return img.SetSectionPermissions(sectionName, read, write, execute)
	})
}

func patchEntryPoint(path, entryStr string) error {
	var entry uint32
	_, err := fmt.Sscanf(entryStr, "0x%x", &entry)
	if err != nil {
		_, err = fmt.Sscanf(entryStr, "%x", &entry)
		if err != nil {
			return errors.New("入口点地址格式错误")
		}
	}

	return patchFile(path, func(img *pe.Image) error {
		return img.SetEntryPoint(entry)
	})
}
