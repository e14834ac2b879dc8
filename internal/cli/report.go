// Package cli provides command-line interface utilities.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ZacharyZcR/pecoff/internal/pe"
	"github.com/ZacharyZcR/pecoff/internal/pe/rsrc"
)

// maxResources bounds the resource listing outside verbose mode.
const maxResources = 20

// Reporter formats and prints a decoded image.
type Reporter struct {
	out            io.Writer
	img            *pe.Image
	info           *pe.Info
	verbose        bool
	suspiciousOnly bool
	maxImports     int
	maxExports     int
}

// NewReporter creates a reporter writing to out.
func NewReporter(out io.Writer, img *pe.Image, info *pe.Info) *Reporter {
	return &Reporter{out: out, img: img, info: info, maxImports: 10, maxExports: 20}
}

// SetVerbose enables verbose mode (show all functions).
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// SetSuspiciousOnly enables suspicious-only mode (show RWX sections only).
func (r *Reporter) SetSuspiciousOnly(suspicious bool) {
	r.suspiciousOnly = suspicious
}

// SetLimits sets how many imports per DLL and exports are listed outside
// verbose mode.
func (r *Reporter) SetLimits(imports, exports int) {
	r.maxImports = imports
	r.maxExports = exports
}

// Print outputs the complete analysis report.
func (r *Reporter) Print() {
	r.printHeader()
	r.printBasicInfo()
	r.printDirectories()
	r.printSections()
	r.printResources()
	r.printImports()
	r.printExports()
	r.printLoadConfig()
	r.printDebug()
}

func (r *Reporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *Reporter) title(format string, args ...interface{}) {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(r.out, "\n"+format+"\n", args...)
}

func (r *Reporter) printHeader() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintln(r.out, "\n╔════════════════════════════════════════╗")
	_, _ = cyan.Fprintln(r.out, "║           PECOFF 分析报告              ║")
	_, _ = cyan.Fprintln(r.out, "╚════════════════════════════════════════╝")
}

func (r *Reporter) printBasicInfo() {
	r.title("【基本信息】")

	if r.info.FilePath != "" {
		r.printf("  %-20s: %s\n", "文件路径", r.info.FilePath)
		r.printf("  %-20s: %s\n", "文件大小", formatSize(r.info.FileSize))
	}
	r.printf("  %-20s: %s\n", "架构", r.info.Architecture)
	r.printf("  %-20s: %s\n", "子系统", r.info.Subsystem)
	r.printf("  %-20s: 0x%X\n", "入口点", r.info.EntryPoint)
	r.printf("  %-20s: 0x%X\n", "镜像基址", r.info.ImageBase)
	r.printf("  %-20s: 0x%08X\n", "时间戳", r.img.COFFHeader.TimeDateStamp)
	r.printf("  %-20s: %d 字节\n", "DOS存根", len(r.img.Stub))

	r.printf("  %-20s: ", "校验和")
	if r.info.Checksum == 0 {
		gray := color.New(color.FgHiBlack)
		_, _ = gray.Fprint(r.out, "未设置")
	} else {
		r.printf("0x%08X", r.info.Checksum)
	}
	r.printf("\n")

	if r.info.OverlaySize > 0 {
		r.printf("  %-20s: %s\n", "附加数据", formatSize(int64(r.info.OverlaySize)))
	}
}

func (r *Reporter) printDirectories() {
	r.title("【数据目录】(共 %d 个)", len(r.info.Directories))
	if len(r.info.Directories) == 0 {
		r.printf("  未发现数据目录\n")
		return
	}
	for _, d := range r.info.Directories {
		r.printf("  %2d. %-24s 0x%08X  %s\n", d.Index, d.Name, d.VirtualAddress, formatSize(int64(d.Size)))
	}
}

func (r *Reporter) printSections() {
	sections := r.info.Sections

	if r.suspiciousOnly {
		var suspicious []pe.SectionInfo
		for _, s := range sections {
			if s.Permissions == "RWX" {
				suspicious = append(suspicious, s)
			}
		}
		sections = suspicious
	}

	if r.suspiciousOnly {
		r.title("【可疑节区】(共 %d 个)", len(sections))
	} else {
		r.title("【节区信息】(共 %d 个)", len(sections))
	}

	if len(sections) == 0 {
		if r.suspiciousOnly {
			r.printf("  未发现可疑节区\n")
		} else {
			r.printf("  未发现节区\n")
		}
		return
	}

	r.printf("%s\n", strings.Repeat("-", 100))
	r.printf("  %-10s %-12s %-15s %-15s %-8s %-8s %-12s\n",
		"名称", "虚拟地址", "虚拟大小", "原始大小", "权限", "熵", "特征")
	r.printf("%s\n", strings.Repeat("-", 100))

	for _, section := range sections {
		permColor := color.New(color.FgWhite)
		if section.Permissions == "RWX" {
			permColor = color.New(color.FgRed, color.Bold)
		} else if strings.Contains(section.Permissions, "X") {
			permColor = color.New(color.FgYellow)
		}

		r.printf("  %-10s 0x%08X   %-15s %-15s ",
			section.Name,
			section.VirtualAddress,
			formatSize(int64(section.VirtualSize)),
			formatSize(int64(section.Size)),
		)
		_, _ = permColor.Fprintf(r.out, "%-8s", section.Permissions)
		r.printf(" %-8.2f 0x%08X\n", section.Entropy, section.Characteristics)
	}
	r.printf("%s\n", strings.Repeat("-", 100))
}

func (r *Reporter) printResources() {
	r.title("【资源】(共 %d 项)", len(r.info.Resources))
	if len(r.info.Resources) == 0 {
		r.printf("  未发现资源\n")
		return
	}

	for i, res := range r.info.Resources {
		if !r.verbose && i >= maxResources {
			gray := color.New(color.FgHiBlack)
			_, _ = gray.Fprintf(r.out, "  ... (还有 %d 项)\n", len(r.info.Resources)-i)
			break
		}
		r.printf("  %-14s ID %-6d 语言 0x%04X  %-10s 代码页 %d\n",
			res.Type, res.NameID, res.Language, formatSize(int64(res.Size)), res.CodePage)
	}

	vi, err := rsrc.FindVersionInfo(r.img.Resources)
	if err != nil {
		red := color.New(color.FgRed)
		_, _ = red.Fprintf(r.out, "  版本信息解析失败: %v\n", err)
	} else if vi != nil {
		green := color.New(color.FgGreen)
		_, _ = green.Fprintf(r.out, "\n  版本信息:\n")
		r.printf("    %-18s: %s\n", "文件版本", vi.FileVersion())
		r.printf("    %-18s: %s\n", "产品版本", vi.ProductVersion())
		for _, key := range []string{"CompanyName", "ProductName", "FileDescription", "OriginalFilename"} {
			if v := vi.Lookup(key); v != "" {
				r.printf("    %-18s: %s\n", key, v)
			}
		}
	}

	if groups, err := rsrc.FindIconGroups(r.img.Resources); err == nil && len(groups) > 0 {
		r.printf("\n  图标组: %d 个\n", len(groups))
		for i, g := range groups {
			for _, e := range g.Entries {
				r.printf("    %d. %dx%d %d位 %s\n", i+1, iconDim(e.Width), iconDim(e.Height), e.BitCount, formatSize(int64(e.BytesInRes)))
			}
		}
	}
}

// iconDim maps the stored zero to 256.
func iconDim(b uint8) int {
	if b == 0 {
		return 256
	}
	return int(b)
}

func (r *Reporter) printImports() {
	r.title("【导入表】(共 %d 个DLL)", len(r.info.Imports))

	if len(r.info.Imports) == 0 {
		r.printf("  未发现导入\n")
		return
	}

	for i, imp := range r.info.Imports {
		green := color.New(color.FgGreen)
		funcCount := len(imp.Functions)
		_, _ = green.Fprintf(r.out, "  %3d. %s (%d 个函数)\n", i+1, imp.DLL, funcCount)

		maxDisplay := r.maxImports
		if r.verbose {
			maxDisplay = funcCount
		}
		displayCount := funcCount
		if displayCount > maxDisplay {
			displayCount = maxDisplay
		}

		for j := 0; j < displayCount; j++ {
			r.printf("       - %s\n", imp.Functions[j])
		}

		if funcCount > maxDisplay {
			gray := color.New(color.FgHiBlack)
			_, _ = gray.Fprintf(r.out, "       ... (还有 %d 个函数)\n", funcCount-maxDisplay)
		}
	}
}

func (r *Reporter) printExports() {
	r.title("【导出表】(共 %d 个函数)", len(r.info.Exports))

	if len(r.info.Exports) == 0 {
		r.printf("  未发现导出\n")
		return
	}
	if r.img.Exports != nil && r.img.Exports.Name != "" {
		r.printf("  模块名: %s\n", r.img.Exports.Name)
	}

	maxDisplay := r.maxExports
	if r.verbose {
		maxDisplay = len(r.info.Exports)
	}

	displayCount := len(r.info.Exports)
	if displayCount > maxDisplay {
		displayCount = maxDisplay
	}

	green := color.New(color.FgGreen)
	for i := 0; i < displayCount; i++ {
		_, _ = green.Fprintf(r.out, "  %3d. %s\n", i+1, r.info.Exports[i])
	}

	if len(r.info.Exports) > maxDisplay {
		gray := color.New(color.FgHiBlack)
		_, _ = gray.Fprintf(r.out, "  ... (还有 %d 个函数)\n", len(r.info.Exports)-maxDisplay)
	}
}

func (r *Reporter) printLoadConfig() {
	lc := r.img.LoadConfig
	if lc == nil {
		return
	}
	r.title("【加载配置】")
	r.printf("  %-20s: %d\n", "大小", lc.Characteristics)
	r.printf("  %-20s: 0x%08X\n", "时间戳", lc.TimeDateStamp)
	r.printf("  %-20s: 0x%X\n", "安全Cookie", lc.SecurityCookie)
	r.printf("  %-20s: 0x%X (%d 个)\n", "SEH处理表", lc.SEHandlerTable, lc.SEHandlerCount)
	if r.verbose {
		r.printf("  %-20s: 0x%X\n", "DeCommitFree", lc.DeCommitFreeBlockThreshold)
		r.printf("  %-20s: 0x%X\n", "DeCommitTotal", lc.DeCommitTotalFreeThreshold)
		r.printf("  %-20s: 0x%X\n", "ProcessHeapFlags", lc.ProcessHeapFlags)
	}
}

func (r *Reporter) printDebug() {
	if len(r.img.Debug) == 0 {
		return
	}
	r.title("【调试目录】(共 %d 项)", len(r.img.Debug))
	for i, d := range r.img.Debug {
		r.printf("  %d. %-12s RVA 0x%08X  %s\n", i+1, debugTypeName(d.Type), d.AddressOfRawData, formatSize(int64(d.SizeOfData)))
	}
}

func debugTypeName(t uint32) string {
	switch t {
	case 1:
		return "COFF"
	case 2:
		return "CODEVIEW"
	case 4:
		return "MISC"
	case 12:
		return "VC_FEATURE"
	case 13:
		return "POGO"
	case 16:
		return "REPRO"
	default:
		return fmt.Sprintf("类型 %d", t)
	}
}

// PrintCodeCaves prints the caves found with at least minSize bytes.
func (r *Reporter) PrintCodeCaves(caves []pe.CodeCave, minSize int) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	r.printf("\n")
	_, _ = cyan.Fprintf(r.out, "========== Code Caves (最小 %d 字节) ==========\n", minSize)

	if len(caves) == 0 {
		_, _ = yellow.Fprintln(r.out, "未发现符合条件的 Code Caves")
		return
	}

	_, _ = green.Fprintf(r.out, "发现 %d 个可用 Code Caves:\n\n", len(caves))

	for i, cave := range caves {
		fillPattern := "0x00"
		if cave.FillByte == 0xCC {
			fillPattern = "0xCC (INT3)"
		}

		r.printf("%d. 节区: %s\n", i+1, cave.Section)
		r.printf("   文件偏移: 0x%08X\n", cave.Offset)
		r.printf("   RVA:      0x%08X\n", cave.RVA)
		r.printf("   大小:     %d 字节\n", cave.Size)
		r.printf("   填充:     %s\n\n", fillPattern)
	}
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
