// Package main provides the pecoff CLI tool.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/ZacharyZcR/pecoff/internal/cli"
	"github.com/ZacharyZcR/pecoff/internal/config"
	"github.com/ZacharyZcR/pecoff/internal/pe"
)

var (
	// Analysis flags.
	suspiciousOnly = flag.Bool("s", false, "仅显示可疑节区（RWX权限）")
	detectCaves    = flag.Bool("caves", false, "检测Code Caves（可注入代码的空隙）")
	analyzeDeps    = flag.Bool("deps", false, "分析依赖关系（递归检测所有DLL依赖）")
	flatList       = flag.Bool("flat", false, "依赖分析使用扁平列表格式（默认: 树状）")
	roundTrip      = flag.Bool("roundtrip", false, "重新编码并与原文件逐字节比较")
	debugErrors    = flag.Bool("debug", false, "出错时打印完整调用栈")

	// Patch flags.
	sectionName = flag.String("section", "", "要修改的节区名称")
	permissions = flag.String("perms", "", "新的权限 (例如: R-X, RW-, RWX)")
	entryPoint  = flag.String("entry", "", "新的入口点地址 (十六进制，例如: 0x1000)")
	outputPath  = flag.String("o", "", "修改结果的输出路径（默认覆盖原文件）")
	updateCksum = flag.Bool("update-checksum", true, "修改后更新校验和")
	backup      = flag.Bool("backup", true, "覆盖原文件前创建备份文件")
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := run(flags, flag.Arg(0)); err != nil {
		red := color.New(color.FgRed, color.Bold)
		if *debugErrors {
			_, _ = red.Fprintf(os.Stderr, "\n错误: %+v\n\n", err)
		} else {
			_, _ = red.Fprintf(os.Stderr, "\n错误: %v\n\n", err)
		}
		os.Exit(1)
	}
}

func run(flags *config.Flags, path string) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	color.NoColor = color.NoColor || !cfg.Color

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "pecoff",
		Level:  cfg.Level(),
		Output: os.Stderr,
		Color:  hclog.AutoColor,
	})
	logger.Debug("已加载配置", "format", cfg.Format, "strict", cfg.Strict)

	f, err := pe.Open(path, pe.WithLogger(logger), pe.WithStrict(cfg.Strict))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if *sectionName != "" || *entryPoint != "" {
		return patchPE(f, logger)
	}
	return analyzePE(f, cfg, logger)
}

func analyzePE(f *pe.File, cfg *config.Config, logger hclog.Logger) error {
	info := pe.Summarize(f.Image, f.Path(), f.Size())

	if cfg.Format == config.FormatYAML {
		if err := cli.Dump(os.Stdout, f.Image, info); err != nil {
			return errors.Wrap(err, "输出YAML失败")
		}
	} else {
		reporter := cli.NewReporter(os.Stdout, f.Image, info)
		reporter.SetVerbose(cfg.Verbose)
		reporter.SetSuspiciousOnly(*suspiciousOnly)
		reporter.SetLimits(cfg.MaxImports, cfg.MaxExports)
		reporter.Print()

		if *detectCaves {
			caves := f.Sections.FindCodeCaves(uint32(cfg.CaveMinSize))
			reporter.PrintCodeCaves(caves, cfg.CaveMinSize)
		}
	}

	if *roundTrip {
		if err := checkRoundTrip(f); err != nil {
			return err
		}
	}

	if *analyzeDeps {
		searchPaths := append(append([]string(nil), cfg.SearchPaths...), pe.DefaultSearchPaths()...)
		analysis, err := pe.AnalyzeDependencies(f.Path(), cfg.DepsDepth, searchPaths, pe.WithLogger(logger.Named("deps")))
		if err != nil {
			return errors.Wrap(err, "依赖分析失败")
		}
		cli.PrintDependencies(os.Stdout, analysis, *flatList)
	}
	fmt.Println()
	return nil
}

func checkRoundTrip(f *pe.File) error {
	out, err := pe.Assemble(f.Image)
	if err != nil {
		return errors.Wrap(err, "重新编码失败")
	}

	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Printf("\n========== 往返校验 ==========\n")

	first, count := cli.Diff(f.Raw(), out)
	if first < 0 {
		green := color.New(color.FgGreen)
		_, _ = green.Printf("✓ 重新编码结果与原文件一致 (%d 字节)\n", len(out))
		return nil
	}
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Printf("✗ 首个差异位于 0x%X, 共 %d 字节不同 (原始 %d 字节, 重新编码 %d 字节)\n",
		first, count, len(f.Raw()), len(out))
	return errors.Errorf("往返校验失败")
}

func patchPE(f *pe.File, logger hclog.Logger) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen, color.Bold)

	if *sectionName != "" {
		if *permissions == "" {
			return errors.New("修改节区时必须指定 -perms")
		}
		read, write, execute, err := parsePermissions(*permissions)
		if err != nil {
			return err
		}
		_, _ = cyan.Printf("正在修改节区 '%s' 的权限...\n", *sectionName)
		if err := f.SetSectionPermissions(*sectionName, read, write, execute); err != nil {
			return err
		}
	}

	if *entryPoint != "" {
		newEntry, err := parseHexAddress(*entryPoint)
		if err != nil {
			return err
		}
		_, _ = cyan.Printf("当前入口点: 0x%X\n", f.EntryPoint())
		_, _ = cyan.Printf("正在修改入口点为: 0x%X...\n", newEntry)
		if err := f.SetEntryPoint(newEntry); err != nil {
			return err
		}
	}

	out, err := pe.AssembleWithOptions(f.Image, pe.AssembleOptions{UpdateChecksum: *updateCksum})
	if err != nil {
		return err
	}

	dst := *outputPath
	if dst == "" {
		dst = f.Path()
		if *backup {
			if err := writeFile(dst+".bak", f.Raw()); err != nil {
				return errors.Wrap(err, "创建备份失败")
			}
			_, _ = green.Printf("✓ 已创建备份: %s.bak\n", dst)
		}
	}
	// The mapping must be released before the source is overwritten.
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "关闭PE文件失败")
	}
	if err := writeFile(dst, out); err != nil {
		return errors.Wrap(err, "写入PE文件失败")
	}
	logger.Info("已写入", "path", dst, "size", len(out), "checksum", fmt.Sprintf("0x%08X", f.OptionalHeader.CheckSum))

	fmt.Println()
	if *sectionName != "" {
		_, _ = green.Printf("✓ 成功修改节区权限: %s -> %s\n", *sectionName, strings.ToUpper(*permissions))
	}
	if *entryPoint != "" {
		_, _ = green.Printf("✓ 成功修改入口点: %s\n", *entryPoint)
	}
	fmt.Println()
	return nil
}

func writeFile(path string, data []byte) error {
	mode := os.FileMode(0o666)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

func parseHexAddress(addr string) (uint32, error) {
	var result uint32
	_, err := fmt.Sscanf(addr, "0x%x", &result)
	if err != nil {
		_, err = fmt.Sscanf(addr, "%x", &result)
		if err != nil {
			return 0, errors.Errorf("入口点地址格式错误: %s (应为十六进制，例如: 0x1000)", addr)
		}
	}
	return result, nil
}

func parsePermissions(perms string) (read, write, execute bool, err error) {
	if len(perms) != 3 {
		return false, false, false, errors.New("权限格式错误，应为3个字符，例如: R-X, RW-, RWX")
	}

	read = perms[0] == 'R' || perms[0] == 'r'
	write = perms[1] == 'W' || perms[1] == 'w'
	execute = perms[2] == 'X' || perms[2] == 'x'

	return read, write, execute, nil
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\npecoff - PE/COFF 解码、重新编码和修改工具")

	fmt.Println("\n分析模式用法:")
	fmt.Println("  pecoff [选项] <PE文件路径>")
	fmt.Println("\n分析选项:")
	fmt.Println("  -v              详细模式：显示所有导入/导出函数（不限制数量）")
	fmt.Println("  -s              仅显示可疑节区（RWX权限，潜在安全风险）")
	fmt.Println("  -format <格式>  输出格式: text（默认）或 yaml")
	fmt.Println("  -roundtrip      重新编码并与原文件逐字节比较")
	fmt.Println("  -caves          检测Code Caves（可注入代码的空隙）")
	fmt.Println("  -cave-min       Code Cave最小大小（字节，默认: 64）")
	fmt.Println("  -deps           分析依赖关系（递归检测所有DLL依赖）")
	fmt.Println("  -deps-depth     依赖分析最大深度（默认: 3，防止无限递归）")
	fmt.Println("  -flat           依赖分析使用扁平列表格式（默认: 树状）")
	fmt.Println("  -strict         可选目录（资源、导入等）解析失败时直接报错")

	fmt.Println("\n修改模式用法:")
	fmt.Println("  pecoff -section <名称> -perms <RWX> [-entry <地址>] [-o 输出] <PE文件路径>")
	fmt.Println("\n修改选项:")
	fmt.Println("  -section <名称>       要修改的节区名称（例如: .text, .data）")
	fmt.Println("  -perms <RWX>          新的权限，3个字符：R(读) W(写) X(执行)，用'-'表示无")
	fmt.Println("  -entry <地址>         新的入口点地址（十六进制，例如: 0x1000）")
	fmt.Println("  -o <路径>             输出路径（默认覆盖原文件）")
	fmt.Println("  -backup               覆盖前创建备份（默认: true）")
	fmt.Println("  -update-checksum      修改后更新校验和（默认: true）")

	fmt.Println("\n通用选项:")
	fmt.Println("  -config <路径>        TOML配置文件（也可用 PECOFF_CONFIG 指定）")
	fmt.Println("  -log-level <级别>     日志级别: trace, debug, info, warn, error")
	fmt.Println("  -no-color             禁用彩色输出")
	fmt.Println("  -debug                出错时打印完整调用栈")

	fmt.Println("\n示例:")
	fmt.Println("  pecoff C:\\Windows\\System32\\notepad.exe")
	fmt.Println("  pecoff -format yaml program.exe > program.yaml")
	fmt.Println("  pecoff -roundtrip -log-level debug program.exe")
	fmt.Println("  pecoff -deps -deps-depth 5 program.exe")
	fmt.Println("  pecoff -section .text -perms R-X -o hardened.exe program.exe")
	fmt.Println("  pecoff -entry 0x2000 program.exe")
	fmt.Println()
}
