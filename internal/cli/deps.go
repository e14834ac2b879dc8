package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/ZacharyZcR/pecoff/internal/pe"
)

// PrintDependencies prints analysis as a tree followed by a summary, or as a
// flat list.
func PrintDependencies(w io.Writer, analysis *pe.DependencyAnalysis, flat bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	_, _ = fmt.Fprintln(w)
	_, _ = cyan.Fprintf(w, "========== 依赖分析 ==========\n")

	if flat {
		PrintDependencyList(w, analysis)
		return
	}

	_, _ = green.Fprintf(w, "\n依赖树:\n")
	PrintDependencyTree(w, analysis.Root, "", false)

	_, _ = fmt.Fprintf(w, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	_, _ = fmt.Fprintf(w, "总计: %d 个依赖\n", analysis.TotalCount)
	_, _ = fmt.Fprintf(w, "最大深度: %d\n", analysis.MaxDepth)
	if analysis.HasCycles {
		_, _ = fmt.Fprintf(w, "存在循环依赖\n")
	}

	if len(analysis.MissingDeps) > 0 {
		_, _ = red.Fprintf(w, "\n⚠️  缺失 %d 个依赖:\n", len(analysis.MissingDeps))
		for _, dll := range analysis.MissingDeps {
			_, _ = red.Fprintf(w, "  - %s\n", dll)
		}
	}
}

// PrintDependencyTree prints node and its children with box-drawing markers.
func PrintDependencyTree(w io.Writer, node *pe.DependencyNode, prefix string, isLast bool) {
	if node == nil {
		return
	}

	marker := "├── "
	if isLast {
		marker = "└── "
	}
	if node.Depth == 0 {
		marker = ""
	}

	status := ""
	if !node.Found {
		status = " ⚠️ (未找到)"
	} else if node.Path == pe.SystemPath {
		status = " (系统)"
	}

	_, _ = fmt.Fprintf(w, "%s%s%s%s\n", prefix, marker, node.Name, status)

	childPrefix := prefix
	if node.Depth > 0 {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}

	for i, child := range node.Dependencies {
		PrintDependencyTree(w, child, childPrefix, i == len(node.Dependencies)-1)
	}
}

// PrintDependencyList prints a summary and every dependency sorted by name.
func PrintDependencyList(w io.Writer, analysis *pe.DependencyAnalysis) {
	_, _ = fmt.Fprintf(w, "\n依赖摘要:\n")
	_, _ = fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	_, _ = fmt.Fprintf(w, "总计依赖: %d 个\n", analysis.TotalCount)
	_, _ = fmt.Fprintf(w, "最大深度: %d\n", analysis.MaxDepth)
	_, _ = fmt.Fprintf(w, "循环依赖: %v\n", analysis.HasCycles)
	_, _ = fmt.Fprintf(w, "缺失依赖: %d 个\n\n", len(analysis.MissingDeps))

	if len(analysis.MissingDeps) > 0 {
		_, _ = fmt.Fprintf(w, "⚠️  缺失的 DLL:\n")
		for _, dll := range analysis.MissingDeps {
			_, _ = fmt.Fprintf(w, "  - %s\n", dll)
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	names := make([]string, 0, len(analysis.AllDeps))
	for dll := range analysis.AllDeps {
		names = append(names, dll)
	}
	sort.Strings(names)

	_, _ = fmt.Fprintf(w, "所有依赖:\n")
	for _, dll := range names {
		path := analysis.AllDeps[dll]
		if path == pe.SystemPath {
			_, _ = fmt.Fprintf(w, "  ✓ %s (系统DLL)\n", dll)
		} else {
			_, _ = fmt.Fprintf(w, "  ✓ %s\n", dll)
			_, _ = fmt.Fprintf(w, "    → %s\n", path)
		}
	}
}
