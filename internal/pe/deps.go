package pe

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xyproto/env/v2"
)

// SystemPath marks a dependency that is recorded but not searched for.
const SystemPath = "<system>"

// DependencyNode represents a node in the dependency tree.
type DependencyNode struct {
	Name         string            // DLL name
	Path         string            // Full path (if found)
	Found        bool              // Whether the DLL was found
	Dependencies []*DependencyNode // Child dependencies
	Depth        int               // Depth in dependency tree
}

// DependencyAnalysis contains the complete dependency analysis result.
type DependencyAnalysis struct {
	Root        *DependencyNode   // Root PE file
	AllDeps     map[string]string // All dependencies: name -> path
	MissingDeps []string          // List of missing dependencies
	TotalCount  int               // Total number of unique dependencies
	MaxDepth    int               // Maximum dependency depth
	HasCycles   bool              // Whether circular dependencies exist
}

// systemDLLs are well-known Windows DLLs that are never recursed into.
var systemDLLs = map[string]bool{
	"kernel32.dll": true, "ntdll.dll": true, "user32.dll": true, "gdi32.dll": true,
	"advapi32.dll": true, "ws2_32.dll": true, "msvcrt.dll": true, "shell32.dll": true,
	"ole32.dll": true, "comctl32.dll": true, "comdlg32.dll": true, "oleaut32.dll": true,
	"shlwapi.dll": true, "wininet.dll": true, "rpcrt4.dll": true, "crypt32.dll": true,
	"version.dll": true, "winspool.drv": true, "secur32.dll": true, "netapi32.dll": true,
	"userenv.dll": true, "psapi.dll": true, "iphlpapi.dll": true, "bcrypt.dll": true,
	"setupapi.dll": true, "cfgmgr32.dll": true, "wintrust.dll": true, "imagehlp.dll": true,
	"dbghelp.dll": true, "imm32.dll": true, "msimg32.dll": true, "powrprof.dll": true,
	"uxtheme.dll": true, "dwmapi.dll": true,
}

// DefaultSearchPaths returns the Windows system directories, the Wine
// system directories under $HOME and every entry of $PATH.
func DefaultSearchPaths() []string {
	paths := []string{
		`C:\Windows\System32`,
		`C:\Windows\SysWOW64`,
		`C:\Windows`,
	}
	if home := env.Str("HOME"); home != "" {
		paths = append(paths,
			filepath.Join(home, ".wine/drive_c/windows/system32"),
			filepath.Join(home, ".wine/drive_c/windows/syswow64"),
		)
	}
	return append(paths, filepath.SplitList(env.Str("PATH"))...)
}

type dependencyWalker struct {
	maxDepth    int
	searchPaths []string
	opts        []Option
	visited     map[string]bool
	analysis    *DependencyAnalysis
}

// AnalyzeDependencies builds the import dependency tree of the image at
// filePath down to maxDepth levels. DLLs are looked up in the importing
// file's directory first, then in searchPaths.
func AnalyzeDependencies(filePath string, maxDepth int, searchPaths []string, opts ...Option) (*DependencyAnalysis, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, err
	}
	w := &dependencyWalker{
		maxDepth:    maxDepth,
		searchPaths: searchPaths,
		opts:        opts,
		visited:     make(map[string]bool),
		analysis:    &DependencyAnalysis{AllDeps: make(map[string]string)},
	}
	w.analysis.Root = w.visit(filepath.Base(filePath), filePath, 0)
	w.analysis.TotalCount = len(w.analysis.AllDeps)
	return w.analysis, nil
}

func (w *dependencyWalker) visit(name, path string, depth int) *DependencyNode {
	node := &DependencyNode{Name: name, Path: path, Found: true, Depth: depth}
	if depth > w.analysis.MaxDepth {
		w.analysis.MaxDepth = depth
	}

	key := strings.ToLower(filepath.Base(path))
	if w.visited[key] {
		w.analysis.HasCycles = true
		return node
	}
	if depth >= w.maxDepth {
		return node
	}
	w.visited[key] = true
	defer delete(w.visited, key)

	f, err := Open(path, w.opts...)
	if err != nil {
		// Unreadable or not a PE image; keep the node as a leaf.
		return node
	}
	imports := f.Imports
	_ = f.Close()
	if imports == nil {
		return node
	}

	baseDir := filepath.Dir(path)
	for _, dll := range importedDLLs(imports) {
		if isSystemDLL(dll) {
			w.analysis.AllDeps[dll] = SystemPath
			continue
		}
		dllPath := findDLL(dll, baseDir, w.searchPaths)
		if dllPath == "" {
			if !contains(w.analysis.MissingDeps, dll) {
				w.analysis.MissingDeps = append(w.analysis.MissingDeps, dll)
			}
			if depth+1 > w.analysis.MaxDepth {
				w.analysis.MaxDepth = depth + 1
			}
			node.Dependencies = append(node.Dependencies, &DependencyNode{Name: dll, Depth: depth + 1})
			continue
		}
		w.analysis.AllDeps[dll] = dllPath
		node.Dependencies = append(node.Dependencies, w.visit(dll, dllPath, depth+1))
	}
	return node
}

// importedDLLs returns the distinct module names of dir, sorted.
func importedDLLs(dir *ImportDirectory) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range dir.Entries {
		if e.Name == "" || seen[strings.ToLower(e.Name)] {
			continue
		}
		seen[strings.ToLower(e.Name)] = true
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// findDLL locates dllName in baseDir or one of searchPaths.
func findDLL(dllName, baseDir string, searchPaths []string) string {
	if !strings.HasSuffix(strings.ToLower(dllName), ".dll") {
		dllName += ".dll"
	}
	for _, dir := range append([]string{baseDir}, searchPaths...) {
		fullPath := filepath.Join(dir, dllName)
		if st, err := os.Stat(fullPath); err == nil && !st.IsDir() {
			return fullPath
		}
	}
	return ""
}

// isSystemDLL checks if a DLL is a well-known Windows system DLL or API set.
func isSystemDLL(dllName string) bool {
	normalized := strings.ToLower(dllName)
	return systemDLLs[normalized] ||
		strings.HasPrefix(normalized, "api-ms-win-") ||
		strings.HasPrefix(normalized, "ext-ms-")
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
