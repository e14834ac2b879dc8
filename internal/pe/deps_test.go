package pe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeImportingImage writes the test image with its second import renamed
// to dll (at most 15 bytes).
func writeImportingImage(t *testing.T, path, dll string) {
	t.Helper()
	ti := newTestImage()
	rdata := ti.section(".rdata").data
	copy(rdata[testDLL1Off:testHintName0Off], make([]byte, testHintName0Off-testDLL1Off))
	copy(rdata[testDLL1Off:], dll)
	require.NoError(t, os.WriteFile(path, ti.bytes(t), 0o644))
}

func TestAnalyzeDependencies(t *testing.T) {
	dir := t.TempDir()
	writeImportingImage(t, filepath.Join(dir, "main.exe"), "helper.dll")
	writeImportingImage(t, filepath.Join(dir, "helper.dll"), "missing.dll")

	a, err := AnalyzeDependencies(filepath.Join(dir, "main.exe"), 5, nil)
	require.NoError(t, err)

	assert.Equal(t, "main.exe", a.Root.Name)
	require.Len(t, a.Root.Dependencies, 1)
	helper := a.Root.Dependencies[0]
	assert.Equal(t, "helper.dll", helper.Name)
	assert.True(t, helper.Found)
	require.Len(t, helper.Dependencies, 1)
	assert.False(t, helper.Dependencies[0].Found)

	assert.Equal(t, SystemPath, a.AllDeps["KERNEL32.dll"])
	assert.Equal(t, filepath.Join(dir, "helper.dll"), a.AllDeps["helper.dll"])
	assert.Equal(t, []string{"missing.dll"}, a.MissingDeps)
	assert.Equal(t, 2, a.TotalCount)
	assert.Equal(t, 2, a.MaxDepth)
	assert.False(t, a.HasCycles)
}

func TestAnalyzeDependenciesCycle(t *testing.T) {
	dir := t.TempDir()
	writeImportingImage(t, filepath.Join(dir, "loop.dll"), "loop.dll")

	a, err := AnalyzeDependencies(filepath.Join(dir, "loop.dll"), 5, nil)
	require.NoError(t, err)
	assert.True(t, a.HasCycles)
	require.Len(t, a.Root.Dependencies, 1)
	assert.Empty(t, a.Root.Dependencies[0].Dependencies)
}

func TestAnalyzeDependenciesDepthLimit(t *testing.T) {
	dir := t.TempDir()
	writeImportingImage(t, filepath.Join(dir, "main.exe"), "helper.dll")
	writeImportingImage(t, filepath.Join(dir, "helper.dll"), "missing.dll")

	a, err := AnalyzeDependencies(filepath.Join(dir, "main.exe"), 1, nil)
	require.NoError(t, err)
	require.Len(t, a.Root.Dependencies, 1)
	assert.Empty(t, a.Root.Dependencies[0].Dependencies)
	assert.Empty(t, a.MissingDeps)
}

func TestAnalyzeDependenciesSearchPaths(t *testing.T) {
	dir, libs := t.TempDir(), t.TempDir()
	writeImportingImage(t, filepath.Join(dir, "main.exe"), "helper")
	writeImportingImage(t, filepath.Join(libs, "helper.dll"), "KERNEL32.dll")

	a, err := AnalyzeDependencies(filepath.Join(dir, "main.exe"), 3, []string{libs})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(libs, "helper.dll"), a.AllDeps["helper"])
}

func TestIsSystemDLL(t *testing.T) {
	assert.True(t, isSystemDLL("KERNEL32.DLL"))
	assert.True(t, isSystemDLL("api-ms-win-crt-runtime-l1-1-0.dll"))
	assert.False(t, isSystemDLL("helper.dll"))
}
