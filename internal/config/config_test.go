package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pecoff.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PECOFF_CONFIG", "PECOFF_VERBOSE", "PECOFF_STRICT", "PECOFF_NO_COLOR", "NO_COLOR",
		"PECOFF_FORMAT", "PECOFF_LOG_LEVEL", "PECOFF_MAX_IMPORTS", "PECOFF_MAX_EXPORTS",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.True(t, c.Color)
	assert.Equal(t, FormatText, c.Format)
	assert.Equal(t, hclog.Warn, c.Level())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
verbose = true
format = "yaml"
log_level = "debug"
max_imports = 5
search_paths = ["/opt/dlls"]
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Verbose)
	assert.Equal(t, FormatYAML, c.Format)
	assert.Equal(t, hclog.Debug, c.Level())
	assert.Equal(t, 5, c.MaxImports)
	assert.Equal(t, 20, c.MaxExports)
	assert.Equal(t, []string{"/opt/dlls"}, c.SearchPaths)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "format = \n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "colour = false\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestLoadFromEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("PECOFF_CONFIG", writeConfig(t, "max_exports = 7\n"))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, c.MaxExports)
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "format = \"yaml\"\nverbose = true\n")
	t.Setenv("PECOFF_FORMAT", "text")
	t.Setenv("PECOFF_VERBOSE", "false")
	t.Setenv("PECOFF_NO_COLOR", "1")
	t.Setenv("PECOFF_MAX_IMPORTS", "3")
	t.Setenv("PECOFF_STRICT", "true")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatText, c.Format)
	assert.False(t, c.Verbose)
	assert.False(t, c.Color)
	assert.True(t, c.Strict)
	assert.Equal(t, 3, c.MaxImports)
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	clearEnv(t)
	c, err := Load(writeConfig(t, "format = \"yaml\"\nmax_imports = 4\n"))
	require.NoError(t, err)

	fs := flag.NewFlagSet("pecoff", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-no-color", "-max-exports", "2", "-config", "x.toml", "a.exe"}))
	flags.Apply(c)

	assert.Equal(t, "x.toml", flags.ConfigPath)
	assert.False(t, c.Color)
	assert.Equal(t, 2, c.MaxExports)
	// Untouched flags keep the file values.
	assert.Equal(t, FormatYAML, c.Format)
	assert.Equal(t, 4, c.MaxImports)
	assert.Equal(t, []string{"a.exe"}, fs.Args())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"yaml", func(c *Config) { c.Format = FormatYAML }, false},
		{"unknown format", func(c *Config) { c.Format = "json" }, true},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"negative limit", func(c *Config) { c.MaxImports = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
