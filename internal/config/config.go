// Package config loads pecoff settings from defaults, an optional TOML file,
// PECOFF_* environment variables and command-line flags, in that order.
package config

import (
	"flag"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
)

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Config holds CLI and GUI settings.
type Config struct {
	Verbose     bool     `toml:"verbose"`
	Color       bool     `toml:"color"`
	Format      string   `toml:"format"`
	LogLevel    string   `toml:"log_level"`
	Strict      bool     `toml:"strict"`
	MaxImports  int      `toml:"max_imports"`
	MaxExports  int      `toml:"max_exports"`
	DepsDepth   int      `toml:"deps_depth"`
	CaveMinSize int      `toml:"cave_min_size"`
	SearchPaths []string `toml:"search_paths"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Color:       true,
		Format:      FormatText,
		LogLevel:    "warn",
		MaxImports:  10,
		MaxExports:  20,
		DepsDepth:   3,
		CaveMinSize: 64,
	}
}

// Load returns the defaults overlaid with the TOML file at path (or at
// $PECOFF_CONFIG when path is empty) and then the environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		path = env.Str("PECOFF_CONFIG")
	}
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, err
		}
	}
	c.ApplyEnv()
	return c, nil
}

// LoadFile overlays the keys present in a TOML file. Unknown keys are an
// error.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrapf(err, "读取配置文件 %s 失败", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.Errorf("配置文件 %s 包含未知键: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overlays PECOFF_* environment variables. NO_COLOR is honoured as
// well.
func (c *Config) ApplyEnv() {
	if env.Has("PECOFF_VERBOSE") {
		c.Verbose = env.Bool("PECOFF_VERBOSE")
	}
	if env.Has("PECOFF_STRICT") {
		c.Strict = env.Bool("PECOFF_STRICT")
	}
	if env.Has("PECOFF_NO_COLOR") || env.Has("NO_COLOR") {
		c.Color = false
	}
	c.Format = env.Str("PECOFF_FORMAT", c.Format)
	c.LogLevel = env.Str("PECOFF_LOG_LEVEL", c.LogLevel)
	c.MaxImports = env.Int("PECOFF_MAX_IMPORTS", c.MaxImports)
	c.MaxExports = env.Int("PECOFF_MAX_EXPORTS", c.MaxExports)
}

// Validate rejects unknown formats, log levels and negative limits.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatYAML:
	default:
		return errors.Errorf("未知的输出格式: %q (可选 text, yaml)", c.Format)
	}
	if c.Level() == hclog.NoLevel {
		return errors.Errorf("未知的日志级别: %q", c.LogLevel)
	}
	if c.MaxImports < 0 || c.MaxExports < 0 || c.DepsDepth < 0 || c.CaveMinSize < 0 {
		return errors.New("数量限制不能为负数")
	}
	return nil
}

// Level returns the hclog level named by LogLevel, or NoLevel.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// Flags are the command-line overrides. Only flags given on the command line
// replace configured values.
type Flags struct {
	ConfigPath string

	fs          *flag.FlagSet
	verbose     bool
	noColor     bool
	strict      bool
	format      string
	logLevel    string
	maxImports  int
	maxExports  int
	depsDepth   int
	caveMinSize int
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "TOML配置文件路径")
	fs.BoolVar(&f.verbose, "v", d.Verbose, "显示详细信息")
	fs.BoolVar(&f.noColor, "no-color", !d.Color, "禁用彩色输出")
	fs.BoolVar(&f.strict, "strict", d.Strict, "可选目录解析失败时直接报错")
	fs.StringVar(&f.format, "format", d.Format, "输出格式: text 或 yaml")
	fs.StringVar(&f.logLevel, "log-level", d.LogLevel, "日志级别: trace, debug, info, warn, error")
	fs.IntVar(&f.maxImports, "max-imports", d.MaxImports, "每个DLL显示的最大导入函数数")
	fs.IntVar(&f.maxExports, "max-exports", d.MaxExports, "显示的最大导出函数数")
	fs.IntVar(&f.depsDepth, "deps-depth", d.DepsDepth, "依赖分析的最大深度")
	fs.IntVar(&f.caveMinSize, "cave-min", d.CaveMinSize, "code cave 最小字节数")
	return f
}

// Apply copies the flags that were set on the command line into c.
func (f *Flags) Apply(c *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "v":
			c.Verbose = f.verbose
		case "no-color":
			c.Color = !f.noColor
		case "strict":
			c.Strict = f.strict
		case "format":
			c.Format = f.format
		case "log-level":
			c.LogLevel = f.logLevel
		case "max-imports":
			c.MaxImports = f.maxImports
		case "max-exports":
			c.MaxExports = f.maxExports
		case "deps-depth":
			c.DepsDepth = f.depsDepth
		case "cave-min":
			c.CaveMinSize = f.caveMinSize
		}
	})
}
