// Package config handles rod.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file looked up by Load.
const FileName = "rod.toml"

// Colour modes for the disassembly listing.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents a rod.toml project configuration.
type Config struct {
	Project   Project   `toml:"project"`
	Log       Log       `toml:"log"`
	Disasm    Disasm    `toml:"disasm"`
	Assembler Assembler `toml:"assembler"`

	// Dir is the directory containing the rod.toml file (set at load time).
	// Empty for Default.
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"` // listing assembled when no file is given
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"` // commonlog: -4 none .. 0 notice .. 2 debug
	File      string `toml:"file"`      // stderr when empty
}

// Disasm configures disassembly output.
type Disasm struct {
	Color string `toml:"color"`
	Lines bool   `toml:"lines"`
}

// Assembler configures the assembler.
type Assembler struct {
	DefaultStack int `toml:"default-stack"`
}

// Default returns the configuration used when no rod.toml exists.
func Default() *Config {
	return &Config{
		Log:       Log{Verbosity: 0},
		Disasm:    Disasm{Color: ColorAuto},
		Assembler: Assembler{DefaultStack: 16},
	}
}

// Load parses a rod.toml file from the given directory. Keys not set in
// the file keep their Default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a rod.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values the TOML types cannot express.
func (c *Config) Validate() error {
	switch c.Disasm.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("disasm.color = %q, want %s, %s or %s", c.Disasm.Color, ColorAuto, ColorAlways, ColorNever)
	}
	if c.Assembler.DefaultStack < 0 || c.Assembler.DefaultStack > 0xFFFF {
		return fmt.Errorf("assembler.default-stack = %d, out of range", c.Assembler.DefaultStack)
	}
	if c.Log.Verbosity < -4 || c.Log.Verbosity > 4 {
		return fmt.Errorf("log.verbosity = %d, out of range", c.Log.Verbosity)
	}
	return nil
}

// UseColor resolves the colour mode. terminal reports whether the output
// is a terminal, which decides the auto mode.
func (c *Config) UseColor(terminal bool) bool {
	switch c.Disasm.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return terminal
	}
}

// LogPath returns the log file for commonlog.Configure, or nil for stderr.
// Relative paths are resolved against Dir.
func (c *Config) LogPath() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}
	return &path
}

// EntryPath returns the absolute path of the project entry listing, or ""
// if none is configured.
func (c *Config) EntryPath() string {
	if c.Project.Entry == "" {
		return ""
	}
	if filepath.IsAbs(c.Project.Entry) || c.Dir == "" {
		return c.Project.Entry
	}
	return filepath.Join(c.Dir, c.Project.Entry)
}
