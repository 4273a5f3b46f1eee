package logging

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config controls the package's default logger. The library itself never
// reads a file, flag, or environment variable to populate one (spec.md
// §6): callers construct Config in code, or, if they choose to keep a
// YAML file of their own, decode it with ParseConfigYAML before passing
// the result to New. Tagged the way the teacher tags its own config
// structs, for callers who do keep one.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json

	Console ConsoleConfig `yaml:"console"`
	File    FileConfig    `yaml:"file"`

	// DedupWindow bounds how many distinct log entries DedupHandler
	// buffers before it flushes all of them at once. Zero disables
	// deduplication.
	DedupWindow int `yaml:"dedup_window"`
}

// ConsoleConfig controls console output.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// FileConfig controls rotated file output. Disabled by default: enabling
// it is the one way this package touches disk, and it is opt-in.
type FileConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ParseConfigYAML decodes a Config from r. It does not open any file
// itself — the caller supplies the reader — so it doesn't reintroduce the
// on-disk-state the library otherwise avoids; it just saves callers who
// do keep a YAML file from hand-rolling the unmarshal.
func ParseConfigYAML(r io.Reader) (Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("logging: parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// DefaultConfig returns a console-only, text-format, info-level config
// with log deduplication enabled — the default for a library that must
// not write to disk unless explicitly told to.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "text",
		DedupWindow: 1024,
		Console: ConsoleConfig{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
	}
}

// ApplyDefaults fills gaps in a partially-populated Config, mirroring the
// teacher's LoggingConfig.ApplyDefaults.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Console.Level == "" {
		c.Console.Level = c.Level
	}
	if c.Console.Format == "" {
		c.Console.Format = c.Format
	}
	if c.File.Level == "" {
		c.File.Level = c.Level
	}
	if c.File.Format == "" {
		c.File.Format = c.Format
	}
	if c.File.Enabled {
		if c.File.MaxSizeMB == 0 {
			c.File.MaxSizeMB = 100
		}
		if c.File.MaxBackups == 0 {
			c.File.MaxBackups = 10
		}
		if c.File.MaxAgeDays == 0 {
			c.File.MaxAgeDays = 30
		}
	}
}
