// Package config loads sqitchprism settings from ~/.sqitchprism/config.yaml
// and applies environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the per-user directory for config, history and update cache
	AppDir = ".sqitchprism"

	// FileName is the config file inside AppDir
	FileName = "config.yaml"

	DefaultAddr               = "127.0.0.1:7717"
	DefaultMaxHistoryFiles    = 50
	DefaultUpdateIntervalDays = 7
)

// Theme values
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ServeConfig configures the web viewer
type ServeConfig struct {
	Addr        string `yaml:"addr"`
	OpenBrowser bool   `yaml:"open_browser"`
}

// HistoryConfig configures plan snapshots
type HistoryConfig struct {
	MaxFiles int `yaml:"max_files"`
}

// UpdateCheckConfig configures release checks
type UpdateCheckConfig struct {
	Skip         bool `yaml:"skip"`
	IntervalDays int  `yaml:"interval_days"`
}

// Config models ~/.sqitchprism/config.yaml
type Config struct {
	Theme       string            `yaml:"theme"`
	Format      string            `yaml:"format"`
	Direction   string            `yaml:"direction"`
	Serve       ServeConfig       `yaml:"serve"`
	History     HistoryConfig     `yaml:"history"`
	UpdateCheck UpdateCheckConfig `yaml:"update_check"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Theme:     ThemeAuto,
		Format:    "mermaid",
		Direction: "LR",
		Serve: ServeConfig{
			Addr: DefaultAddr,
		},
		History: HistoryConfig{
			MaxFiles: DefaultMaxHistoryFiles,
		},
		UpdateCheck: UpdateCheckConfig{
			IntervalDays: DefaultUpdateIntervalDays,
		},
	}
}

// Dir returns ~/.sqitchprism
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, AppDir), nil
}

// Path returns the config file path
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the user config file and applies environment overrides.
// A missing file yields the defaults.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path and applies environment overrides
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// IsTruthy reports whether an env value means "on"
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func (c *Config) applyEnv() {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("SQITCHPRISM_THEME"))); v != "" {
		c.Theme = v
	}
	if v := strings.TrimSpace(os.Getenv("SQITCHPRISM_FORMAT")); v != "" {
		c.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("SQITCHPRISM_ADDR")); v != "" {
		c.Serve.Addr = v
	}
	if v := os.Getenv("SQITCHPRISM_SKIP_UPDATE_CHECK"); v != "" {
		c.UpdateCheck.Skip = IsTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv("SQITCHPRISM_UPDATE_CHECK_INTERVAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.UpdateCheck.IntervalDays = n
		}
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Direction == "" {
		c.Direction = d.Direction
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
	if c.History.MaxFiles <= 0 {
		c.History.MaxFiles = d.History.MaxFiles
	}
	if c.UpdateCheck.IntervalDays <= 0 {
		c.UpdateCheck.IntervalDays = d.UpdateCheck.IntervalDays
	}
}

// Validate rejects values the rest of the tool cannot act on
func (c Config) Validate() error {
	switch c.Theme {
	case ThemeAuto, ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("theme must be auto, light or dark, got %q", c.Theme)
	}
	switch strings.ToLower(c.Format) {
	case "mermaid", "dot":
	default:
		return fmt.Errorf("format must be mermaid or dot, got %q", c.Format)
	}
	switch strings.ToUpper(c.Direction) {
	case "LR", "TD", "TB":
	default:
		return fmt.Errorf("direction must be LR or TD, got %q", c.Direction)
	}
	return nil
}
