// Package config handles configuration loading and defaults for packsmith.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete tool configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Library configuration for the local pack catalog.
	Library LibraryConfig `toml:"library" json:"library" yaml:"library"`

	// Device configuration for discovery and watching.
	Device DeviceConfig `toml:"device" json:"device" yaml:"device"`

	// Search configuration for the podcast directories.
	Search SearchConfig `toml:"search" json:"search" yaml:"search"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// LibraryConfig holds catalog configuration.
type LibraryConfig struct {
	// Path is the path to the catalog database file.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// DeviceConfig holds device discovery configuration.
type DeviceConfig struct {
	// MountParents are extra directories scanned for mounted devices, on
	// top of the platform's usual mount locations.
	MountParents []string `toml:"mount_parents" json:"mount_parents" yaml:"mount_parents"`

	// WatchIntervalMs is the fallback rescan interval while watching for
	// device arrivals, in milliseconds.
	WatchIntervalMs int `toml:"watch_interval_ms" json:"watch_interval_ms" yaml:"watch_interval_ms"`
}

// SearchConfig holds podcast search configuration.
type SearchConfig struct {
	// ITunesURL is the iTunes search endpoint.
	ITunesURL string `toml:"itunes_url" json:"itunes_url" yaml:"itunes_url"`

	// AerionURL is the Radio France Aerion search endpoint.
	AerionURL string `toml:"aerion_url" json:"aerion_url" yaml:"aerion_url"`

	// Limit is the maximum result count requested per source.
	Limit int `toml:"limit" json:"limit" yaml:"limit"`

	// TimeoutSec is the per-request timeout in seconds.
	TimeoutSec int `toml:"timeout_sec" json:"timeout_sec" yaml:"timeout_sec"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format: "auto" picks text on terminals and
	// logfmt otherwise; "text", "logfmt" and "json" force one.
	Format string `toml:"format" json:"format" yaml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	dir := PacksmithDir()

	return &Config{
		Version: Version,
		Library: LibraryConfig{
			Path: filepath.Join(dir, "catalog.db"),
		},
		Device: DeviceConfig{
			MountParents:    []string{},
			WatchIntervalMs: 2000,
		},
		Search: SearchConfig{
			Limit:      15,
			TimeoutSec: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PacksmithDir(), "config.toml")
}

// Load reads configuration from the specified path. An empty path means
// the default location; a missing file means defaults. The format follows
// the file extension, TOML when in doubt.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode config (unknown format): %w", err)
		}
	}

	cfg.ApplyEnvOverrides()

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides. Variables are
// prefixed with PACKSMITH_ and beat whatever the file said.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PACKSMITH_LIBRARY_PATH"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("PACKSMITH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PACKSMITH_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PACKSMITH_ITUNES_URL"); v != "" {
		c.Search.ITunesURL = v
	}
	if v := os.Getenv("PACKSMITH_AERION_URL"); v != "" {
		c.Search.AerionURL = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "auto", "text", "logfmt", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	if c.Library.Path == "" {
		return fmt.Errorf("library path must not be empty")
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search limit must be positive, got %d", c.Search.Limit)
	}
	if c.Search.TimeoutSec <= 0 {
		return fmt.Errorf("search timeout must be positive, got %d", c.Search.TimeoutSec)
	}
	if c.Device.WatchIntervalMs < 0 {
		return fmt.Errorf("watch interval must not be negative, got %d", c.Device.WatchIntervalMs)
	}

	return nil
}

// EnsureDirectories creates the directories the configuration points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Library.Path),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// PacksmithDir returns the base data directory. PACKSMITH_DATA_DIR
// overrides platform detection.
func PacksmithDir() string {
	if envDir := os.Getenv("PACKSMITH_DATA_DIR"); envDir != "" {
		return envDir
	}
	return platformDataDir()
}

// platformDataDir follows each platform's conventions, XDG on Linux.
func platformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", "packsmith")
	case "linux":
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "packsmith")
		}
		return filepath.Join(homeDir(), ".local", "share", "packsmith")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "packsmith")
		}
		return filepath.Join(homeDir(), "packsmith")
	default:
		return filepath.Join(homeDir(), ".packsmith")
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
