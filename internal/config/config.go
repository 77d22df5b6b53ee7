// Package config handles configuration loading and validation for the
// m17n engine, and the per-engine style settings kept in the
// configuration store.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"ibus-m17n/internal/security"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the engine process configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// IBus holds the bus and component identity.
	IBus IBusConfig `toml:"ibus" json:"ibus" yaml:"ibus"`

	// Store locates the key-value settings database.
	Store StoreConfig `toml:"store" json:"store" yaml:"store"`

	// Keymaps lists extra keymap directories for the table backend.
	Keymaps KeymapsConfig `toml:"keymaps" json:"keymaps" yaml:"keymaps"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configures the engine statistics file.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	// Engines are catalog overrides, applied in order.
	Engines []EngineOverride `toml:"engines" json:"engines" yaml:"engines"`

	mu sync.RWMutex
}

// IBusConfig holds the IBus identity of the engine process.
type IBusConfig struct {
	// BusName is requested when the process is launched by ibus-daemon.
	BusName string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`

	// ComponentName identifies the component in the registry.
	ComponentName string `toml:"component_name" json:"component_name" yaml:"component_name"`

	// ExecPath is the command line written into the component XML.
	ExecPath string `toml:"exec_path" json:"exec_path" yaml:"exec_path"`

	// Textdomain for translated engine names.
	Textdomain string `toml:"textdomain" json:"textdomain" yaml:"textdomain"`

	// Address overrides bus address discovery when set.
	Address string `toml:"address" json:"address" yaml:"address"`
}

// StoreConfig holds the settings database configuration.
type StoreConfig struct {
	Path          string `toml:"path" json:"path" yaml:"path"`
	BusyTimeoutMs int    `toml:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms"`

	// Watch enables detection of writes made by other processes.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`
}

// KeymapsConfig holds the table backend search path.
type KeymapsConfig struct {
	Dirs []string `toml:"dirs" json:"dirs" yaml:"dirs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format (text, json).
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log destination (stderr, file, both).
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`

	// LogText logs typed text and candidates in clear. Off by default.
	LogText bool `toml:"log_text" json:"log_text" yaml:"log_text"`
}

// MetricsConfig holds the statistics file settings. The file uses the
// Prometheus text format, so a node_exporter textfile collector can read
// it.
type MetricsConfig struct {
	// File is rewritten every IntervalSec seconds and at exit. Empty
	// disables it.
	File string `toml:"file" json:"file" yaml:"file"`

	// IntervalSec of 0 writes the file at exit only.
	IntervalSec int `toml:"interval_sec" json:"interval_sec" yaml:"interval_sec"`
}

// EngineOverride adjusts catalog entries whose identifier matches Pattern.
type EngineOverride struct {
	// Pattern is a glob over "m17n:<language>:<method>".
	Pattern string `toml:"pattern" json:"pattern" yaml:"pattern"`

	Rank             *int  `toml:"rank" json:"rank,omitempty" yaml:"rank,omitempty"`
	PreeditHighlight *bool `toml:"preedit_highlight" json:"preedit_highlight,omitempty" yaml:"preedit_highlight,omitempty"`
}

// Match reports whether the override applies to the engine identifier.
func (o EngineOverride) Match(identifier string) bool {
	ok, err := path.Match(o.Pattern, identifier)
	return err == nil && ok
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	paths := GetDefaultPaths()
	return &Config{
		Version: Version,
		IBus: IBusConfig{
			BusName:       "org.freedesktop.IBus.M17N",
			ComponentName: "org.freedesktop.IBus.M17n",
			ExecPath:      "/usr/libexec/ibus-engine-m17n --ibus",
			Textdomain:    "ibus-m17n",
		},
		Store: StoreConfig{
			Path:          paths.DatabaseFile,
			BusyTimeoutMs: 5000,
			Watch:         true,
		},
		Keymaps: KeymapsConfig{
			Dirs: []string{paths.KeymapDir},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   paths.LogFile,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			File:        paths.MetricsFile,
			IntervalSec: 60,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return GetDefaultPaths().ConfigFile
}

// Load reads configuration from path. A missing file yields the defaults.
// TOML, JSON and YAML are accepted based on the file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the engine writes to.
func (c *Config) EnsureDirectories() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dirs := []string{filepath.Dir(c.Store.Path)}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := security.EnsureSecureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with IBUS_M17N_.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("IBUS_M17N_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("IBUS_M17N_KEYMAP_DIRS"); v != "" {
		c.Keymaps.Dirs = filepath.SplitList(v)
	}
	if v := os.Getenv("IBUS_M17N_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IBUS_M17N_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("IBUS_M17N_METRICS_FILE"); v != "" {
		c.Metrics.File = v
	}
	if v := os.Getenv("IBUS_M17N_EXEC_PATH"); v != "" {
		c.IBus.ExecPath = v
	}
	if v := os.Getenv("IBUS_M17N_BUS_ADDRESS"); v != "" {
		c.IBus.Address = v
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version: c.Version,
		IBus:    c.IBus,
		Store:   c.Store,
		Logging: c.Logging,
		Metrics: c.Metrics,
	}
	clone.Keymaps.Dirs = append([]string{}, c.Keymaps.Dirs...)
	for _, o := range c.Engines {
		cp := EngineOverride{Pattern: o.Pattern}
		if o.Rank != nil {
			r := *o.Rank
			cp.Rank = &r
		}
		if o.PreeditHighlight != nil {
			h := *o.PreeditHighlight
			cp.PreeditHighlight = &h
		}
		clone.Engines = append(clone.Engines, cp)
	}
	return clone
}
