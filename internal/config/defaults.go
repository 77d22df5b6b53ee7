package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "ibus-m17n"

// PlatformConfigDir returns the configuration directory.
func PlatformConfigDir() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir(), "Library", "Preferences", appName)
	}
	// XDG_CONFIG_HOME or ~/.config
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(homeDir(), ".config", appName)
}

// PlatformDataDir returns the data directory holding the settings
// database and user keymaps.
func PlatformDataDir() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir(), "Library", "Application Support", appName)
	}
	// XDG_DATA_HOME or ~/.local/share
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(homeDir(), ".local", "share", appName)
}

// PlatformLogDir returns the log directory.
func PlatformLogDir() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir(), "Library", "Logs", appName)
	}
	// XDG_STATE_HOME or ~/.local/state
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(homeDir(), ".local", "state", appName)
}

func homeDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return home
}

// DefaultPaths holds the default locations for the current platform.
type DefaultPaths struct {
	ConfigDir string
	DataDir   string
	LogDir    string

	ConfigFile   string
	DatabaseFile string
	KeymapDir    string
	LogFile      string
	MetricsFile  string
}

// GetDefaultPaths returns all default paths for the current platform.
func GetDefaultPaths() *DefaultPaths {
	configDir := PlatformConfigDir()
	dataDir := PlatformDataDir()
	logDir := PlatformLogDir()
	return &DefaultPaths{
		ConfigDir:    configDir,
		DataDir:      dataDir,
		LogDir:       logDir,
		ConfigFile:   filepath.Join(configDir, "config.toml"),
		DatabaseFile: filepath.Join(dataDir, "settings.db"),
		KeymapDir:    filepath.Join(dataDir, "keymaps"),
		LogFile:      filepath.Join(logDir, "engine.log"),
		MetricsFile:  filepath.Join(logDir, "metrics.prom"),
	}
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile searches for a config file in the current directory and
// then the config directory. It returns "" when none is found.
func FindConfigFile() string {
	for _, dir := range []string{".", PlatformConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			p := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}
