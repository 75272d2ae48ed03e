// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultPackageName     = "com.calendarpulse.app"
	DefaultStoreBackend    = StoreBackendFile
	DefaultHTTPAddr        = "127.0.0.1:8787"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultLogLevel        = "info"
)

// Store backends.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
	StoreBackendMemory = "memory"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the calendar-pulse configuration.
// Loaded from ~/.config/calendar-pulse/config.toml
type Config struct {
	App      AppConfig      `toml:"app"`
	Settings SettingsConfig `toml:"settings"`
	Store    StoreConfig    `toml:"store"`
	HTTP     HTTPConfig     `toml:"http"`
	DBus     DBusConfig     `toml:"dbus"`
	Log      LogConfig      `toml:"log"`
}

// AppConfig identifies this application to the OS.
type AppConfig struct {
	PackageName string `toml:"package_name"` // Matched against the enabled-listeners setting
}

// SettingsConfig locates the OS notification-listener setting.
type SettingsConfig struct {
	EnabledListeners     string   `toml:"enabled_listeners"`      // Fixed value; wins over the file when set
	EnabledListenersFile string   `toml:"enabled_listeners_file"` // File holding the value
	OpenCommand          []string `toml:"open_command"`           // Command that opens the settings screen
}

// StoreConfig selects the queue backend.
type StoreConfig struct {
	Backend string `toml:"backend"` // "file", "sqlite", "memory"
	Path    string `toml:"path"`    // Empty = backend default under the data dir
}

// HTTPConfig configures the HTTP bridge.
type HTTPConfig struct {
	Enabled         bool     `toml:"enabled"`
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// DBusConfig configures the D-Bus notification source and bridge.
type DBusConfig struct {
	Monitor bool `toml:"monitor"` // Capture notifications from the session bus
	Bridge  bool `toml:"bridge"`  // Export the bridge object and signal
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			PackageName: DefaultPackageName,
		},
		Settings: SettingsConfig{
			EnabledListenersFile: filepath.Join(configDir(), "enabled_listeners"),
		},
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
		},
		HTTP: HTTPConfig{
			Enabled:         true,
			Addr:            DefaultHTTPAddr,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		DBus: DBusConfig{
			Monitor: true,
			Bridge:  true,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// configDir returns the calendar-pulse config directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "calendar-pulse")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Settings.EnabledListenersFile = expandPath(cfg.Settings.EnabledListenersFile)
	cfg.Store.Path = expandPath(cfg.Store.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.App.PackageName == "" {
		return errors.New("app.package_name cannot be empty")
	}

	switch c.Store.Backend {
	case StoreBackendFile, StoreBackendSQLite, StoreBackendMemory:
	default:
		return fmt.Errorf("invalid store backend %q, must be one of: file, sqlite, memory", c.Store.Backend)
	}

	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return errors.New("http.addr cannot be empty when http is enabled")
	}
	if c.HTTP.ShutdownTimeout < 0 {
		return fmt.Errorf("http.shutdown_timeout must not be negative, got %s", c.HTTP.ShutdownTimeout.Duration())
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
