// Package config handles configuration loading and validation for wlinput.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pentamassiv/wayland-input/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the configuration shared by wlinput and wlinputd.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Display selects the compositor socket.
	Display DisplayConfig `toml:"display" json:"display" yaml:"display"`

	// InputMethod controls the zwp_input_method_v2 session.
	InputMethod InputMethodConfig `toml:"input_method" json:"input_method" yaml:"input_method"`

	// VirtualKeyboard controls the zwp_virtual_keyboard_v1 session.
	VirtualKeyboard VirtualKeyboardConfig `toml:"virtual_keyboard" json:"virtual_keyboard" yaml:"virtual_keyboard"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// DBus configures the wlinputd service.
	DBus DBusConfig `toml:"dbus" json:"dbus" yaml:"dbus"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// DisplayConfig holds compositor connection settings.
type DisplayConfig struct {
	// Name is the socket name or absolute path. Empty means $WAYLAND_DISPLAY,
	// then wayland-0.
	Name string `toml:"name" json:"name" yaml:"name"`

	// RuntimeDir overrides $XDG_RUNTIME_DIR.
	RuntimeDir string `toml:"runtime_dir" json:"runtime_dir" yaml:"runtime_dir"`

	// RoundtripTimeoutMs bounds each event queue sync. Zero means no limit.
	RoundtripTimeoutMs int `toml:"roundtrip_timeout_ms" json:"roundtrip_timeout_ms" yaml:"roundtrip_timeout_ms"`
}

// InputMethodConfig holds input method settings.
type InputMethodConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// VirtualKeyboardConfig holds virtual keyboard settings.
type VirtualKeyboardConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// KeymapPath is an xkb_v1 keymap file. Empty uses the built-in US map.
	KeymapPath string `toml:"keymap_path" json:"keymap_path" yaml:"keymap_path"`

	// TypeDelayMs is the pause between key events when typing strings.
	TypeDelayMs int `toml:"type_delay_ms" json:"type_delay_ms" yaml:"type_delay_ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stdout, stderr, file or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`

	// RedactText hides committed and typed strings in log records.
	RedactText bool `toml:"redact_text" json:"redact_text" yaml:"redact_text"`
}

// DBusConfig holds wlinputd D-Bus settings.
type DBusConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Bus is "session" or "system".
	Bus        string `toml:"bus" json:"bus" yaml:"bus"`
	BusName    string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`
	ObjectPath string `toml:"object_path" json:"object_path" yaml:"object_path"`

	// SyncIntervalMs is how often wlinputd drains compositor events.
	SyncIntervalMs int `toml:"sync_interval_ms" json:"sync_interval_ms" yaml:"sync_interval_ms"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Display: DisplayConfig{
			RoundtripTimeoutMs: 2000,
		},
		InputMethod: InputMethodConfig{
			Enabled: true,
		},
		VirtualKeyboard: VirtualKeyboardConfig{
			Enabled:     true,
			TypeDelayMs: 0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		DBus: DBusConfig{
			Enabled:        true,
			Bus:            "session",
			BusName:        "org.wlinput.InputMethod",
			ObjectPath:     "/org/wlinput/InputMethod",
			SyncIntervalMs: 50,
		},
	}
}

// Load reads configuration from path. A missing file yields the defaults;
// an empty path means ConfigPath(). Environment overrides are applied and
// the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	return NewLoader(path).Load()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides.
//
// WLINPUT_DISPLAY, WLINPUT_LOG_LEVEL and WLINPUT_KEYMAP always win.
// WAYLAND_DISPLAY and XDG_RUNTIME_DIR only fill display settings the file
// left empty.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Display.Name == "" {
		c.Display.Name = os.Getenv("WAYLAND_DISPLAY")
	}
	if c.Display.RuntimeDir == "" {
		c.Display.RuntimeDir = os.Getenv("XDG_RUNTIME_DIR")
	}
	if v := os.Getenv("WLINPUT_DISPLAY"); v != "" {
		c.Display.Name = v
	}
	if v := os.Getenv("WLINPUT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WLINPUT_KEYMAP"); v != "" {
		c.VirtualKeyboard.KeymapPath = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version:         c.Version,
		Display:         c.Display,
		InputMethod:     c.InputMethod,
		VirtualKeyboard: c.VirtualKeyboard,
		Logging:         c.Logging,
		DBus:            c.DBus,
	}
}

// RoundtripTimeout returns the per-sync timeout, zero for none.
func (c *Config) RoundtripTimeout() time.Duration {
	return time.Duration(c.Display.RoundtripTimeoutMs) * time.Millisecond
}

// TypeDelay returns the pause between typed keys.
func (c *Config) TypeDelay() time.Duration {
	return time.Duration(c.VirtualKeyboard.TypeDelayMs) * time.Millisecond
}

// SyncInterval returns how often wlinputd syncs the event queue.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.DBus.SyncIntervalMs) * time.Millisecond
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig(component string) (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logging.format: %w", err)
	}
	return &logging.Config{
		Level:      level,
		Format:     format,
		Output:     c.Logging.Output,
		FilePath:   expandPath(c.Logging.FilePath),
		MaxSize:    int64(c.Logging.MaxSizeMB),
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
		RedactText: c.Logging.RedactText,
		Component:  component,
	}, nil
}
