package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed validation.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

var (
	busNamePattern    = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*(\.[A-Za-z_-][A-Za-z0-9_-]*)+$`)
	objectPathPattern = regexp.MustCompile(`^/([A-Za-z0-9_]+(/[A-Za-z0-9_]+)*)?$`)
)

// ValidateConfig checks semantic constraints the schema cannot express.
// It returns ValidationErrors or nil.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateDisplay(&c.Display)...)
	errs = append(errs, validateVirtualKeyboard(&c.VirtualKeyboard)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateDBus(&c.DBus)...)

	if !c.InputMethod.Enabled && !c.VirtualKeyboard.Enabled {
		errs = append(errs, ValidationError{
			Field:   "input_method.enabled",
			Message: "at least one of input_method and virtual_keyboard must be enabled",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDisplay(d *DisplayConfig) ValidationErrors {
	var errs ValidationErrors

	if strings.ContainsRune(d.Name, 0) {
		errs = append(errs, ValidationError{Field: "display.name", Message: "contains NUL byte"})
	}
	if d.RoundtripTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "display.roundtrip_timeout_ms",
			Message: "timeout cannot be negative",
		})
	}
	return errs
}

func validateVirtualKeyboard(v *VirtualKeyboardConfig) ValidationErrors {
	var errs ValidationErrors

	if v.TypeDelayMs < 0 || v.TypeDelayMs > 10000 {
		errs = append(errs, ValidationError{
			Field:   "virtual_keyboard.type_delay_ms",
			Message: fmt.Sprintf("must be between 0 and 10000, got %d", v.TypeDelayMs),
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
		if l.MaxSizeMB < 1 {
			errs = append(errs, ValidationError{
				Field:   "logging.max_size_mb",
				Message: "max size must be at least 1 MB",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	return errs
}

func validateDBus(d *DBusConfig) ValidationErrors {
	if !d.Enabled {
		return nil
	}
	var errs ValidationErrors

	if d.Bus != "session" && d.Bus != "system" {
		errs = append(errs, ValidationError{
			Field:   "dbus.bus",
			Message: fmt.Sprintf("invalid bus: %s (valid: session, system)", d.Bus),
		})
	}
	if len(d.BusName) > 255 || !busNamePattern.MatchString(d.BusName) {
		errs = append(errs, ValidationError{
			Field:   "dbus.bus_name",
			Message: fmt.Sprintf("invalid well-known bus name: %q", d.BusName),
		})
	}
	if !objectPathPattern.MatchString(d.ObjectPath) {
		errs = append(errs, ValidationError{
			Field:   "dbus.object_path",
			Message: fmt.Sprintf("invalid object path: %q", d.ObjectPath),
		})
	}
	if d.SyncIntervalMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "dbus.sync_interval_ms",
			Message: "sync interval must be at least 1 ms",
		})
	}
	return errs
}
