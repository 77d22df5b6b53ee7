package config

import (
	"errors"
	"fmt"
	"os"
	"path"
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

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig validates c and returns the non-warning problems, or nil.
func ValidateConfig(c *Config) error {
	errs := Check(c)
	if !errs.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errs.Errors())
}

// Check returns every validation problem of c, warnings included.
func Check(c *Config) ValidationErrors {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateIBus(&c.IBus)...)
	errs = append(errs, validateStore(&c.Store)...)
	errs = append(errs, validateKeymaps(&c.Keymaps)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)
	errs = append(errs, validateEngines(c.Engines)...)

	return errs
}

// busNameRe matches well-known D-Bus names.
var busNameRe = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*(\.[A-Za-z_-][A-Za-z0-9_-]*)+$`)

func validateIBus(b *IBusConfig) ValidationErrors {
	var errs ValidationErrors

	if b.BusName == "" {
		errs = append(errs, *RequiredFieldError("ibus.bus_name"))
	} else if len(b.BusName) > 255 || !busNameRe.MatchString(b.BusName) {
		errs = append(errs, ValidationError{
			Field:   "ibus.bus_name",
			Message: fmt.Sprintf("invalid bus name: %s", b.BusName),
		})
	}

	if b.ComponentName == "" {
		errs = append(errs, *RequiredFieldError("ibus.component_name"))
	}

	if b.ExecPath == "" {
		errs = append(errs, *RequiredFieldError("ibus.exec_path"))
	}

	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors
	if m.IntervalSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "metrics.interval_sec",
			Message: fmt.Sprintf("must not be negative, got %d", m.IntervalSec),
		})
	}
	return errs
}

func validateStore(s *StoreConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Path == "" {
		errs = append(errs, *RequiredFieldError("store.path"))
	}

	if s.BusyTimeoutMs < 0 || s.BusyTimeoutMs > 60000 {
		errs = append(errs, *RangeError("store.busy_timeout_ms", 0, 60000))
	}

	return errs
}

func validateKeymaps(k *KeymapsConfig) ValidationErrors {
	var errs ValidationErrors

	for i, dir := range k.Dirs {
		if dir == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("keymaps.dirs[%d]", i),
				Message: "empty directory",
			})
			continue
		}
		if _, err := os.Stat(expandPath(dir)); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("keymaps.dirs[%d]", i),
				Message: fmt.Sprintf("directory not found: %s", dir),
			})
		}
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
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
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
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

func validateEngines(engines []EngineOverride) ValidationErrors {
	var errs ValidationErrors

	for i, o := range engines {
		field := fmt.Sprintf("engines[%d]", i)
		if !isValidGlobPattern(o.Pattern) {
			errs = append(errs, ValidationError{
				Field:   field + ".pattern",
				Message: fmt.Sprintf("invalid pattern: %q", o.Pattern),
			})
		}
		if o.Rank != nil && (*o.Rank < -100 || *o.Rank > 100) {
			errs = append(errs, *RangeError(field+".rank", -100, 100))
		}
		if o.Rank == nil && o.PreeditHighlight == nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "override sets nothing",
			})
		}
	}

	return errs
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return home + p[1:]
	}
	return p
}

func isValidGlobPattern(pattern string) bool {
	if pattern == "" {
		return false
	}
	_, err := path.Match(pattern, "m17n:xx:yy")
	return err == nil
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	warningFields := []string{
		"keymaps.dirs", // directories may be created later
		"engines[",     // an override that matches nothing is harmless
	}
	for _, f := range warningFields {
		if strings.HasPrefix(e.Field, f) && !strings.HasSuffix(e.Field, ".pattern") && !strings.HasSuffix(e.Field, ".rank") {
			return true
		}
	}
	return false
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
