// config_validation.go - Startup validation of the CONVERT_* environment.
//
// Validates all environment variables at startup to fail fast with every
// problem listed rather than surfacing them one request at a time.
package server

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"doc-convert/internal/logging"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator validates application configuration.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		errors: make([]ConfigValidationError, 0),
	}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *ConfigValidator) Errors() []ConfigValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *ConfigValidator) ErrorString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Configuration validation failed with %d error(s):\n", len(v.errors))
	for i, err := range v.errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidateURL validates that a value is a URL with one of the given schemes.
func (v *ConfigValidator) ValidateURL(key, value string, schemes ...string) {
	if value == "" {
		return
	}

	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}
	if parsed.Host == "" {
		v.AddError(key, "URL must include a host")
		return
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return
		}
	}
	v.AddError(key, fmt.Sprintf("URL must use one of: %s", strings.Join(schemes, ", ")))
}

// ValidatePort validates a listen address of the form "[host]:port".
func (v *ConfigValidator) ValidatePort(key, value string) {
	if value == "" {
		return
	}

	idx := strings.LastIndex(value, ":")
	if idx < 0 {
		v.AddError(key, "must be of the form [host]:port")
		return
	}

	port, err := strconv.Atoi(value[idx+1:])
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}

	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *ConfigValidator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}

	for _, opt := range allowed {
		if value == opt {
			return
		}
	}

	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *ConfigValidator) ValidatePositiveInt(key, value string) {
	v.validateInt(key, value, 1)
}

// ValidateNonNegativeInt validates that a value is an integer >= 0.
func (v *ConfigValidator) ValidateNonNegativeInt(key, value string) {
	v.validateInt(key, value, 0)
}

func (v *ConfigValidator) validateInt(key, value string, min int64) {
	if value == "" {
		return
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}

	if num < min {
		if min == 1 {
			v.AddError(key, "must be a positive integer")
		} else {
			v.AddError(key, fmt.Sprintf("must be at least %d", min))
		}
	}
}

// ValidateDuration validates a positive Go duration such as "90s" or "2m".
func (v *ConfigValidator) ValidateDuration(key, value string) {
	if value == "" {
		return
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		v.AddError(key, "must be a valid duration (e.g., 30s, 2m, 24h)")
		return
	}
	if d <= 0 {
		v.AddError(key, "must be a positive duration")
	}
}

// ValidateRetentionWindow checks that files live at least as long as a
// conversion may run, so a sweep never removes an upload or output that a
// request is still using. Unset values fall back to their defaults;
// malformed ones are reported by ValidateDuration.
func (v *ConfigValidator) ValidateRetentionWindow(key, maxAge, timeout string) {
	age := DefaultRetentionMaxAge
	if maxAge != "" {
		d, err := time.ParseDuration(maxAge)
		if err != nil || d <= 0 {
			return
		}
		age = d
	}
	limit := DefaultConversionTimeout
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return
		}
		limit = d
	}
	if age < limit {
		v.AddError(key, fmt.Sprintf("must be at least CONVERT_TIMEOUT (%s), got %s", limit, age))
	}
}

// ValidateBool validates a strconv-style boolean.
func (v *ConfigValidator) ValidateBool(key, value string) {
	if value == "" {
		return
	}
	if _, err := strconv.ParseBool(value); err != nil {
		v.AddError(key, "must be true or false")
	}
}

// ValidateCronSpec validates a standard cron expression or descriptor.
func (v *ConfigValidator) ValidateCronSpec(key, value string) {
	if value == "" {
		return
	}
	if _, err := cron.ParseStandard(value); err != nil {
		v.AddError(key, fmt.Sprintf("invalid schedule: %v", err))
	}
}

// ValidateAllConfiguration performs comprehensive validation of all configuration.
func ValidateAllConfiguration() error {
	v := NewConfigValidator()

	v.ValidatePort("CONVERT_ADDR", os.Getenv("CONVERT_ADDR"))

	for _, key := range []string{"CONVERT_UPLOAD_DIR", "CONVERT_DOWNLOAD_DIR"} {
		if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) == "" {
			v.AddError(key, "must not be empty when set")
		}
	}

	// Conversion limits
	v.ValidatePositiveInt("CONVERT_MAX_UPLOAD_BYTES", os.Getenv("CONVERT_MAX_UPLOAD_BYTES"))
	v.ValidatePositiveInt("CONVERT_WORKERS", os.Getenv("CONVERT_WORKERS"))
	v.ValidateDuration("CONVERT_TIMEOUT", os.Getenv("CONVERT_TIMEOUT"))
	v.ValidateNonNegativeInt("CONVERT_RATE_LIMIT", os.Getenv("CONVERT_RATE_LIMIT"))

	// Browser
	v.ValidateURL("CONVERT_CHROME_REMOTE_URL", os.Getenv("CONVERT_CHROME_REMOTE_URL"), "ws", "wss", "http", "https")
	v.ValidateBool("CONVERT_CHROME_AUTO_DOWNLOAD", os.Getenv("CONVERT_CHROME_AUTO_DOWNLOAD"))
	v.ValidateBool("CONVERT_CHROME_NO_SANDBOX", os.Getenv("CONVERT_CHROME_NO_SANDBOX"))
	if path := os.Getenv("CONVERT_CHROME_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			v.AddError("CONVERT_CHROME_PATH", "no browser executable at "+path)
		}
	}
	if os.Getenv("CONVERT_CHROME_PATH") != "" && os.Getenv("CONVERT_CHROME_REMOTE_URL") != "" {
		v.AddError("CONVERT_CHROME_REMOTE_URL", "cannot be combined with CONVERT_CHROME_PATH")
	}

	// Retention
	v.ValidateBool("CONVERT_RETENTION_ENABLED", os.Getenv("CONVERT_RETENTION_ENABLED"))
	v.ValidateCronSpec("CONVERT_RETENTION_SCHEDULE", os.Getenv("CONVERT_RETENTION_SCHEDULE"))
	v.ValidateDuration("CONVERT_RETENTION_MAX_AGE", os.Getenv("CONVERT_RETENTION_MAX_AGE"))
	v.ValidateRetentionWindow("CONVERT_RETENTION_MAX_AGE", os.Getenv("CONVERT_RETENTION_MAX_AGE"), os.Getenv("CONVERT_TIMEOUT"))

	// Log configuration
	v.ValidateEnum("CONVERT_LOG_FORMAT", os.Getenv("CONVERT_LOG_FORMAT"), []string{"json", "text"})
	v.ValidateEnum("CONVERT_LOG_LEVEL", os.Getenv("CONVERT_LOG_LEVEL"), []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("CONVERT_ENV", os.Getenv("CONVERT_ENV"), []string{"development", "production", "staging"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}

	return nil
}

// WarnOnOptionalMissingConfig logs warnings for optional but recommended config.
func WarnOnOptionalMissingConfig() {
	warnings := make([]string, 0)

	if os.Getenv("CONVERT_CHROME_PATH") == "" && os.Getenv("CONVERT_CHROME_REMOTE_URL") == "" {
		warnings = append(warnings, "no browser configured - searching the system for Chrome")
	}

	if os.Getenv("CONVERT_RETENTION_ENABLED") == "false" {
		warnings = append(warnings, "CONVERT_RETENTION_ENABLED is 'false' - uploads and outputs are kept forever")
	}

	if os.Getenv("CONVERT_LOG_FORMAT") == "" && os.Getenv("CONVERT_ENV") != "production" {
		warnings = append(warnings, "CONVERT_LOG_FORMAT not set - using text format (consider 'json' for production)")
	}

	if os.Getenv("CONVERT_RATE_LIMIT") == "0" {
		warnings = append(warnings, "CONVERT_RATE_LIMIT is 0 - conversions are not rate limited")
	}

	if len(warnings) > 0 {
		logging.Info(context.Background(), "configuration warnings", logging.Fields{
			"count":    len(warnings),
			"warnings": warnings,
		})
	}
}
