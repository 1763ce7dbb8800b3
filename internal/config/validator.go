package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "lock.ttl_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values. It returns nil, or a
// ValidationErrors listing every problem found.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Lock.TTLSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.ttl_seconds",
			Value:   c.Lock.TTLSeconds,
			Message: "must be positive",
		})
	}
	if c.Sweep.IntervalSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "sweep.interval_seconds",
			Value:   c.Sweep.IntervalSeconds,
			Message: "must be positive",
		})
	}
	if c.Server.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "server.name",
			Value:   c.Server.Name,
			Message: "must not be empty",
		})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
