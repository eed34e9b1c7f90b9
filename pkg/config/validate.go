package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "directories[0].path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// Watched directories are checked against the filesystem: each must exist
// and be a directory at validation time.
func Validate(cfg *Config) error {
	var errs []FieldError

	// Validate retention policy
	errs = append(errs, validateHolding(cfg)...)
	errs = append(errs, validateDirectories(cfg)...)

	// Validate ambient sections
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateHolding validates the holding root and its age limit.
func validateHolding(cfg *Config) []FieldError {
	var errs []FieldError

	switch {
	case cfg.HoldingDirectory == "":
		errs = append(errs, FieldError{
			Field:   "holding_directory",
			Message: "holding directory is required",
		})
	case !filepath.IsAbs(cfg.HoldingDirectory):
		errs = append(errs, FieldError{
			Field:   "holding_directory",
			Message: fmt.Sprintf("must be an absolute path, got %q", cfg.HoldingDirectory),
		})
	}

	if cfg.HoldingAgeLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "holding_age_limit",
			Message: "holding age limit must be a positive number of days",
		})
	}

	return errs
}

// validateDirectories validates the watched directories and how they relate
// to each other and to the holding root.
func validateDirectories(cfg *Config) []FieldError {
	var errs []FieldError

	holding := ""
	if filepath.IsAbs(cfg.HoldingDirectory) {
		holding = filepath.Clean(cfg.HoldingDirectory)
	}

	seen := make(map[string]int, len(cfg.Directories))
	var accepted []string

	for i, dir := range cfg.Directories {
		field := fmt.Sprintf("directories[%d]", i)

		if dir.AgeLimit <= 0 {
			errs = append(errs, FieldError{
				Field:   field + ".age_limit",
				Message: "age limit must be a positive number of days",
			})
		}

		if dir.Path == "" {
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: "path is required",
			})
			continue
		}
		if !filepath.IsAbs(dir.Path) {
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: fmt.Sprintf("must be an absolute path, got %q", dir.Path),
			})
			continue
		}

		path := filepath.Clean(dir.Path)
		if first, dup := seen[path]; dup {
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: fmt.Sprintf("duplicates directories[%d]", first),
			})
			continue
		}
		seen[path] = i

		info, err := os.Stat(path)
		switch {
		case err != nil:
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: fmt.Sprintf("cannot access directory: %v", err),
			})
		case !info.IsDir():
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: fmt.Sprintf("%q is not a directory", path),
			})
		}

		if holding != "" {
			if within(holding, path) {
				errs = append(errs, FieldError{
					Field:   "holding_directory",
					Message: fmt.Sprintf("must not be inside watched directory %q", path),
				})
			} else if within(path, holding) {
				errs = append(errs, FieldError{
					Field:   field + ".path",
					Message: fmt.Sprintf("must not be inside the holding directory %q", holding),
				})
			}
		}

		for _, other := range accepted {
			if within(path, other) || within(other, path) {
				errs = append(errs, FieldError{
					Field:   field + ".path",
					Message: fmt.Sprintf("overlaps watched directory %q", other),
				})
			}
		}
		accepted = append(accepted, path)
	}

	return errs
}

// validateLogging validates logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(cfg.Level)] {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q, must be one of: debug, info, warn, error", cfg.Level),
		})
	}

	validFormats := map[string]bool{
		"json":    true,
		"text":    true,
		"console": true,
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format %q, must be one of: json, text, console", cfg.Format),
		})
	}

	return errs
}

// validateJournal validates journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "journal.path",
			Message: "journal path is required when the journal is enabled",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.busy_timeout",
			Message: "busy timeout must be non-negative",
		})
	}

	return errs
}

// validateMetrics validates metrics configuration.
func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.TextfilePath == "" {
		errs = append(errs, FieldError{
			Field:   "metrics.textfile_path",
			Message: "textfile path is required when metrics are enabled",
		})
	}

	return errs
}

// within reports whether path is dir or lies below it. Both must be clean
// absolute paths.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
