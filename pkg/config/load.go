package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The raw document is checked against the embedded schema, then defaults are
// applied and the result is validated.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Check shape before decoding
	if err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	// Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention EXPIRITO_SECTION_FIELD (e.g., EXPIRITO_LOGGING_LEVEL).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Policy overrides
	if val := os.Getenv("EXPIRITO_HOLDING_DIRECTORY"); val != "" {
		cfg.HoldingDirectory = val
	}
	if val := os.Getenv("EXPIRITO_HOLDING_AGE_LIMIT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.HoldingAgeLimit = i
		}
	}
	if val := os.Getenv("EXPIRITO_LOCK_FILE"); val != "" {
		cfg.LockFile = val
	}
	if val := os.Getenv("EXPIRITO_LOG_FILE"); val != "" {
		cfg.LogFile = val
	}

	// Logging overrides
	if val := os.Getenv("EXPIRITO_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("EXPIRITO_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Journal overrides
	if val := os.Getenv("EXPIRITO_JOURNAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Enabled = b
		}
	}
	if val := os.Getenv("EXPIRITO_JOURNAL_PATH"); val != "" {
		cfg.Journal.Path = val
	}

	// Metrics overrides
	if val := os.Getenv("EXPIRITO_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("EXPIRITO_METRICS_TEXTFILE_PATH"); val != "" {
		cfg.Metrics.TextfilePath = val
	}
}
