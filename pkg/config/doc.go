// Package config provides configuration management for expirito.
//
// This package handles loading, validating, and converting the YAML
// configuration that drives a retention run. The retention policy lives at
// the top level of the document; logging, journal, metrics and locking are
// configured in their own sections.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// The file location defaults to $XDG_CONFIG_HOME/expirito/config.yaml (see
// ResolveConfigPath); EXPIRITO_CONFIG points elsewhere.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention EXPIRITO_SECTION_FIELD.
// For example:
//
//   - EXPIRITO_HOLDING_DIRECTORY overrides holding_directory
//   - EXPIRITO_LOGGING_LEVEL overrides logging.level
//   - EXPIRITO_JOURNAL_PATH overrides journal.path
//
// Environment variables always take precedence over file-based configuration.
//
// # Validation
//
// Loading runs two checks. The raw document is matched against an embedded
// JSON Schema, which rejects unknown keys and wrongly typed values. The
// decoded Config is then validated field by field:
//
//	configuration validation failed with 2 errors:
//	  - holding_directory: must be an absolute path, got "hold"
//	  - directories[1].path: overlaps watched directory "/data/a"
//
// # Example Configuration
//
//	holding_directory: /srv/holding
//	holding_age_limit: 90
//	directories:
//	  - path: /data/a
//	    age_limit: 5
//	  - path: /data/b
//	    age_limit: 30
//
//	logging:
//	  level: info
//	  format: text
//
//	journal:
//	  enabled: true
//
// Config.Retention converts the policy into the engine's retention.Config.
package config
