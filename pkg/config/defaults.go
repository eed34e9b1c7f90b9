package config

import (
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"

	// Journal defaults
	DefaultJournalEnabled     = false
	DefaultJournalFileName    = "journal.db"
	DefaultJournalBusyTimeout = 5 * time.Second

	// Metrics defaults
	DefaultMetricsEnabled   = false
	DefaultMetricsNamespace = "expirito"

	// Lock defaults
	DefaultLockFileName = "expirito.lock"
)

// ApplyDefaults fills in default values for any configuration fields that
// are not set. The retention policy itself has no defaults: the holding
// directory, its age limit and the watched directories must come from the
// file.
//
// Paths that default into the data directory are left empty when the data
// directory cannot be resolved.
func ApplyDefaults(cfg *Config) {
	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	// Journal defaults
	if cfg.Journal.BusyTimeout == 0 {
		cfg.Journal.BusyTimeout = DefaultJournalBusyTimeout
	}

	// Metrics defaults
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Journal.Path != "" && cfg.LockFile != "" {
		return
	}
	dataDir, err := DefaultDataDir()
	if err != nil {
		return
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(dataDir, DefaultJournalFileName)
	}
	if cfg.LockFile == "" {
		cfg.LockFile = filepath.Join(dataDir, DefaultLockFileName)
	}
}
