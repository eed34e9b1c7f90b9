package config

import (
	"time"

	"expirito-hq/expirito/pkg/retention"
)

// Config is the root configuration structure for expirito.
// The top-level keys describe the retention policy; the remaining sections
// configure the process around the engine.
type Config struct {
	// HoldingDirectory is the absolute path of the holding root. Expired
	// entries are relocated under it, mirroring their original absolute path.
	HoldingDirectory string `yaml:"holding_directory"`

	// HoldingAgeLimit is the number of days an entry stays in holding
	// before it is deleted for good.
	HoldingAgeLimit int `yaml:"holding_age_limit"`

	// Directories lists the watched directories in the order they are
	// processed.
	Directories []DirectoryConfig `yaml:"directories"`

	// LockFile is the path of the invocation lock. Two runs sharing a lock
	// file never overlap.
	// Default: $XDG_DATA_HOME/expirito/expirito.lock
	LockFile string `yaml:"lock_file"`

	// LogFile, when set, receives the log output instead of stderr.
	// The file is opened for appending.
	LogFile string `yaml:"log_file"`

	// Logging controls log level and format.
	Logging LoggingConfig `yaml:"logging"`

	// Journal configures the SQLite action journal.
	Journal JournalConfig `yaml:"journal"`

	// Metrics configures the Prometheus textfile export.
	Metrics MetricsConfig `yaml:"metrics"`
}

// DirectoryConfig describes one watched directory.
type DirectoryConfig struct {
	// Path is the absolute path of the directory. Only its direct children
	// are considered for retention.
	Path string `yaml:"path"`

	// AgeLimit is the number of days after which a child is moved to
	// holding.
	AgeLimit int `yaml:"age_limit"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`
}

// JournalConfig contains configuration for the action journal.
type JournalConfig struct {
	// Enabled turns on journaling of every action, dry-run actions included.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	// Default: $XDG_DATA_HOME/expirito/journal.db
	Path string `yaml:"path"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MetricsConfig contains configuration for metrics export.
type MetricsConfig struct {
	// Enabled turns on metric collection.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// TextfilePath is where the metrics are written after each run, in the
	// format read by node_exporter's textfile collector. Required when
	// metrics are enabled.
	TextfilePath string `yaml:"textfile_path"`

	// Namespace prefixes every metric name.
	// Default: "expirito"
	Namespace string `yaml:"namespace"`
}

// Retention converts the policy part of the configuration into the engine's
// configuration. The result shares nothing with cfg.
func (cfg *Config) Retention() retention.Config {
	watched := make([]retention.WatchedDirectory, 0, len(cfg.Directories))
	for _, d := range cfg.Directories {
		watched = append(watched, retention.WatchedDirectory{
			Path:     d.Path,
			AgeLimit: d.AgeLimit,
		})
	}
	return retention.Config{
		HoldingRoot:     cfg.HoldingDirectory,
		HoldingAgeLimit: cfg.HoldingAgeLimit,
		Watched:         watched,
	}
}
