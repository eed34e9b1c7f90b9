// Package logging provides structured logging for expirito.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON, text and console output formats
//   - Configurable log levels (debug, info, warn, error)
//   - Appending to a log file instead of stderr
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	    File:   "/var/log/expirito.log",
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Shutdown()
//
//	logger.Info("Moved /data/a/old.txt to /srv/holding/data/a/old.txt",
//	    "run_id", runID,
//	    "phase", "move",
//	)
//
// Logger embeds *slog.Logger; pass logger.Logger to packages that accept a
// plain *slog.Logger.
package logging
