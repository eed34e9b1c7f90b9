// Package telemetry groups the observability of a retention run.
//
// # Components
//
//   - logging: structured logging on log/slog, to stderr or a log file
//   - metrics: Prometheus counters and histograms, exported as a textfile
//     for node_exporter after each run
//   - health: preflight checks of the directories a run touches
//
// expirito runs once and exits, so nothing here serves HTTP. Metrics are
// written to disk at the end of the run instead of being scraped.
package telemetry
