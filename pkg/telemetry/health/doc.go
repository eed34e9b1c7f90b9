// Package health runs preflight checks before a retention run.
//
// A Checker holds named checks and runs them concurrently, each bounded by a
// timeout. A check passes, fails, or passes with a warning; the Report
// aggregates them into "ready", "degraded" or "failed".
//
// Preflight builds the standard set of checks for a configuration: watched
// directories are listable, the holding root and the lock, journal and
// metrics locations are writable, and each watched directory shares a
// filesystem with holding.
//
// # Usage
//
//	report := health.Preflight(cfg).Run(ctx)
//	for _, c := range report.Checks {
//	    fmt.Printf("%-8s %s %s\n", c.Status, c.Name, c.Message)
//	}
//	if !report.Ready() {
//	    return errors.New("preflight failed")
//	}
package health
