package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"expirito-hq/expirito/pkg/cli"
	"expirito-hq/expirito/pkg/config"
	"expirito-hq/expirito/pkg/journal"
	"expirito-hq/expirito/pkg/lock"
	"expirito-hq/expirito/pkg/retention"
	"expirito-hq/expirito/pkg/telemetry/logging"
	"expirito-hq/expirito/pkg/telemetry/metrics"

	"github.com/spf13/cobra"
)

var runFlags struct {
	dryRun   bool
	logLevel string
	format   string
}

// runClock supplies the reference time of a run.
var runClock retention.Clock = retention.SystemClock{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run retention once",
	Long: `Run one retention pass over every watched directory and exit.

For each watched directory, in configuration order:
  1. children older than the directory's age_limit are moved to holding
  2. entries in that directory's holding mirror older than
     holding_age_limit are deleted

Failures on individual entries are logged and the run continues; the exit
status is non-zero only when the run could not start (bad configuration,
another run in progress) or its journal or metrics could not be written.

Examples:
  # Run with default config
  expirito run

  # Preview the actions of a run
  expirito run --dry-run

  # Machine-readable summary
  expirito run --format json`,
	RunE: runRetention,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runFlags.dryRun, "dry-run", "n", false, "report what would be done without changing anything")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.format, "format", "text", "summary format: text, json, csv")
}

func runRetention(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(runFlags.format)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.LogFile,
	})
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}
	defer logger.Shutdown()

	ctx := commandContext(cmd)

	// Guard against overlapping runs
	if cfg.LockFile != "" {
		l, err := lock.Acquire(cfg.LockFile)
		if err != nil {
			return cli.NewLockError(cfg.LockFile, err)
		}
		defer l.Release()
	} else {
		logger.Warn("no lock file configured, overlapping runs are not prevented")
	}

	now := runClock.Now()
	runID := retention.NewRunID()

	logger.Debug("configuration loaded", "config", cfgPath, "run_id", runID)

	sinks := retention.MultiSink{retention.NewLogSink(logger.Logger)}

	var jrnl *journal.SQLiteJournal
	if cfg.Journal.Enabled {
		jrnl, err = openJournal(cfg, logger.Logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer jrnl.Close()

		if err := jrnl.BeginRun(ctx, journal.Run{
			ID:         runID,
			StartedAt:  now,
			DryRun:     runFlags.dryRun,
			ConfigPath: cfgPath,
		}); err != nil {
			return cli.NewCommandError("run", err)
		}
		sinks = append(sinks, jrnl)
	}

	collector := metrics.NewCollector(&cfg.Metrics, nil)
	sinks = append(sinks, collector)

	engine := retention.NewEngine(sinks,
		retention.WithLogger(logger.Logger),
		retention.WithObserver(collector),
		retention.WithRunID(runID),
	)

	actions, runErr := engine.RunAll(ctx, cfg.Retention(), now, runFlags.dryRun)
	summary := newRunSummary(runID, now, runFlags.dryRun, actions)
	finished := runClock.Now()

	if runErr != nil {
		logger.Warn("retention run interrupted", "run_id", runID, "error", runErr)
	}

	// Record the outcome; these errors do not hide the summary
	var errs []error
	if jrnl != nil {
		if err := jrnl.Err(); err != nil {
			errs = append(errs, err)
		}
		if err := jrnl.FinishRun(context.WithoutCancel(ctx), runID, finished, len(actions), summary.Failed); err != nil {
			errs = append(errs, err)
		}
	}
	collector.MarkRunComplete(finished, runFlags.dryRun, summary.Failed)
	if cfg.Metrics.Enabled {
		if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			errs = append(errs, err)
		}
	}

	if err := cli.NewFormatter(format).FormatTo(commandOutput(cmd), summary); err != nil {
		errs = append(errs, err)
	}

	if runErr != nil {
		errs = append(errs, runErr)
	}
	if len(errs) > 0 {
		return cli.NewCommandError("run", errors.Join(errs...))
	}
	return nil
}

// openJournal opens the configured SQLite journal.
func openJournal(cfg *config.Config, logger *slog.Logger) (*journal.SQLiteJournal, error) {
	jcfg := journal.DefaultSQLiteConfig(cfg.Journal.Path)
	if cfg.Journal.BusyTimeout > 0 {
		jcfg.BusyTimeout = cfg.Journal.BusyTimeout
	}
	jcfg.Logger = logger
	return journal.NewSQLiteJournal(jcfg)
}

// runSummary is the result printed by the run command.
type runSummary struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	DryRun    bool            `json:"dry_run"`
	Moved     int             `json:"moved"`
	Deleted   int             `json:"deleted"`
	Failed    int             `json:"failed"`
	Actions   []actionSummary `json:"actions"`
}

type actionSummary struct {
	Phase       retention.Phase      `json:"phase"`
	Kind        retention.ActionKind `json:"kind"`
	Source      string               `json:"source"`
	Destination string               `json:"destination,omitempty"`
	Error       string               `json:"error,omitempty"`
	Reason      string               `json:"reason,omitempty"`
}

func newRunSummary(runID string, startedAt time.Time, dryRun bool, actions []retention.Action) runSummary {
	s := runSummary{
		RunID:     runID,
		StartedAt: startedAt,
		DryRun:    dryRun,
		Actions:   make([]actionSummary, 0, len(actions)),
	}
	for _, a := range actions {
		as := actionSummary{
			Phase:       a.Phase,
			Kind:        a.Kind,
			Source:      a.Source,
			Destination: a.Destination,
		}
		switch {
		case a.Failed():
			s.Failed++
			as.Error = a.Err.Error()
			as.Reason = retention.FailureReason(a.Err)
		case a.Kind == retention.ActionMoved:
			s.Moved++
		case a.Kind == retention.ActionDeleted:
			s.Deleted++
		}
		s.Actions = append(s.Actions, as)
	}
	return s
}

// String renders the totals. Individual actions are already in the log.
func (s runSummary) String() string {
	var b strings.Builder
	if s.DryRun {
		b.WriteString("Dry run ")
	} else {
		b.WriteString("Run ")
	}
	fmt.Fprintf(&b, "%s: %d moved, %d deleted, %d failed", s.RunID, s.Moved, s.Deleted, s.Failed)
	return b.String()
}

// Header implements cli.Table.
func (s runSummary) Header() []string {
	return []string{"run_id", "dry_run", "phase", "kind", "source", "destination", "error", "reason"}
}

// Rows implements cli.Table.
func (s runSummary) Rows() [][]string {
	rows := make([][]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		rows = append(rows, []string{
			s.RunID,
			strconv.FormatBool(s.DryRun),
			string(a.Phase),
			string(a.Kind),
			a.Source,
			a.Destination,
			a.Error,
			a.Reason,
		})
	}
	return rows
}
