package retention

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// PassResult summarizes one completed pass.
type PassResult struct {
	RunID    string
	Phase    Phase
	Folder   string
	Actions  int
	Failures int
	Duration time.Duration
	Err      error
}

// PassObserver is notified after every pass.
type PassObserver interface {
	ObservePass(result PassResult)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers an observer for pass results.
func WithObserver(observer PassObserver) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, observer)
	}
}

// WithRunID fixes the run identifier. By default every RunAll call
// generates a new one.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// Engine runs the two-phase retention workflow over a Config.
type Engine struct {
	sink      Sink
	logger    *slog.Logger
	observers []PassObserver
	runID     string
}

// NewEngine creates an engine that reports every action to sink.
func NewEngine(sink Sink, opts ...Option) *Engine {
	e := &Engine{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunAll processes every watched directory in order: first a move pass over
// the directory, then, if the directory's holding mirror exists, an expire
// pass over the mirror with the holding age limit.
//
// All actions are returned, failed ones included. The error is non-nil only
// when ctx is cancelled; a pass that cannot read its folder is logged and
// the run continues.
func (e *Engine) RunAll(ctx context.Context, cfg Config, now time.Time, dryRun bool) ([]Action, error) {
	runID := e.runID
	if runID == "" {
		runID = NewRunID()
	}
	logger := e.logger.With("component", "retention.engine", "run_id", runID)

	logger.Info("retention run started",
		"holding_root", cfg.HoldingRoot,
		"holding_age_limit", cfg.HoldingAgeLimit,
		"watched", len(cfg.Watched),
		"dry_run", dryRun,
	)

	var actions []Action
	for _, dir := range cfg.Watched {
		got, err := e.runPass(ctx, runID, PhaseMove, now, dir.Path, dir.AgeLimit, cfg.HoldingRoot, dryRun)
		actions = append(actions, got...)
		if ctx.Err() != nil {
			return actions, ctx.Err()
		}
		if err != nil {
			logger.Error("move pass failed", "folder", dir.Path, "error", err)
		}

		mirror := MirrorPath(cfg.HoldingRoot, dir.Path)
		if info, err := os.Lstat(mirror); err != nil || !info.IsDir() {
			logger.Debug("no holding mirror, skipping expire pass", "mirror", mirror)
			continue
		}

		got, err = e.runPass(ctx, runID, PhaseExpire, now, mirror, cfg.HoldingAgeLimit, "", dryRun)
		actions = append(actions, got...)
		if ctx.Err() != nil {
			return actions, ctx.Err()
		}
		if err != nil {
			logger.Error("expire pass failed", "folder", mirror, "error", err)
		}
	}

	failures := 0
	for _, a := range actions {
		if a.Failed() {
			failures++
		}
	}
	logger.Info("retention run completed",
		"actions", len(actions),
		"failures", failures,
		"dry_run", dryRun,
	)

	return actions, nil
}

func (e *Engine) runPass(ctx context.Context, runID string, phase Phase, now time.Time, folder string, ageLimitDays int, holdingRoot string, dryRun bool) ([]Action, error) {
	pass := NewPass(PassOptions{
		Phase:  phase,
		RunID:  runID,
		Now:    now,
		Sink:   e.sink,
		Logger: e.logger,
	})

	start := time.Now()
	actions, err := pass.Run(ctx, folder, ageLimitDays, holdingRoot, dryRun)

	result := PassResult{
		RunID:    runID,
		Phase:    phase,
		Folder:   folder,
		Actions:  len(actions),
		Duration: time.Since(start),
		Err:      err,
	}
	for _, a := range actions {
		if a.Failed() {
			result.Failures++
		}
	}
	for _, o := range e.observers {
		o.ObservePass(result)
	}

	e.logger.Debug("pass completed",
		"component", "retention.engine",
		"run_id", runID,
		"phase", string(phase),
		"folder", folder,
		"actions", result.Actions,
		"failures", result.Failures,
		"duration", result.Duration,
	)

	return actions, err
}
