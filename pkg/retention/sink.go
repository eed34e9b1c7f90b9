package retention

import (
	"log/slog"
	"sync"
)

// Sink receives one record per executed or planned action.
type Sink interface {
	Record(action Action)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(action Action)

// Record calls f(action).
func (f SinkFunc) Record(action Action) {
	f(action)
}

// MultiSink fans every record out to all of its sinks, in order.
type MultiSink []Sink

// Record forwards action to every sink.
func (m MultiSink) Record(action Action) {
	for _, s := range m {
		if s != nil {
			s.Record(action)
		}
	}
}

// Collector keeps every action it receives in memory.
type Collector struct {
	mu      sync.Mutex
	actions []Action
}

// Record appends action.
func (c *Collector) Record(action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, action)
}

// Actions returns a copy of the recorded actions.
func (c *Collector) Actions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}

// LogSink writes each action as one log line, e.g. "Moved /a/x to /hold/a/x".
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs to logger (slog.Default() if nil).
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record logs action. Failed actions are logged at error level.
func (s *LogSink) Record(action Action) {
	attrs := []any{
		"run_id", action.RunID,
		"phase", string(action.Phase),
		"kind", string(action.Kind),
		"source", action.Source,
		"dry_run", action.DryRun,
	}
	if action.Destination != "" {
		attrs = append(attrs, "destination", action.Destination)
	}

	if action.Err != nil {
		attrs = append(attrs,
			"error", action.Err,
			"reason", FailureReason(action.Err),
		)
		s.logger.Error("failed: "+action.String(), attrs...)
		return
	}
	s.logger.Info(action.String(), attrs...)
}
