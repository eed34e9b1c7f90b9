package journal

import (
	"time"

	"expirito-hq/expirito/pkg/retention"
)

// Run is one engine invocation as recorded in the journal.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time // nil while running or if the process died
	DryRun     bool
	ConfigPath string
	Actions    int
	Failures   int
}

// Entry is one journaled action.
type Entry struct {
	ID          int64
	RunID       string
	Phase       retention.Phase
	Kind        retention.ActionKind
	Source      string
	Destination string
	DryRun      bool
	At          time.Time

	// Error is the failure message, empty for successful actions.
	Error string

	// Reason classifies the failure (see retention.FailureReason).
	Reason string
}

// Failed reports whether the journaled action failed.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Query filters journal entries. Zero values mean "any".
type Query struct {
	RunID      string
	Phase      retention.Phase
	Kind       retention.ActionKind
	Source     string // prefix match on the source path
	FailedOnly bool
	Since      *time.Time

	// Limit caps the number of entries returned. Default: 100
	Limit  int
	Offset int
}

// DefaultQueryLimit is used when Query.Limit is zero.
const DefaultQueryLimit = 100
