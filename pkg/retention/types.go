package retention

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WatchedDirectory is a top-level folder subject to age-based retention.
type WatchedDirectory struct {
	// Path is the absolute path of the directory.
	Path string

	// AgeLimit is the number of days after which an entry is eligible.
	AgeLimit int
}

// Config is the engine configuration for one run.
// It is expected to be validated before it reaches the engine.
type Config struct {
	// HoldingRoot is the absolute path of the holding area.
	HoldingRoot string

	// HoldingAgeLimit is the number of days an entry stays in holding
	// before it is deleted for good.
	HoldingAgeLimit int

	// Watched lists the directories to process, in order.
	Watched []WatchedDirectory
}

// Disposition is the outcome computed for a single entry during a pass.
type Disposition int

const (
	// DispositionSkip leaves the entry alone.
	DispositionSkip Disposition = iota
	// DispositionMove relocates the entry into holding.
	DispositionMove
	// DispositionDelete removes the entry.
	DispositionDelete
)

// String returns the disposition name.
func (d Disposition) String() string {
	switch d {
	case DispositionSkip:
		return "skip"
	case DispositionMove:
		return "move"
	case DispositionDelete:
		return "delete"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// ActionKind identifies what happened to an entry.
type ActionKind string

const (
	// ActionMoved means the entry was relocated into holding.
	ActionMoved ActionKind = "moved"
	// ActionDeleted means the entry was removed.
	ActionDeleted ActionKind = "deleted"
)

// Phase identifies which pass produced an action.
type Phase string

const (
	// PhaseMove is the pass over a watched directory.
	PhaseMove Phase = "move"
	// PhaseExpire is the pass over a watched directory's holding mirror.
	PhaseExpire Phase = "expire"
)

// Action is the record of one executed (or, in dry run, planned) action.
type Action struct {
	RunID       string
	Kind        ActionKind
	Phase       Phase
	Source      string
	Destination string // empty for deletions
	DryRun      bool
	At          time.Time

	// Err is set when the action was attempted and failed.
	Err error
}

// Failed reports whether the action failed.
func (a Action) Failed() bool {
	return a.Err != nil
}

// String renders the action as a human-readable line.
func (a Action) String() string {
	switch a.Kind {
	case ActionMoved:
		return fmt.Sprintf("Moved %s to %s", a.Source, a.Destination)
	case ActionDeleted:
		return fmt.Sprintf("Deleted %s", a.Source)
	default:
		return fmt.Sprintf("%s %s", a.Kind, a.Source)
	}
}

// Clock is a source of the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// NewRunID returns a fresh identifier for one engine invocation.
func NewRunID() string {
	return uuid.New().String()
}
