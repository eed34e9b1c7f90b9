package retention

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PassOptions configures a Pass.
type PassOptions struct {
	// Phase labels the actions the pass produces.
	Phase Phase

	// RunID is stamped on every action.
	RunID string

	// Now is the reference time for all age checks.
	Now time.Time

	// Sink receives every action. May be nil.
	Sink Sink

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Pass applies the retention policy to the direct children of one folder.
type Pass struct {
	phase     Phase
	runID     string
	now       time.Time
	sink      Sink
	logger    *slog.Logger
	relocator *Relocator

	// Per-run state, reset by Run.
	ages    *AgeEvaluator
	dryRun  bool
	actions []Action
}

// NewPass creates a retention pass.
func NewPass(opts PassOptions) *Pass {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pass{
		phase:     opts.Phase,
		runID:     opts.RunID,
		now:       opts.Now,
		sink:      opts.Sink,
		logger:    logger.With("component", "retention.pass", "phase", string(opts.Phase)),
		relocator: NewRelocator(opts.Now, logger),
	}
}

// Run classifies every direct child of folder and moves (holdingRoot set)
// or deletes (holdingRoot empty) the eligible ones. It returns the actions
// taken, failed ones included.
//
// A failure on one entry never stops the pass. The returned error is set
// only when folder cannot be read or ctx is cancelled; cancellation is
// checked between entries.
func (p *Pass) Run(ctx context.Context, folder string, ageLimitDays int, holdingRoot string, dryRun bool) ([]Action, error) {
	p.ages = NewAgeEvaluator(p.now)
	p.dryRun = dryRun
	p.actions = nil

	children, err := os.ReadDir(folder)
	if err != nil {
		return nil, NewEntryError("read directory", folder, err)
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return p.actions, err
		}

		path := filepath.Join(folder, child.Name())
		disposition, err := p.classify(path, child.Type(), ageLimitDays, holdingRoot != "")
		if err != nil {
			p.logger.Warn("cannot evaluate entry, skipping",
				"path", path,
				"reason", FailureReason(err),
				"error", err,
			)
			continue
		}
		p.execute(disposition, path, child.Type(), holdingRoot)
	}

	return p.actions, nil
}

// classify computes the disposition of one entry.
func (p *Pass) classify(path string, typ fs.FileMode, ageLimitDays int, holding bool) (Disposition, error) {
	eligible, err := p.eligible(path, typ, ageLimitDays)
	if err != nil || !eligible {
		return DispositionSkip, err
	}
	if holding {
		return DispositionMove, nil
	}
	return DispositionDelete, nil
}

func (p *Pass) eligible(path string, typ fs.FileMode, ageLimitDays int) (bool, error) {
	switch {
	case typ&fs.ModeSymlink != 0 && p.phase == PhaseExpire:
		// A link in holding is aged by its relocation stamp. Moving a
		// relative link can leave it dangling, which must not cut its
		// grace period short.
		return p.ages.IsOldEnough(path, ageLimitDays)
	case typ&fs.ModeSymlink != 0:
		dangling, err := IsDangling(path)
		if err != nil {
			return false, err
		}
		if dangling {
			p.logger.Debug("dangling symlink", "path", path)
			return true, nil
		}
		return p.ages.IsOldEnough(path, ageLimitDays)
	case typ.IsDir():
		return p.ages.IsTreeOldEnough(path, ageLimitDays)
	case typ.IsRegular():
		return p.ages.IsOldEnough(path, ageLimitDays)
	default:
		return false, nil
	}
}

// execute carries out a disposition.
func (p *Pass) execute(disposition Disposition, path string, typ fs.FileMode, holdingRoot string) {
	switch disposition {
	case DispositionSkip:
		return
	case DispositionMove:
		dest, err := p.relocator.Relocate(path, holdingRoot, p.dryRun)
		p.emit(ActionMoved, path, dest, err)
	case DispositionDelete:
		if typ.IsDir() {
			p.deleteTree(path)
			return
		}
		p.emit(ActionDeleted, path, "", p.remove(path))
	default:
		panic(fmt.Sprintf("retention: unhandled disposition %v for %s", disposition, path))
	}
}

// deleteTree deletes the contents of the directory at path bottom-up,
// then the directory itself. Each removal is its own action. The directory
// is only removed once everything inside it is gone. It reports whether
// the directory was removed (or, in dry run, would be).
func (p *Pass) deleteTree(path string) bool {
	children, err := os.ReadDir(path)
	if err != nil {
		p.emit(ActionDeleted, path, "", NewEntryError("read directory", path, err))
		return false
	}

	clean := true
	for _, child := range children {
		childPath := filepath.Join(path, child.Name())
		if child.IsDir() {
			if !p.deleteTree(childPath) {
				clean = false
			}
			continue
		}
		err := p.remove(childPath)
		p.emit(ActionDeleted, childPath, "", err)
		if err != nil {
			clean = false
		}
	}

	if !clean {
		p.emit(ActionDeleted, path, "", NewEntryError("delete", path, errDescendantsRemain))
		return false
	}

	if !p.dryRun {
		empty, err := isEmptyDir(path)
		if err != nil {
			p.emit(ActionDeleted, path, "", err)
			return false
		}
		if !empty {
			panic(fmt.Sprintf("retention: refusing to remove non-empty directory %s", path))
		}
	}

	err = p.remove(path)
	p.emit(ActionDeleted, path, "", err)
	return err == nil
}

// remove unlinks a file or symlink, or removes an empty directory.
func (p *Pass) remove(path string) error {
	if p.dryRun {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return NewEntryError("delete", path, err)
	}
	return nil
}

// emit records one action.
func (p *Pass) emit(kind ActionKind, source, destination string, err error) {
	action := Action{
		RunID:       p.runID,
		Kind:        kind,
		Phase:       p.phase,
		Source:      source,
		Destination: destination,
		DryRun:      p.dryRun,
		At:          p.now,
		Err:         err,
	}
	p.actions = append(p.actions, action)
	if p.sink != nil {
		p.sink.Record(action)
	}
}
