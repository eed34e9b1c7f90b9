package retention

import (
	"os"
	"path/filepath"
	"time"
)

// day is the unit of every age limit.
const day = 24 * time.Hour

// AgeEvaluator decides whether entries are old enough under an age limit.
//
// Subtree results are memoized by path, so an evaluator must not outlive
// the pass that created it.
type AgeEvaluator struct {
	now   time.Time
	trees map[string]bool
}

// NewAgeEvaluator creates an evaluator that measures age relative to now.
func NewAgeEvaluator(now time.Time) *AgeEvaluator {
	return &AgeEvaluator{
		now:   now,
		trees: make(map[string]bool),
	}
}

// Exceeds reports whether modTime is strictly older than limitDays at now.
func Exceeds(modTime time.Time, limitDays int, now time.Time) bool {
	return now.Sub(modTime) > time.Duration(limitDays)*day
}

// IsOldEnough reports whether the entry at path is older than limitDays.
// The entry's own metadata is used; symlinks are not followed.
func (a *AgeEvaluator) IsOldEnough(path string, limitDays int) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, NewEntryError("lstat", path, err)
	}
	return Exceeds(info.ModTime(), limitDays, a.now), nil
}

// IsTreeOldEnough reports whether the entry at path and every descendant
// are older than limitDays. For anything but a real directory it is the
// same as IsOldEnough. An empty directory only has to satisfy its own age.
func (a *AgeEvaluator) IsTreeOldEnough(path string, limitDays int) (bool, error) {
	if old, ok := a.trees[path]; ok {
		return old, nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		return false, NewEntryError("lstat", path, err)
	}
	if !Exceeds(info.ModTime(), limitDays, a.now) {
		a.trees[path] = false
		return false, nil
	}
	if !info.IsDir() {
		a.trees[path] = true
		return true, nil
	}

	children, err := os.ReadDir(path)
	if err != nil {
		return false, NewEntryError("read directory", path, err)
	}
	for _, child := range children {
		old, err := a.IsTreeOldEnough(filepath.Join(path, child.Name()), limitDays)
		if err != nil {
			return false, err
		}
		if !old {
			a.trees[path] = false
			return false, nil
		}
	}

	a.trees[path] = true
	return true, nil
}
