package retention

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
)

// ResolveLink returns the absolute, cleaned target of the symlink at path.
// Only one level of indirection is resolved and a missing target is not
// an error.
func ResolveLink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", NewEntryError("readlink", path, err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), nil
}

// IsDangling reports whether the symlink at path points at nothing.
// The link itself must exist; a chain of links is dangling when its final
// target is missing, and a loop never reaches a target so it is dangling
// too.
func IsDangling(path string) (bool, error) {
	target, err := ResolveLink(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(target)
	switch {
	case err == nil:
		return false, nil
	case isMissing(err), errors.Is(err, syscall.ELOOP):
		return true, nil
	default:
		return false, NewEntryError("stat", target, err)
	}
}
