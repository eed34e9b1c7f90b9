package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	// ErrEntryVanished matches errors caused by an entry disappearing
	// between enumeration and action.
	ErrEntryVanished = errors.New("entry vanished")

	// ErrPermission matches errors caused by insufficient permissions.
	ErrPermission = errors.New("permission denied")

	// ErrRelocationConflict matches errors caused by an occupied
	// destination inside holding.
	ErrRelocationConflict = errors.New("relocation conflict")

	// errDescendantsRemain is reported for a directory whose contents
	// could not all be deleted.
	errDescendantsRemain = errors.New("directory still has entries after deleting its contents")
)

// EntryError represents a failed filesystem operation on a single entry.
type EntryError struct {
	Op   string // Operation that failed ("lstat", "move", "delete", etc.)
	Path string // Entry path
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause error.
func (e *EntryError) Unwrap() error {
	return e.Err
}

// Is classifies the underlying cause against ErrEntryVanished and ErrPermission.
func (e *EntryError) Is(target error) bool {
	switch target {
	case ErrEntryVanished:
		return errors.Is(e.Err, fs.ErrNotExist)
	case ErrPermission:
		return errors.Is(e.Err, fs.ErrPermission)
	default:
		return false
	}
}

// NewEntryError creates a new EntryError.
func NewEntryError(op, path string, err error) *EntryError {
	return &EntryError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// RelocationConflictError represents a destination inside holding that is
// already occupied by an incompatible entry.
type RelocationConflictError struct {
	Source      string // Entry being relocated
	Destination string // Occupied path
	Existing    string // What occupies it ("file", "directory", "symlink", ...)
}

// Error implements the error interface.
func (e *RelocationConflictError) Error() string {
	return fmt.Sprintf("relocation conflict [source=%s, destination=%s]: destination occupied by %s",
		e.Source, e.Destination, e.Existing)
}

// Is reports whether target is ErrRelocationConflict.
func (e *RelocationConflictError) Is(target error) bool {
	return target == ErrRelocationConflict
}

// NewRelocationConflictError creates a new RelocationConflictError.
func NewRelocationConflictError(source, destination string, existing fs.FileMode) *RelocationConflictError {
	return &RelocationConflictError{
		Source:      source,
		Destination: destination,
		Existing:    describeMode(existing),
	}
}

// FailureReason returns a short, stable classification of err
// suitable for metric labels.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRelocationConflict):
		return "conflict"
	case errors.Is(err, ErrEntryVanished):
		return "vanished"
	case errors.Is(err, ErrPermission):
		return "permission"
	default:
		return "io"
	}
}

// isMissing reports whether err means that a path or one of its parents
// does not exist.
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func describeMode(mode fs.FileMode) string {
	switch {
	case mode&fs.ModeSymlink != 0:
		return "symlink"
	case mode.IsDir():
		return "directory"
	case mode.IsRegular():
		return "file"
	default:
		return "special file"
	}
}
