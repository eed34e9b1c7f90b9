package retention

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// MirrorPath returns the location of entryPath inside holdingRoot. The
// volume name and leading separators are stripped from entryPath and the
// remainder is joined under holdingRoot:
//
//	MirrorPath("/hold", "/data/a/old.txt") == "/hold/data/a/old.txt"
func MirrorPath(holdingRoot, entryPath string) string {
	rel := entryPath[len(filepath.VolumeName(entryPath)):]
	rel = strings.TrimLeft(rel, `/\`)
	return filepath.Join(holdingRoot, rel)
}

// Relocator moves entries into a holding area, replicating their full path.
type Relocator struct {
	now    time.Time
	logger *slog.Logger
	stamp  func(path string, t time.Time) error
}

// NewRelocator creates a relocator that stamps moved entries with now.
func NewRelocator(now time.Time, logger *slog.Logger) *Relocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relocator{
		now:    now,
		logger: logger.With("component", "retention.relocator"),
		stamp:  stampModTime,
	}
}

// Relocate moves entryPath to its mirror path under holdingRoot and returns
// the destination. Symlinks are moved as links. Missing parent directories
// are created.
//
// In dry run the destination is checked for conflicts but nothing is
// created or moved; the computed destination is still returned.
func (r *Relocator) Relocate(entryPath, holdingRoot string, dryRun bool) (string, error) {
	dest := MirrorPath(holdingRoot, entryPath)

	src, err := os.Lstat(entryPath)
	if err != nil {
		return dest, NewEntryError("lstat", entryPath, err)
	}

	merge, err := r.checkDestination(entryPath, src, dest)
	if err != nil {
		return dest, err
	}
	if dryRun {
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return dest, NewEntryError("create holding directory", filepath.Dir(dest), err)
	}

	if merge {
		// An empty directory whose mirror already exists has nothing
		// left to carry over. The mirror keeps its own time: it may hold
		// entries from earlier runs.
		if err := os.Remove(entryPath); err != nil {
			return dest, NewEntryError("remove", entryPath, err)
		}
		return dest, nil
	}

	if err := r.move(entryPath, dest, src); err != nil {
		return dest, err
	}

	// The entry is in holding either way; without the stamp it expires
	// by its original age.
	if err := r.stamp(dest, r.now); err != nil {
		r.logger.Warn("failed to stamp relocated entry",
			"destination", dest,
			"error", err,
		)
	}
	return dest, nil
}

// checkDestination reports a conflict if dest, or the nearest existing
// ancestor of dest, cannot receive src. It returns merge=true when src is
// an empty directory and dest is already a directory.
func (r *Relocator) checkDestination(entryPath string, src fs.FileInfo, dest string) (merge bool, err error) {
	existing, err := os.Lstat(dest)
	switch {
	case err == nil:
		if src.IsDir() && existing.IsDir() {
			empty, err := isEmptyDir(entryPath)
			if err != nil {
				return false, err
			}
			if empty {
				return true, nil
			}
		}
		return false, NewRelocationConflictError(entryPath, dest, existing.Mode())
	case !isMissing(err):
		return false, NewEntryError("lstat", dest, err)
	}

	for dir := filepath.Dir(dest); ; dir = filepath.Dir(dir) {
		info, err := os.Lstat(dir)
		if err == nil {
			if !info.IsDir() {
				return false, NewRelocationConflictError(entryPath, dir, info.Mode())
			}
			return false, nil
		}
		if !isMissing(err) {
			return false, NewEntryError("lstat", dir, err)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return false, nil
		}
	}
}

// move renames src to dest, falling back to copy-and-remove when they live
// on different filesystems.
func (r *Relocator) move(src, dest string, info fs.FileInfo) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return NewEntryError("move", src, err)
	}

	r.logger.Debug("rename crosses filesystems, copying instead",
		"source", src,
		"destination", dest,
	)
	if err := copyEntry(src, dest, info); err != nil {
		// Leave the source intact and drop the partial copy.
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			r.logger.Warn("failed to clean up partial copy",
				"destination", dest,
				"error", rmErr,
			)
		}
		return NewEntryError("copy", src, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return NewEntryError("remove", src, err)
	}
	return nil
}

// copyEntry copies src to dest without following symlinks. Regular files
// keep their permissions and modification times; directories are copied
// recursively.
func copyEntry(src, dest string, info fs.FileInfo) error {
	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dest)

	case mode.IsDir():
		if err := os.Mkdir(dest, mode.Perm()|0o700); err != nil {
			return err
		}
		children, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, child := range children {
			childInfo, err := child.Info()
			if err != nil {
				return err
			}
			name := child.Name()
			if err := copyEntry(filepath.Join(src, name), filepath.Join(dest, name), childInfo); err != nil {
				return err
			}
		}
		if err := os.Chmod(dest, mode.Perm()); err != nil {
			return err
		}
		return os.Chtimes(dest, info.ModTime(), info.ModTime())

	case mode.IsRegular():
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode.Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		return os.Chtimes(dest, info.ModTime(), info.ModTime())

	default:
		return &fs.PathError{Op: "copy", Path: src, Err: errors.ErrUnsupported}
	}
}

// isEmptyDir reports whether the directory at path has no entries.
func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, NewEntryError("open", path, err)
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, NewEntryError("read directory", path, err)
	}
	return false, nil
}
