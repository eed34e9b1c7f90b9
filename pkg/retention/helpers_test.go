package retention

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// daysAgo returns now minus n days.
func daysAgo(now time.Time, n int) time.Time {
	return now.Add(-time.Duration(n) * day)
}

// writeFile creates a file with content and the given modification time.
func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
	setModTime(t, path, mtime)
}

// mkdir creates a directory with the given modification time. Set the time
// after populating the directory: adding children bumps it.
func mkdir(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o755))
	setModTime(t, path, mtime)
}

// symlink creates a link at path pointing at target, with the link's own
// modification time set to mtime.
func symlink(t *testing.T, target, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.Symlink(target, path))
	setModTime(t, path, mtime)
}

// setModTime changes the modification time without following symlinks.
func setModTime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, stampModTime(path, mtime))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// snapshotEntry captures everything a retention run could change.
type snapshotEntry struct {
	Path    string
	Mode    fs.FileMode
	ModTime time.Time
	Size    int64
	Target  string
}

// snapshot walks root without following symlinks.
func snapshot(t *testing.T, root string) []snapshotEntry {
	t.Helper()
	var out []snapshotEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e := snapshotEntry{
			Path:    path,
			Mode:    info.Mode(),
			ModTime: info.ModTime(),
		}
		if info.Mode().IsRegular() {
			e.Size = info.Size()
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			e.Target, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}
		out = append(out, e)
		return nil
	})
	require.NoError(t, err)
	return out
}

// summary reduces actions to comparable strings, sorted because
// enumeration order is not guaranteed.
func summary(actions []Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		s := string(a.Phase) + " " + a.String()
		if a.Err != nil {
			s += " (failed)"
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
