//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package retention

import (
	"io/fs"
	"os"
	"time"
)

// stampModTime sets the access and modification time of path to t.
// Symlinks are left as they are: there is no portable way to change a
// link's own times here, and following it would touch the target.
func stampModTime(path string, t time.Time) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil
	}
	return os.Chtimes(path, t, t)
}
