//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package retention

import (
	"time"

	"golang.org/x/sys/unix"
)

// stampModTime sets the access and modification time of path to t
// without following a final symlink.
func stampModTime(path string, t time.Time) error {
	ts := unix.NsecToTimespec(t.UnixNano())
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, []unix.Timespec{ts, ts}, unix.AT_SYMLINK_NOFOLLOW)
}
