package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"expirito-hq/expirito/pkg/config"
	"expirito-hq/expirito/pkg/retention"
)

// Preflight returns a checker loaded with the checks that decide whether a
// run with cfg can do its job:
//
//   - every watched directory can be listed
//   - the holding root, or the directory it will be created in, is writable
//   - every watched directory sits on the same filesystem as holding (a
//     warning otherwise, since moves then fall back to copying)
//   - the directories of the lock file, journal and metrics textfile are
//     writable when those features are in use
func Preflight(cfg *config.Config) *Checker {
	c := New(0)

	for _, d := range cfg.Directories {
		watched := d.Path
		c.RegisterCheck("watched:"+watched, func(ctx context.Context) error {
			return CheckReadableDir(watched)
		})
		c.RegisterCheck("device:"+watched, func(ctx context.Context) error {
			return CheckSameDevice(watched, cfg.HoldingDirectory)
		})
	}

	holding := cfg.HoldingDirectory
	c.RegisterCheck("holding", func(ctx context.Context) error {
		return CheckWritableDir(holding)
	})

	if cfg.LockFile != "" {
		lockDir := filepath.Dir(cfg.LockFile)
		c.RegisterCheck("lock", func(ctx context.Context) error {
			return CheckWritableDir(lockDir)
		})
	}
	if cfg.Journal.Enabled {
		journalDir := filepath.Dir(cfg.Journal.Path)
		c.RegisterCheck("journal", func(ctx context.Context) error {
			return CheckWritableDir(journalDir)
		})
	}
	if cfg.Metrics.Enabled {
		metricsDir := filepath.Dir(cfg.Metrics.TextfilePath)
		c.RegisterCheck("metrics", func(ctx context.Context) error {
			return CheckWritableDir(metricsDir)
		})
	}

	return c
}

// CheckReadableDir verifies that path is a directory whose entries can be
// listed.
func CheckReadableDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("cannot list %s: %w", path, err)
	}
	return nil
}

// CheckWritableDir verifies that files can be created in path. When path
// does not exist yet, its nearest existing ancestor is probed instead, since
// that is where it will be created.
func CheckWritableDir(path string) error {
	dir, err := nearestExisting(path)
	if err != nil {
		return err
	}

	probe, err := os.CreateTemp(dir, ".expirito-probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// CheckSameDevice returns a Warning when watched and the holding root are
// on different filesystems.
func CheckSameDevice(watched, holding string) error {
	holdingDir, err := nearestExisting(retention.MirrorPath(holding, watched))
	if err != nil {
		return err
	}

	same, err := sameDevice(watched, holdingDir)
	if err != nil {
		return err
	}
	if !same {
		return Warningf("%s and %s are on different filesystems; moves will copy data", watched, holdingDir)
	}
	return nil
}

// nearestExisting returns path or its closest ancestor that exists. The
// result must be a directory.
func nearestExisting(path string) (string, error) {
	dir := filepath.Clean(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", dir)
			}
			return dir, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err
		}
		dir = parent
	}
}
