package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"expirito-hq/expirito/pkg/journal"
	"expirito-hq/expirito/pkg/retention"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv is a temporary installation: a config file, one watched directory
// and the paths the config points at.
type testEnv struct {
	root       string
	configPath string
	data       string
	hold       string
	lockFile   string
	journal    string
	metrics    string
}

// newTestEnv writes a config with the journal and metrics enabled and resets
// the command flags to point at it. extra is appended to the config.
func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()

	root := t.TempDir()
	env := &testEnv{
		root:       root,
		configPath: filepath.Join(root, "config.yaml"),
		data:       filepath.Join(root, "data"),
		hold:       filepath.Join(root, "hold"),
		lockFile:   filepath.Join(root, "state", "expirito.lock"),
		journal:    filepath.Join(root, "state", "journal.db"),
		metrics:    filepath.Join(root, "metrics", "expirito.prom"),
	}
	require.NoError(t, os.MkdirAll(env.data, 0o755))

	content := `
holding_directory: ` + env.hold + `
holding_age_limit: 90
directories:
  - path: ` + env.data + `
    age_limit: 5
lock_file: ` + env.lockFile + `
logging:
  level: error
journal:
  enabled: true
  path: ` + env.journal + `
metrics:
  enabled: true
  textfile_path: ` + env.metrics + `
` + extra
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o644))

	resetFlags(t)
	cfgFile = env.configPath
	return env
}

// resetFlags restores every command flag to its default and pins the clock.
func resetFlags(t *testing.T) {
	t.Helper()

	t.Setenv("EXPIRITO_CONFIG", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfgFile = ""
	verbose = false
	runFlags.dryRun = false
	runFlags.logLevel = ""
	runFlags.format = "text"
	validateFlags.check = false
	journalFlags.runID = ""
	journalFlags.phase = ""
	journalFlags.kind = ""
	journalFlags.source = ""
	journalFlags.failed = false
	journalFlags.since = 0
	journalFlags.limit = journal.DefaultQueryLimit
	journalFlags.offset = 0
	journalFlags.format = "text"
	journalFlags.runsLimit = 20

	prevClock := runClock
	runClock = retention.FixedClock(testNow)
	t.Cleanup(func() { runClock = prevClock })
}

// testCommand returns a command whose output is captured in the returned
// buffer.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	return cmd, buf
}

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
	mtime := testNow.Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}
