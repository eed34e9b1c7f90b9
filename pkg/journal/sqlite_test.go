package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expirito-hq/expirito/pkg/retention"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "state", "journal.db")))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestNewSQLiteJournal_EmptyPath(t *testing.T) {
	_, err := NewSQLiteJournal(&SQLiteConfig{})
	require.Error(t, err)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "open", storageErr.Operation)
}

func TestNewSQLiteJournal_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := NewSQLiteJournal(DefaultSQLiteConfig(path))
	require.NoError(t, err)
	require.NoError(t, j.BeginRun(ctx, Run{ID: "run-1", StartedAt: time.Now()}))
	require.NoError(t, j.Close())

	j, err = NewSQLiteJournal(DefaultSQLiteConfig(path))
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestSQLiteJournal_RunLifecycle(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	started := time.Unix(1700000000, 0)

	require.NoError(t, j.BeginRun(ctx, Run{ID: "run-1", StartedAt: started, DryRun: true, ConfigPath: "/etc/expirito.yaml"}))

	runs, err := j.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].FinishedAt, "run not finished yet")
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, "/etc/expirito.yaml", runs[0].ConfigPath)
	assert.True(t, started.Equal(runs[0].StartedAt))

	finished := started.Add(time.Minute)
	require.NoError(t, j.FinishRun(ctx, "run-1", finished, 7, 2))

	runs, err = j.Runs(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, runs[0].FinishedAt)
	assert.True(t, finished.Equal(*runs[0].FinishedAt))
	assert.Equal(t, 7, runs[0].Actions)
	assert.Equal(t, 2, runs[0].Failures)
}

func TestSQLiteJournal_FinishUnknownRun(t *testing.T) {
	j := newTestJournal(t)
	err := j.FinishRun(context.Background(), "nope", time.Now(), 0, 0)
	require.Error(t, err)
}

func TestSQLiteJournal_RunsNewestFirst(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.BeginRun(ctx, Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	runs, err := j.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestSQLiteJournal_RecordAndList(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	at := time.Unix(1700000000, 0)

	conflict := retention.NewRelocationConflictError("/data/a/x.txt", "/hold/data/a/x.txt", 0)
	actions := []retention.Action{
		{RunID: "run-1", Kind: retention.ActionMoved, Phase: retention.PhaseMove, Source: "/data/a/old.txt", Destination: "/hold/data/a/old.txt", At: at},
		{RunID: "run-1", Kind: retention.ActionMoved, Phase: retention.PhaseMove, Source: "/data/a/x.txt", Destination: "/hold/data/a/x.txt", At: at, Err: conflict},
		{RunID: "run-1", Kind: retention.ActionDeleted, Phase: retention.PhaseExpire, Source: "/hold/data/a/stale.txt", At: at},
		{RunID: "run-2", Kind: retention.ActionDeleted, Phase: retention.PhaseExpire, Source: "/hold/data/b_c/y.txt", At: at.Add(time.Hour), DryRun: true},
	}
	for _, a := range actions {
		j.Record(a)
	}
	require.NoError(t, j.Err())

	tests := []struct {
		name    string
		query   Query
		sources []string
	}{
		{
			name:    "everything newest first",
			query:   Query{},
			sources: []string{"/hold/data/b_c/y.txt", "/hold/data/a/stale.txt", "/data/a/x.txt", "/data/a/old.txt"},
		},
		{
			name:    "by run",
			query:   Query{RunID: "run-2"},
			sources: []string{"/hold/data/b_c/y.txt"},
		},
		{
			name:    "by phase",
			query:   Query{Phase: retention.PhaseMove},
			sources: []string{"/data/a/x.txt", "/data/a/old.txt"},
		},
		{
			name:    "by kind",
			query:   Query{Kind: retention.ActionDeleted, RunID: "run-1"},
			sources: []string{"/hold/data/a/stale.txt"},
		},
		{
			name:    "failed only",
			query:   Query{FailedOnly: true},
			sources: []string{"/data/a/x.txt"},
		},
		{
			name:    "source prefix",
			query:   Query{Source: "/hold/"},
			sources: []string{"/hold/data/b_c/y.txt", "/hold/data/a/stale.txt"},
		},
		{
			name:    "source prefix treats underscore literally",
			query:   Query{Source: "/hold/data/b_"},
			sources: []string{"/hold/data/b_c/y.txt"},
		},
		{
			name:    "since",
			query:   Query{Since: ptr(at.Add(time.Minute))},
			sources: []string{"/hold/data/b_c/y.txt"},
		},
		{
			name:    "limit and offset",
			query:   Query{Limit: 2, Offset: 1},
			sources: []string{"/hold/data/a/stale.txt", "/data/a/x.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := j.List(ctx, tt.query)
			require.NoError(t, err)

			got := make([]string, 0, len(entries))
			for _, e := range entries {
				got = append(got, e.Source)
			}
			assert.Equal(t, tt.sources, got)
		})
	}
}

func TestSQLiteJournal_EntryFields(t *testing.T) {
	j := newTestJournal(t)
	at := time.Unix(1700000000, 123)

	j.Record(retention.Action{
		RunID:       "run-1",
		Kind:        retention.ActionMoved,
		Phase:       retention.PhaseMove,
		Source:      "/data/a/x.txt",
		Destination: "/hold/data/a/x.txt",
		DryRun:      true,
		At:          at,
		Err:         retention.NewRelocationConflictError("/data/a/x.txt", "/hold/data/a/x.txt", 0),
	})
	j.Record(retention.Action{RunID: "run-1", Kind: retention.ActionDeleted, Phase: retention.PhaseExpire, Source: "/hold/z", At: at})

	entries, err := j.List(context.Background(), Query{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	deleted, moved := entries[0], entries[1]

	assert.Equal(t, retention.ActionMoved, moved.Kind)
	assert.Equal(t, retention.PhaseMove, moved.Phase)
	assert.Equal(t, "/hold/data/a/x.txt", moved.Destination)
	assert.True(t, moved.DryRun)
	assert.True(t, at.Equal(moved.At))
	assert.True(t, moved.Failed())
	assert.Equal(t, "conflict", moved.Reason)
	assert.NotEmpty(t, moved.Error)

	assert.Empty(t, deleted.Destination)
	assert.False(t, deleted.Failed())
	assert.Empty(t, deleted.Reason)
}

func TestSQLiteJournal_RecordAfterCloseSetsErr(t *testing.T) {
	j, err := NewSQLiteJournal(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j.Record(retention.Action{RunID: "run-1", Kind: retention.ActionDeleted, Phase: retention.PhaseExpire, Source: "/x"})

	var storageErr *StorageError
	require.True(t, errors.As(j.Err(), &storageErr))
	assert.Equal(t, "record", storageErr.Operation)
}

func TestSQLiteJournal_ThroughEngine(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	root := t.TempDir()
	watched := filepath.Join(root, "data")
	holding := filepath.Join(root, "hold")
	now := time.Now()
	writeOldFile(t, filepath.Join(watched, "old.txt"), now.Add(-10*24*time.Hour))

	runID := retention.NewRunID()
	require.NoError(t, j.BeginRun(ctx, Run{ID: runID, StartedAt: now}))

	engine := retention.NewEngine(j, retention.WithRunID(runID))
	actions, err := engine.RunAll(ctx, retention.Config{
		HoldingRoot:     holding,
		HoldingAgeLimit: 90,
		Watched:         []retention.WatchedDirectory{{Path: watched, AgeLimit: 5}},
	}, now, false)
	require.NoError(t, err)
	require.NoError(t, j.FinishRun(ctx, runID, time.Now(), len(actions), 0))

	entries, err := j.List(ctx, Query{RunID: runID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(watched, "old.txt"), entries[0].Source)
	assert.Equal(t, retention.MirrorPath(holding, filepath.Join(watched, "old.txt")), entries[0].Destination)
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `/a/b%`, likePrefix("/a/b"))
	assert.Equal(t, `/a\_b\%c\\%`, likePrefix(`/a_b%c\`))
}

func writeOldFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func ptr[T any](v T) *T {
	return &v
}
