package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPass(now time.Time, phase Phase, sink Sink) *Pass {
	return NewPass(PassOptions{
		Phase: phase,
		RunID: "test-run",
		Now:   now,
		Sink:  sink,
	})
}

func TestPass_MovesOldFiles(t *testing.T) {
	root := t.TempDir()
	watched := filepath.Join(root, "data", "a")
	holding := filepath.Join(root, "hold")
	now := time.Now()

	writeFile(t, filepath.Join(watched, "old.txt"), daysAgo(now, 10))
	writeFile(t, filepath.Join(watched, "new.txt"), daysAgo(now, 1))

	collector := &Collector{}
	actions, err := newTestPass(now, PhaseMove, collector).Run(context.Background(), watched, 5, holding, false)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, actions, collector.Actions())

	a := actions[0]
	assert.Equal(t, ActionMoved, a.Kind)
	assert.Equal(t, PhaseMove, a.Phase)
	assert.Equal(t, "test-run", a.RunID)
	assert.Equal(t, filepath.Join(watched, "old.txt"), a.Source)
	assert.Equal(t, MirrorPath(holding, filepath.Join(watched, "old.txt")), a.Destination)
	assert.NoError(t, a.Err)

	assert.False(t, exists(filepath.Join(watched, "old.txt")))
	assert.True(t, exists(a.Destination))
	assert.True(t, exists(filepath.Join(watched, "new.txt")))
}

func TestPass_DeletesWithoutHolding(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	writeFile(t, filepath.Join(root, "old.txt"), daysAgo(now, 10))
	writeFile(t, filepath.Join(root, "new.txt"), daysAgo(now, 1))

	actions, err := newTestPass(now, PhaseExpire, nil).Run(context.Background(), root, 5, "", false)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionDeleted, actions[0].Kind)
	assert.Empty(t, actions[0].Destination)
	assert.False(t, exists(filepath.Join(root, "old.txt")))
	assert.True(t, exists(filepath.Join(root, "new.txt")))
}

func TestPass_DirectoryWithFreshDescendantIsKept(t *testing.T) {
	for _, holding := range []bool{true, false} {
		t.Run(map[bool]string{true: "move", false: "delete"}[holding], func(t *testing.T) {
			root := t.TempDir()
			watched := filepath.Join(root, "data")
			holdingRoot := ""
			if holding {
				holdingRoot = filepath.Join(root, "hold")
			}
			now := time.Now()

			project := filepath.Join(watched, "project")
			writeFile(t, filepath.Join(project, "src", "main.go"), daysAgo(now, 1))
			writeFile(t, filepath.Join(project, "README"), daysAgo(now, 400))
			mkdir(t, filepath.Join(project, "src"), daysAgo(now, 400))
			mkdir(t, project, daysAgo(now, 400))

			actions, err := newTestPass(now, PhaseMove, nil).Run(context.Background(), watched, 5, holdingRoot, false)
			require.NoError(t, err)

			assert.Empty(t, actions)
			assert.True(t, exists(filepath.Join(project, "README")))
			assert.True(t, exists(filepath.Join(project, "src", "main.go")))
		})
	}
}

func TestPass_EmptyOldDirectory(t *testing.T) {
	root := t.TempDir()
	watched := filepath.Join(root, "data")
	holding := filepath.Join(root, "hold")
	now := time.Now()

	mkdir(t, filepath.Join(watched, "empty-old"), daysAgo(now, 10))
	mkdir(t, filepath.Join(watched, "empty-new"), daysAgo(now, 1))

	actions, err := newTestPass(now, PhaseMove, nil).Run(context.Background(), watched, 5, holding, false)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, filepath.Join(watched, "empty-old"), actions[0].Source)
	assert.True(t, exists(MirrorPath(holding, filepath.Join(watched, "empty-old"))))
	assert.True(t, exists(filepath.Join(watched, "empty-new")))
}

func TestPass_DeletesOldTreeBottomUp(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	tree := filepath.Join(root, "tree")
	writeFile(t, filepath.Join(tree, "sub", "a.txt"), daysAgo(now, 200))
	writeFile(t, filepath.Join(tree, "b.txt"), daysAgo(now, 200))
	mkdir(t, filepath.Join(tree, "sub"), daysAgo(now, 200))
	mkdir(t, tree, daysAgo(now, 200))

	actions, err := newTestPass(now, PhaseExpire, nil).Run(context.Background(), root, 90, "", false)
	require.NoError(t, err)

	sources := make([]string, 0, len(actions))
	for _, a := range actions {
		assert.Equal(t, ActionDeleted, a.Kind)
		assert.NoError(t, a.Err)
		sources = append(sources, a.Source)
	}
	require.Len(t, sources, 4)
	assert.Equal(t, tree, sources[len(sources)-1], "the directory goes last")
	assert.Less(t, indexOf(sources, filepath.Join(tree, "sub", "a.txt")), indexOf(sources, filepath.Join(tree, "sub")))
	assert.False(t, exists(tree))
}

func TestPass_DanglingSymlinkAlwaysEligible(t *testing.T) {
	root := t.TempDir()
	watched := filepath.Join(root, "data")
	holding := filepath.Join(root, "hold")
	now := time.Now()

	link := filepath.Join(watched, "broken")
	symlink(t, filepath.Join(root, "missing"), link, now)

	actions, err := newTestPass(now, PhaseMove, nil).Run(context.Background(), watched, 10000, holding, false)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionMoved, actions[0].Kind)
	assert.False(t, exists(link))

	info, err := os.Lstat(actions[0].Destination)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
}

func TestPass_LiveSymlinkByOwnAge(t *testing.T) {
	root := t.TempDir()
	watched := filepath.Join(root, "data")
	now := time.Now()

	target := filepath.Join(root, "outside", "target.txt")
	writeFile(t, target, daysAgo(now, 1))
	targetBefore := snapshot(t, filepath.Join(root, "outside"))

	symlink(t, target, filepath.Join(watched, "young-link"), daysAgo(now, 1))
	symlink(t, target, filepath.Join(watched, "old-link"), daysAgo(now, 30))

	actions, err := newTestPass(now, PhaseExpire, nil).Run(context.Background(), watched, 5, "", false)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, filepath.Join(watched, "old-link"), actions[0].Source)
	assert.True(t, exists(filepath.Join(watched, "young-link")))
	assert.Equal(t, targetBefore, snapshot(t, filepath.Join(root, "outside")), "target must be untouched")
}

func TestPass_ExpireAgesDanglingLinksByStamp(t *testing.T) {
	root := t.TempDir()
	mirror := filepath.Join(root, "hold", "data")
	now := time.Now()

	symlink(t, "target.txt", filepath.Join(mirror, "fresh"), daysAgo(now, 1))
	symlink(t, "target.txt", filepath.Join(mirror, "stale"), daysAgo(now, 100))

	actions, err := newTestPass(now, PhaseExpire, nil).Run(context.Background(), mirror, 90, "", false)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, filepath.Join(mirror, "stale"), actions[0].Source)
	assert.Equal(t, ActionDeleted, actions[0].Kind)
	assert.True(t, exists(filepath.Join(mirror, "fresh")))
}

func TestPass_FailureDoesNotStopSiblings(t *testing.T) {
	root := t.TempDir()
	watched := filepath.Join(root, "data")
	holding := filepath.Join(root, "hold")
	now := time.Now()

	conflicted := filepath.Join(watched, "conflicted.txt")
	writeFile(t, conflicted, daysAgo(now, 10))
	writeFile(t, MirrorPath(holding, conflicted), daysAgo(now, 1))
	writeFile(t, filepath.Join(watched, "fine.txt"), daysAgo(now, 10))

	actions, err := newTestPass(now, PhaseMove, nil).Run(context.Background(), watched, 5, holding, false)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	for _, a := range actions {
		switch a.Source {
		case conflicted:
			assert.True(t, errors.Is(a.Err, ErrRelocationConflict))
			assert.True(t, a.Failed())
		default:
			assert.NoError(t, a.Err)
		}
	}
	assert.True(t, exists(conflicted))
	assert.False(t, exists(filepath.Join(watched, "fine.txt")))
}

func TestPass_MissingFolder(t *testing.T) {
	_, err := newTestPass(time.Now(), PhaseMove, nil).Run(context.Background(), filepath.Join(t.TempDir(), "nope"), 5, "", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEntryVanished))
}

func TestPass_CancelledBetweenEntries(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeFile(t, filepath.Join(root, "old.txt"), daysAgo(now, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	actions, err := newTestPass(now, PhaseExpire, nil).Run(ctx, root, 5, "", false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, actions)
	assert.True(t, exists(filepath.Join(root, "old.txt")))
}

func TestPass_UnknownDispositionPanics(t *testing.T) {
	p := newTestPass(time.Now(), PhaseMove, nil)
	assert.Panics(t, func() {
		p.execute(Disposition(42), "/does/not/matter", 0, "")
	})
}

func TestDisposition_String(t *testing.T) {
	assert.Equal(t, "skip", DispositionSkip.String())
	assert.Equal(t, "move", DispositionMove.String())
	assert.Equal(t, "delete", DispositionDelete.String())
	assert.Equal(t, "disposition(7)", Disposition(7).String())
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
