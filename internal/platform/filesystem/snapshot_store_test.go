package filesystem

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/image-tagger/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".queue_state.json"), store.Path())

	q := task.NewQueue(task.WithLogger(testLogger()))
	q.AddTask("/photos/a.jpg")
	q.AddTask("/photos/b.jpg")
	q.GetNextTask()
	q.FinishCurrentTask(true, task.Result{"description": "a beach"}, "")

	require.NoError(t, store.Save(ctx, task.NewSnapshot(q, time.Now())))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.SnapshotVersion, loaded.Version)
	require.Len(t, loaded.Queue, 1)
	assert.Equal(t, "/photos/b.jpg", loaded.Queue[0].ImagePath)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, "a beach", loaded.History[0].Result["description"])

	// no temporary files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StateFileName, entries[0].Name())
}

func TestSnapshotStore_FileIsIndentedJSON(t *testing.T) {
	t.Parallel()

	store, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), task.NewSnapshot(task.NewQueue(), time.Now())))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), "\n  \"version\": 1")
}

func TestSnapshotStore_Overwrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)

	q := task.NewQueue(task.WithLogger(testLogger()))
	q.AddTask("first.jpg")
	require.NoError(t, store.Save(ctx, task.NewSnapshot(q, time.Now())))
	q.AddTask("second.jpg")
	require.NoError(t, store.Save(ctx, task.NewSnapshot(q, time.Now())))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Queue, 2)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "replaced snapshots leave no temporary files")
}

func TestSnapshotStore_SaveMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	store, err := NewSnapshotStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	err = store.Save(context.Background(), task.NewSnapshot(task.NewQueue(), time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create temporary snapshot file")
}

func TestSnapshotStore_LoadErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		store, err := NewSnapshotStore(t.TempDir())
		require.NoError(t, err)
		_, err = store.Load(ctx)
		assert.ErrorIs(t, err, task.ErrNoSnapshot)
	})

	t.Run("corrupt file", func(t *testing.T) {
		t.Parallel()

		store, err := NewSnapshotStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.Path(), []byte(`{"queue": [`), 0o600))

		_, err = store.Load(ctx)
		assert.ErrorIs(t, err, task.ErrCorruptSnapshot)

		// the persistence facade treats this as "no prior state"
		assert.Nil(t, task.NewPersistence(store, testLogger()).Load(ctx))
	})
}

func TestSnapshotStore_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx), "clearing a missing file is not an error")

	require.NoError(t, store.Save(ctx, task.NewSnapshot(task.NewQueue(), time.Now())))
	require.NoError(t, store.Clear(ctx))

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, task.ErrNoSnapshot)
}

func TestSnapshotStore_CrashRecovery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir)
	require.NoError(t, err)

	q := task.NewQueue(task.WithLogger(testLogger()))
	q.AddTask("x.png")
	q.AddTask("y.png")
	require.True(t, q.TryStartProcessing())
	cur := q.GetNextTask()
	require.NoError(t, cur.Start())
	cur.UpdateProgress(0.66)
	require.True(t, task.NewPersistence(store, testLogger()).Save(ctx, q))

	// a fresh process opens the same directory
	reopened, err := NewSnapshotStore(dir)
	require.NoError(t, err)
	restored := task.NewPersistence(reopened, testLogger()).Load(ctx)
	require.NotNil(t, restored)

	assert.False(t, restored.IsProcessing())
	require.Len(t, restored.Pending(), 1)
	assert.Equal(t, "y.png", restored.Pending()[0].ImagePath())
	require.Len(t, restored.History(), 1)
	view := restored.History()[0].View()
	assert.Equal(t, task.TaskStatusInterrupted, view.Status)
	assert.InDelta(t, 0.66, view.Progress, 1e-9)
}

func TestNewSnapshotStore(t *testing.T) {
	t.Parallel()

	_, err := NewSnapshotStore("")
	assert.Error(t, err)

	nested := filepath.Join(t.TempDir(), "a", "b")
	store, err := NewSnapshotStore(nested)
	require.NoError(t, err)
	assert.DirExists(t, nested)
	assert.Equal(t, filepath.Join(nested, StateFileName), store.Path())
}
