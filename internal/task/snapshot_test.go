package task

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	t.Parallel()

	q := NewQueue(WithLogger(testLogger()))
	q.AddTask("done.jpg")
	q.GetNextTask()
	q.FinishCurrentTask(true, Result{"description": "a dog"}, "")
	q.AddTask("bad.jpg")
	q.GetNextTask()
	q.FinishCurrentTask(false, nil, "boom")
	q.AddTask("cur.jpg")
	cur := q.GetNextTask()
	require.NoError(t, cur.Start())
	cur.UpdateProgress(0.5)
	q.AddTask("next.jpg")
	q.StartProcessing()
	q.StopProcessing()

	savedAt := time.Unix(1700000000, 500000000)
	s := NewSnapshot(q, savedAt)

	assert.Equal(t, SnapshotVersion, s.Version)
	assert.True(t, s.IsProcessing)
	assert.True(t, s.ShouldStop)
	assert.InDelta(t, 1700000000.5, s.SavedAt, 1e-6)

	require.Len(t, s.Queue, 1)
	assert.Equal(t, "next.jpg", s.Queue[0].ImagePath)
	assert.Equal(t, TaskStatusPending, s.Queue[0].Status)
	assert.Nil(t, s.Queue[0].Error)
	assert.Nil(t, s.Queue[0].StartedAt)
	assert.NotNil(t, s.Queue[0].CreatedAt)

	require.NotNil(t, s.CurrentTask)
	assert.Equal(t, TaskStatusProcessing, s.CurrentTask.Status)
	assert.InDelta(t, 0.5, s.CurrentTask.Progress, 1e-9)

	require.Len(t, s.History, 2)
	assert.Equal(t, Result{"description": "a dog"}, s.History[0].Result)
	require.NotNil(t, s.History[1].Error)
	assert.Equal(t, "boom", *s.History[1].Error)
}

func TestSnapshot_JSONShape(t *testing.T) {
	t.Parallel()

	q := NewQueue(WithLogger(testLogger()))
	q.AddTask("a.jpg")

	data, err := json.Marshal(NewSnapshot(q, time.Now()))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"version", "is_processing", "should_stop", "queue", "current_task", "history", "saved_at"} {
		assert.Contains(t, raw, key)
	}
	assert.Nil(t, raw["current_task"])

	record := raw["queue"].([]any)[0].(map[string]any)
	for _, key := range []string{"image_path", "status", "progress", "error", "created_at", "started_at", "completed_at"} {
		assert.Contains(t, record, key)
	}
	assert.NotContains(t, record, "result")
}

func TestSnapshot_Restore(t *testing.T) {
	t.Parallel()

	created := 1700000000.25
	started := 1700000010.0
	completed := 1700000020.0
	errMsg := "boom"

	t.Run("processing current task is interrupted", func(t *testing.T) {
		t.Parallel()

		s := &Snapshot{
			Version:      SnapshotVersion,
			IsProcessing: true,
			ShouldStop:   true,
			Queue:        []TaskRecord{{ImagePath: "p.jpg", Status: TaskStatusPending, CreatedAt: &created}},
			CurrentTask: &TaskRecord{
				ImagePath: "cur.jpg", Status: TaskStatusProcessing, Progress: 0.4,
				CreatedAt: &created, StartedAt: &started,
			},
			History: []TaskRecord{{
				ImagePath: "old.jpg", Status: TaskStatusFailed, Error: &errMsg,
				CreatedAt: &created, StartedAt: &started, CompletedAt: &completed,
			}},
		}

		q, err := s.Restore(testLogger())
		require.NoError(t, err)

		assert.False(t, q.IsProcessing())
		assert.False(t, q.ShouldStop())
		assert.Nil(t, q.Current())
		assert.Equal(t, []string{"p.jpg"}, paths(q.Pending()))
		require.Equal(t, []string{"old.jpg", "cur.jpg"}, paths(q.History()))

		old := q.History()[0].View()
		assert.Equal(t, "boom", old.Error)
		require.NotNil(t, old.CompletedAt)
		assert.Equal(t, int64(1700000020), old.CompletedAt.Unix())

		recovered := q.History()[1].View()
		assert.Equal(t, TaskStatusInterrupted, recovered.Status)
		assert.InDelta(t, 0.4, recovered.Progress, 1e-9)
		assert.NotNil(t, recovered.CompletedAt)
		assert.Equal(t, int64(1700000000), recovered.CreatedAt.Unix())
	})

	t.Run("pending current task is requeued at front", func(t *testing.T) {
		t.Parallel()

		s := &Snapshot{
			Version:     SnapshotVersion,
			Queue:       []TaskRecord{{ImagePath: "b.jpg", Status: TaskStatusPending}},
			CurrentTask: &TaskRecord{ImagePath: "a.jpg", Status: TaskStatusPending},
		}

		q, err := s.Restore(testLogger())
		require.NoError(t, err)
		assert.Equal(t, []string{"a.jpg", "b.jpg"}, paths(q.Pending()))
		assert.Empty(t, q.History())
	})

	t.Run("malformed records are skipped", func(t *testing.T) {
		t.Parallel()

		s := &Snapshot{
			Queue: []TaskRecord{
				{ImagePath: "", Status: TaskStatusPending},
				{ImagePath: "ok.jpg", Status: TaskStatusPending},
				{ImagePath: "weird.jpg", Status: TaskStatus("queued")},
			},
			CurrentTask: &TaskRecord{ImagePath: "cur.jpg", Status: TaskStatus("??")},
			History:     []TaskRecord{{ImagePath: "h.jpg", Status: TaskStatusCompleted}},
		}

		q, err := s.Restore(testLogger())
		require.NoError(t, err)
		assert.Equal(t, []string{"ok.jpg"}, paths(q.Pending()))
		assert.Equal(t, []string{"h.jpg"}, paths(q.History()))
	})

	t.Run("progress is clamped", func(t *testing.T) {
		t.Parallel()

		s := &Snapshot{Queue: []TaskRecord{{ImagePath: "a.jpg", Status: TaskStatusPending, Progress: 3}}}
		q, err := s.Restore(testLogger())
		require.NoError(t, err)
		assert.Equal(t, 1.0, q.Pending()[0].Progress())
	})

	t.Run("newer version is rejected", func(t *testing.T) {
		t.Parallel()

		s := &Snapshot{Version: SnapshotVersion + 1}
		_, err := s.Restore(testLogger())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCorruptSnapshot))
	})
}

func TestEpochConversion(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 5, 6, 7, 250000000, time.UTC)
	back := fromEpoch(toEpoch(ts))
	assert.WithinDuration(t, ts, back, time.Microsecond)

	assert.Nil(t, toEpochPtr(nil))
	assert.Nil(t, fromEpochPtr(nil))
}
