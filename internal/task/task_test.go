package task

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestNewTask(t *testing.T) {
	t.Parallel()

	task := NewTask("/images/cat.jpg")

	view := task.View()
	assert.Equal(t, "/images/cat.jpg", view.ImagePath)
	assert.Equal(t, TaskStatusPending, view.Status)
	assert.Zero(t, view.Progress)
	assert.Empty(t, view.Error)
	assert.Nil(t, view.Result)
	assert.False(t, view.CreatedAt.IsZero())
	assert.Nil(t, view.StartedAt)
	assert.Nil(t, view.CompletedAt)
}

func TestTask_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("complete", func(t *testing.T) {
		t.Parallel()

		ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		task := NewTask("a.png")
		task.now = fixedClock(ts)

		require.NoError(t, task.Start())
		assert.Equal(t, TaskStatusProcessing, task.Status())
		require.NotNil(t, task.View().StartedAt)
		assert.Equal(t, ts, *task.View().StartedAt)

		task.UpdateProgress(0.4)
		require.NoError(t, task.Complete(Result{"tags": []string{"cat"}}))

		view := task.View()
		assert.Equal(t, TaskStatusCompleted, view.Status)
		assert.Equal(t, 1.0, view.Progress)
		assert.Equal(t, Result{"tags": []string{"cat"}}, view.Result)
		require.NotNil(t, view.CompletedAt)
		assert.Equal(t, ts, *view.CompletedAt)
	})

	t.Run("fail keeps progress", func(t *testing.T) {
		t.Parallel()

		task := NewTask("a.png")
		require.NoError(t, task.Start())
		task.UpdateProgress(0.66)
		require.NoError(t, task.Fail("model unavailable"))

		view := task.View()
		assert.Equal(t, TaskStatusFailed, view.Status)
		assert.Equal(t, "model unavailable", view.Error)
		assert.InDelta(t, 0.66, view.Progress, 1e-9)
		assert.NotNil(t, view.CompletedAt)
	})

	t.Run("interrupt", func(t *testing.T) {
		t.Parallel()

		task := NewTask("a.png")
		require.NoError(t, task.Start())
		require.NoError(t, task.Interrupt())
		assert.Equal(t, TaskStatusInterrupted, task.Status())
		assert.NotNil(t, task.View().CompletedAt)
	})
}

func TestTask_InvalidTransitions(t *testing.T) {
	t.Parallel()

	pending := func() *Task { return NewTask("p.png") }
	completed := func() *Task {
		task := NewTask("c.png")
		_ = task.Start()
		_ = task.Complete(nil)
		return task
	}

	tests := []struct {
		name string
		task func() *Task
		move func(*Task) error
	}{
		{"complete pending", pending, func(t *Task) error { return t.Complete(nil) }},
		{"fail pending", pending, func(t *Task) error { return t.Fail("x") }},
		{"interrupt pending", pending, func(t *Task) error { return t.Interrupt() }},
		{"start completed", completed, func(t *Task) error { return t.Start() }},
		{"fail completed", completed, func(t *Task) error { return t.Fail("x") }},
		{"interrupt completed", completed, func(t *Task) error { return t.Interrupt() }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			task := tc.task()
			before := task.View()

			err := tc.move(task)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, before, task.View())
		})
	}
}

func TestTask_UpdateProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"in range", 0.25, 0.25},
		{"negative", -0.3, 0},
		{"above one", 1.7, 1},
		{"zero", 0, 0},
		{"one", 1, 1},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			task := NewTask("x.png")
			require.NoError(t, task.Start())
			task.UpdateProgress(tc.input)
			assert.Equal(t, tc.want, task.Progress())
		})
	}

	t.Run("ignored unless processing", func(t *testing.T) {
		t.Parallel()

		task := NewTask("x.png")
		task.UpdateProgress(0.5)
		assert.Zero(t, task.Progress())

		require.NoError(t, task.Start())
		task.UpdateProgress(0.3)
		require.NoError(t, task.Fail("boom"))
		task.UpdateProgress(0.9)
		assert.InDelta(t, 0.3, task.Progress(), 1e-9)
	})
}

func TestTask_ViewIsCopy(t *testing.T) {
	t.Parallel()

	task := NewTask("x.png")
	require.NoError(t, task.Start())
	require.NoError(t, task.Complete(Result{"description": "a cat"}))

	view := task.View()
	view.Result["description"] = "changed"
	*view.StartedAt = time.Time{}

	fresh := task.View()
	assert.Equal(t, "a cat", fresh.Result["description"])
	assert.False(t, fresh.StartedAt.IsZero())
}

func TestTaskStatus(t *testing.T) {
	t.Parallel()

	assert.False(t, TaskStatusPending.IsTerminal())
	assert.False(t, TaskStatusProcessing.IsTerminal())
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusFailed.IsTerminal())
	assert.True(t, TaskStatusInterrupted.IsTerminal())

	assert.True(t, TaskStatusInterrupted.Valid())
	assert.False(t, TaskStatus("queued").Valid())
	assert.False(t, TaskStatus("").Valid())
}
