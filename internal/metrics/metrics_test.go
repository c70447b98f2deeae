package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/image-tagger/internal/events"
	"github.com/phrazzld/image-tagger/internal/task"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus task.QueueStatus

func (f fixedStatus) Status() task.QueueStatus { return task.QueueStatus(f) }

func emit(t *testing.T, r *Recorder, eventType events.EventType, mutate func(*events.TaskEvent)) {
	t.Helper()
	event := events.NewTaskEvent(eventType, "img.png")
	if mutate != nil {
		mutate(event)
	}
	require.NoError(t, r.HandleEvent(context.Background(), event))
}

func TestRecorder_TaskLifecycle(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil)

	emit(t, r, events.WorkerStarted, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.workerRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.workerRuns))

	emit(t, r, events.TaskStarted, nil)
	emit(t, r, events.TaskProgress, func(e *events.TaskEvent) { e.Progress = 0.4 })
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksStarted))
	assert.InDelta(t, 0.4, testutil.ToFloat64(r.taskProgress), 1e-9)

	emit(t, r, events.TaskCompleted, func(e *events.TaskEvent) { e.Duration = 2 * time.Second })
	emit(t, r, events.TaskStarted, nil)
	emit(t, r, events.TaskFailed, func(e *events.TaskEvent) { e.Error = "boom" })
	emit(t, r, events.TaskStarted, nil)
	emit(t, r, events.TaskInterrupted, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksFinished.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksFinished.WithLabelValues("interrupted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.taskProgress))
	assert.Equal(t, 3, testutil.CollectAndCount(r.taskDuration))

	emit(t, r, events.WorkerStopped, nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.workerRunning))
}

func TestRecorder_QueueGauges(t *testing.T) {
	t.Parallel()

	r := NewRecorder(fixedStatus{QueueLength: 3, HistoryLength: 5})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "image_tagger_queue_pending 3")
	assert.Contains(t, body, "image_tagger_queue_history 5")
	assert.Contains(t, body, "go_goroutines")
}

func TestRecorder_ReceivesEmittedEvents(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil)
	emitter := events.NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	emitter.RegisterHandler(r)

	require.NoError(t, emitter.EmitEvent(context.Background(), events.NewTaskEvent(events.TaskStarted, "a.png")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksStarted))
}
