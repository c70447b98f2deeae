package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/image-tagger/internal/events"
	"github.com/phrazzld/image-tagger/internal/redact"
)

// ProgressFunc receives intermediate progress values in [0, 1].
type ProgressFunc func(progress float64)

// Analyzer turns an image into an analysis result.
// Implementations may call progress any number of times before returning.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string, progress ProgressFunc) (Result, error)
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger used by the worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger.With("component", "worker")
	}
}

// WithSnapshotWriter makes the worker persist the queue when a task starts,
// after every task and on exit. Progress updates only request a save, which
// the writer's Run loop coalesces.
func WithSnapshotWriter(snapshots *SnapshotWriter) WorkerOption {
	return func(w *Worker) {
		w.snapshots = snapshots
	}
}

// WithEventEmitter makes the worker publish task lifecycle events.
func WithEventEmitter(emitter events.EventEmitter) WorkerOption {
	return func(w *Worker) {
		w.emitter = emitter
	}
}

// Worker is the single consumer of a Queue. At most one loop runs per
// queue; tasks are analyzed one at a time in FIFO order.
//
// Cancellation is cooperative. A stop request, or cancellation of the
// context passed to Run, is observed before each dequeue, right after a
// task starts and after the analyzer returns. An analyzer call that has
// begun always runs to completion.
type Worker struct {
	queue     *Queue
	analyzer  Analyzer
	snapshots *SnapshotWriter
	emitter   events.EventEmitter
	logger    *slog.Logger

	mu   sync.Mutex
	done chan struct{}
}

// NewWorker creates a worker draining queue through analyzer.
func NewWorker(queue *Queue, analyzer Analyzer, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:    queue,
		analyzer: analyzer,
		logger:   slog.Default().With("component", "worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the queue on the calling goroutine and returns when the queue
// is empty or a stop was requested. It returns ErrAlreadyProcessing if
// another loop is active.
func (w *Worker) Run(ctx context.Context) error {
	if !w.queue.TryStartProcessing() {
		w.logger.WarnContext(ctx, "queue is already being processed")
		return ErrAlreadyProcessing
	}
	w.loop(ctx)
	return nil
}

// Start runs the loop on a new goroutine. It returns ErrAlreadyProcessing
// if another loop is active.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.queue.TryStartProcessing() {
		w.logger.WarnContext(ctx, "queue is already being processed")
		return ErrAlreadyProcessing
	}

	done := make(chan struct{})
	w.done = done
	go func() {
		defer close(done)
		w.loop(ctx)
	}()
	return nil
}

// Stop asks the active loop to finish after the current task. It returns
// ErrNotProcessing if no loop is active.
func (w *Worker) Stop() error {
	if !w.queue.IsProcessing() {
		return ErrNotProcessing
	}
	w.queue.StopProcessing()
	return nil
}

// Wait blocks until the loop launched by Start exits or ctx is done.
func (w *Worker) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a loop is active.
func (w *Worker) Running() bool {
	return w.queue.IsProcessing()
}

func (w *Worker) loop(ctx context.Context) {
	w.logger.InfoContext(ctx, "starting queue processing")
	w.emit(ctx, events.NewTaskEvent(events.WorkerStarted, ""))

	processed := 0
	for !w.stopRequested(ctx) {
		t := w.queue.GetNextTask()
		if t == nil {
			break
		}
		w.process(ctx, t)
		processed++
	}

	w.queue.FinishProcessing()
	w.flush(ctx)
	w.emit(ctx, events.NewTaskEvent(events.WorkerStopped, ""))
	w.logger.InfoContext(ctx, "queue processing finished",
		"processed", processed,
		"stopped", w.stopRequested(ctx))
}

// process handles a single task that is already in the current slot
func (w *Worker) process(ctx context.Context, t *Task) {
	logger := w.logger.With("image_path", t.ImagePath())

	if err := t.Start(); err != nil {
		logger.ErrorContext(ctx, "failed to start task", "error", err)
		w.queue.FinishCurrentTask(false, nil, err.Error())
		w.emitTerminal(ctx, events.TaskFailed, t, 0)
		w.flush(ctx)
		return
	}
	w.emitTerminal(ctx, events.TaskStarted, t, 0)

	if w.stopRequested(ctx) {
		logger.InfoContext(ctx, "interrupting task due to stop request")
		w.queue.InterruptCurrentTask()
		w.emitTerminal(ctx, events.TaskInterrupted, t, 0)
		w.flush(ctx)
		return
	}
	// a crash during analysis recovers this task as interrupted
	w.flush(ctx)

	logger.InfoContext(ctx, "processing task")
	started := time.Now()
	result, err := w.analyze(ctx, t)
	elapsed := time.Since(started)

	switch {
	case err != nil:
		// the message is stored in history and served to clients
		msg := redact.Error(err)
		logger.ErrorContext(ctx, "task failed", "error", msg, "duration", elapsed)
		w.queue.FinishCurrentTask(false, nil, msg)
		w.emitTerminal(ctx, events.TaskFailed, t, elapsed)

	case w.stopRequested(ctx):
		logger.InfoContext(ctx, "interrupting task after analysis due to stop request")
		w.queue.InterruptCurrentTask()
		w.emitTerminal(ctx, events.TaskInterrupted, t, elapsed)

	default:
		w.queue.FinishCurrentTask(true, result, "")
		logger.InfoContext(ctx, "task completed", "duration", elapsed)
		w.emitTerminal(ctx, events.TaskCompleted, t, elapsed)
	}
	w.flush(ctx)
}

// analyze calls the analyzer with a context that ignores cancellation, so
// a started analysis is never cut short by a stop.
func (w *Worker) analyze(ctx context.Context, t *Task) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrAnalyzerPanic, r)
		}
	}()

	progress := func(p float64) {
		t.UpdateProgress(p)
		event := events.NewTaskEvent(events.TaskProgress, t.ImagePath())
		event.Progress = t.Progress()
		w.emit(ctx, event)
		if w.snapshots != nil {
			w.snapshots.Request()
		}
	}
	return w.analyzer.Analyze(context.WithoutCancel(ctx), t.ImagePath(), progress)
}

func (w *Worker) stopRequested(ctx context.Context) bool {
	return w.queue.ShouldStop() || ctx.Err() != nil
}

func (w *Worker) flush(ctx context.Context) {
	if w.snapshots == nil {
		return
	}
	if !w.snapshots.Flush(context.WithoutCancel(ctx)) {
		w.logger.WarnContext(ctx, "queue state not persisted, continuing")
	}
}

func (w *Worker) emitTerminal(ctx context.Context, eventType events.EventType, t *Task, elapsed time.Duration) {
	view := t.View()
	event := events.NewTaskEvent(eventType, view.ImagePath)
	event.Progress = view.Progress
	event.Error = view.Error
	event.Duration = elapsed
	w.emit(ctx, event)
}

func (w *Worker) emit(ctx context.Context, event *events.TaskEvent) {
	if w.emitter == nil {
		return
	}
	// handler errors are logged by the emitter
	_ = w.emitter.EmitEvent(ctx, event)
}
