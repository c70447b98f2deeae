package task

import (
	"log/slog"
	"sync"
)

// Queue holds pending, current and finished tasks for a single worker.
//
// Every task sits in exactly one of three positions: the pending list
// (FIFO), the current slot, or the history list (completion order). All
// mutations happen under one mutex, so producers may call AddTask while a
// worker drains the queue.
type Queue struct {
	mu sync.Mutex

	pending []*Task
	current *Task
	history []*Task

	isProcessing bool
	shouldStop   bool

	logger   *slog.Logger
	onChange func()
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithLogger sets the logger used by the queue.
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger.With("component", "queue")
	}
}

// WithOnChange registers a hook called after every mutation, outside the
// queue lock. The application uses it to request an auto-save.
func WithOnChange(fn func()) QueueOption {
	return func(q *Queue) {
		q.onChange = fn
	}
}

// NewQueue creates an empty queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		logger: slog.Default().With("component", "queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Configure applies options to an existing queue, which is how a queue
// restored by Persistence.Load gets its logger and change hook.
func (q *Queue) Configure(opts ...QueueOption) {
	q.mu.Lock()
	for _, opt := range opts {
		opt(q)
	}
	q.mu.Unlock()
}

// AddTask creates a pending task and appends it to the queue.
func (q *Queue) AddTask(imagePath string) *Task {
	t := NewTask(imagePath)

	q.mu.Lock()
	q.pending = append(q.pending, t)
	pendingLen := len(q.pending)
	q.mu.Unlock()

	q.logger.Info("task added to queue",
		"image_path", imagePath,
		"queue_len", pendingLen)
	q.changed()
	return t
}

// GetNextTask removes the head of the pending list and makes it current.
// It returns nil and clears the current slot if nothing is pending. A task
// already in the current slot is replaced; callers finish it first.
func (q *Queue) GetNextTask() *Task {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.current = nil
		q.mu.Unlock()
		q.logger.Debug("queue is empty, no next task available")
		return nil
	}

	t := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.current = t
	remaining := len(q.pending)
	q.mu.Unlock()

	q.logger.Info("retrieved next task",
		"image_path", t.ImagePath(),
		"queue_len", remaining)
	q.changed()
	return t
}

// StartProcessing marks a worker as active and clears any stop request.
func (q *Queue) StartProcessing() {
	q.mu.Lock()
	q.isProcessing = true
	q.shouldStop = false
	q.mu.Unlock()
	q.logger.Info("queue processing started")
}

// TryStartProcessing is StartProcessing guarded by a check that no worker
// is already active. It reports whether the caller may run the loop.
func (q *Queue) TryStartProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isProcessing {
		return false
	}
	q.isProcessing = true
	q.shouldStop = false
	return true
}

// StopProcessing requests the active worker to stop at its next checkpoint.
func (q *Queue) StopProcessing() {
	q.mu.Lock()
	q.shouldStop = true
	q.mu.Unlock()
	q.logger.Info("queue stop requested")
}

// FinishProcessing marks the worker as no longer active.
func (q *Queue) FinishProcessing() {
	q.mu.Lock()
	q.isProcessing = false
	q.mu.Unlock()
}

// IsProcessing reports whether a worker loop is believed to be active.
func (q *Queue) IsProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isProcessing
}

// ShouldStop reports whether a stop has been requested.
func (q *Queue) ShouldStop() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shouldStop
}

// FinishCurrentTask completes or fails the current task and moves it to
// history. It does nothing when there is no current task.
func (q *Queue) FinishCurrentTask(success bool, result Result, errMsg string) {
	q.mu.Lock()
	t := q.current
	if t == nil {
		q.mu.Unlock()
		q.logger.Debug("no current task to finish")
		return
	}

	ensureStarted(t)
	var err error
	if success {
		err = t.Complete(result)
	} else {
		err = t.Fail(errMsg)
	}
	q.history = append(q.history, t)
	q.current = nil
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("current task was not processing when finished",
			"image_path", t.ImagePath(),
			"error", err)
	}
	q.logger.Info("current task moved to history",
		"image_path", t.ImagePath(),
		"status", t.Status())
	q.changed()
}

// InterruptCurrentTask marks the current task interrupted and moves it to
// history. It does nothing when there is no current task.
func (q *Queue) InterruptCurrentTask() {
	q.mu.Lock()
	t := q.current
	if t == nil {
		q.mu.Unlock()
		q.logger.Debug("no current task to interrupt")
		return
	}

	ensureStarted(t)
	err := t.Interrupt()
	q.history = append(q.history, t)
	q.current = nil
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("current task was not processing when interrupted",
			"image_path", t.ImagePath(),
			"error", err)
	}
	q.logger.Info("current task interrupted", "image_path", t.ImagePath())
	q.changed()
}

// ClearQueue drops every pending task. The current task and history are
// left untouched.
func (q *Queue) ClearQueue() {
	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	q.logger.Info("queue cleared", "dropped", dropped)
	q.changed()
}

// Current returns the task in the current slot, or nil.
func (q *Queue) Current() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Pending returns the pending tasks in processing order.
func (q *Queue) Pending() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Task(nil), q.pending...)
}

// History returns finished tasks in completion order.
func (q *Queue) History() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Task(nil), q.history...)
}

func (q *Queue) changed() {
	q.mu.Lock()
	fn := q.onChange
	q.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ensureStarted starts a task that was dequeued but never started, so the
// terminal transition that follows is legal and started_at is set.
func ensureStarted(t *Task) {
	if t.Status() == TaskStatusPending {
		_ = t.Start()
	}
}
