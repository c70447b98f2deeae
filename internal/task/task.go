package task

import (
	"fmt"
	"sync"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending     TaskStatus = "pending"
	TaskStatusProcessing  TaskStatus = "processing"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusFailed      TaskStatus = "failed"
	TaskStatusInterrupted TaskStatus = "interrupted"
)

// IsTerminal reports whether no further transition is allowed out of the status.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusInterrupted:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusInterrupted:
		return true
	}
	return false
}

// Result is the opaque analysis payload stored on a completed task.
type Result map[string]any

// Task is a single image analysis job.
//
// Lifecycle: pending -> processing -> completed | failed | interrupted
//
// A Task is safe for concurrent use. Readers outside the worker should
// use View, which returns a copy taken under the task lock.
type Task struct {
	mu sync.Mutex

	imagePath   string
	status      TaskStatus
	progress    float64
	err         string
	result      Result
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time

	// now is the clock used for timestamps; replaced in tests
	now func() time.Time
}

// TaskView is an immutable copy of a task's state.
type TaskView struct {
	ImagePath   string     `json:"image_path"`
	Status      TaskStatus `json:"status"`
	Progress    float64    `json:"progress"`
	Error       string     `json:"error,omitempty"`
	Result      Result     `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a pending task for the given image path.
func NewTask(imagePath string) *Task {
	t := &Task{
		imagePath: imagePath,
		status:    TaskStatusPending,
		now:       time.Now,
	}
	t.createdAt = t.now()
	return t
}

// ImagePath returns the identifier of the work item. It never changes.
func (t *Task) ImagePath() string {
	return t.imagePath
}

// Status returns the current task status
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns the last recorded progress in [0, 1].
func (t *Task) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// View returns a copy of the task state.
func (t *Task) View() TaskView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskView{
		ImagePath:   t.imagePath,
		Status:      t.status,
		Progress:    t.progress,
		Error:       t.err,
		Result:      cloneResult(t.result),
		CreatedAt:   t.createdAt,
		StartedAt:   cloneTime(t.startedAt),
		CompletedAt: cloneTime(t.completedAt),
	}
}

// Start moves a pending task to processing.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusPending {
		return t.transitionError(TaskStatusProcessing)
	}
	now := t.now()
	t.status = TaskStatusProcessing
	t.startedAt = &now
	return nil
}

// Complete records the analysis result and marks the task completed.
func (t *Task) Complete(result Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusProcessing {
		return t.transitionError(TaskStatusCompleted)
	}
	now := t.now()
	t.status = TaskStatusCompleted
	t.result = result
	t.progress = 1.0
	t.completedAt = &now
	return nil
}

// Fail records the error message and marks the task failed. Progress keeps
// the last value reached.
func (t *Task) Fail(errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusProcessing {
		return t.transitionError(TaskStatusFailed)
	}
	now := t.now()
	t.status = TaskStatusFailed
	t.err = errMsg
	t.completedAt = &now
	return nil
}

// Interrupt marks a processing task as interrupted, either because a stop
// was requested or because it was found mid-flight after a restart.
func (t *Task) Interrupt() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusProcessing {
		return t.transitionError(TaskStatusInterrupted)
	}
	now := t.now()
	t.status = TaskStatusInterrupted
	t.completedAt = &now
	return nil
}

// UpdateProgress clamps p into [0, 1] and stores it. Updates are ignored
// unless the task is processing; out-of-range input is never an error.
func (t *Task) UpdateProgress(p float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskStatusProcessing {
		return
	}
	t.progress = clampProgress(p)
}

func (t *Task) transitionError(to TaskStatus) error {
	return fmt.Errorf("%w: %s -> %s (%s)", ErrInvalidTransition, t.status, to, t.imagePath)
}

func clampProgress(p float64) float64 {
	// NaN fails both comparisons below, so handle it first
	if p != p {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	c := *ts
	return &c
}

func cloneResult(r Result) Result {
	if r == nil {
		return nil
	}
	c := make(Result, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
