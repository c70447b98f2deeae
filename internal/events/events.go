package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a kind of task lifecycle change.
type EventType string

// Event types emitted by the worker
const (
	TaskStarted     EventType = "task_started"
	TaskProgress    EventType = "task_progress"
	TaskCompleted   EventType = "task_completed"
	TaskFailed      EventType = "task_failed"
	TaskInterrupted EventType = "task_interrupted"
	WorkerStarted   EventType = "worker_started"
	WorkerStopped   EventType = "worker_stopped"
)

// TaskEvent describes one lifecycle change. Worker events leave ImagePath empty.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened
	Type EventType `json:"type"`

	// ImagePath identifies the task the event belongs to
	ImagePath string `json:"image_path,omitempty"`

	// Progress is the task progress at the time of the event
	Progress float64 `json:"progress"`

	// Error carries the failure message for TaskFailed events
	Error string `json:"error,omitempty"`

	// Duration is the time spent in the analyzer, set on terminal task events
	Duration time.Duration `json:"duration,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent of the given type for imagePath.
func NewTaskEvent(eventType EventType, imagePath string) *TaskEvent {
	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		ImagePath: imagePath,
		CreatedAt: time.Now(),
	}
}

// IsTerminal reports whether the event marks the end of a task.
func (e *TaskEvent) IsTerminal() bool {
	switch e.Type {
	case TaskCompleted, TaskFailed, TaskInterrupted:
		return true
	}
	return false
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Handlers run synchronously on the emitting goroutine and must not block.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}
