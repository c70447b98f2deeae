package events

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryEventEmitter(t *testing.T) {
	// Create a minimal logger that discards output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		err := emitter.EmitEvent(context.Background(), NewTaskEvent(TaskStarted, "a.png"))
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := NewTaskEvent(TaskProgress, "a.png")
		err := emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		successHandler := &MockEventHandler{}
		failingHandler := &MockEventHandler{
			HandlerError: errors.New("handler error"),
		}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), NewTaskEvent(TaskFailed, "a.png"))
		assert.EqualError(t, err, "handler error")

		// The handler after the failing one still received the event
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})

	t.Run("handler failure is logged with the task it belongs to", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(&buf, nil)))
		emitter.RegisterHandler(&MockEventHandler{HandlerError: errors.New("handler error")})

		_ = emitter.EmitEvent(context.Background(), NewTaskEvent(TaskCompleted, "/images/b.png"))

		out := buf.String()
		assert.Contains(t, out, "event handler failed")
		assert.Contains(t, out, "event_type=task_completed")
		assert.Contains(t, out, "image_path=/images/b.png")
	})
}
