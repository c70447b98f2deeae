package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches task lifecycle events synchronously to
// handlers registered in the same process, in registration order.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes handler to every subsequent event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("event handler registered", "handlers", count)
}

// EmitEvent delivers event to every handler. A failing handler does not
// prevent delivery to the rest; the first error is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	logger := e.logger.With("event_type", event.Type)
	if event.ImagePath != "" {
		logger = logger.With("image_path", event.ImagePath)
	}
	logger.DebugContext(ctx, "dispatching task event", "handlers", len(handlers))

	var firstErr error
	for i, handler := range handlers {
		err := handler.HandleEvent(ctx, event)
		if err == nil {
			continue
		}
		logger.WarnContext(ctx, "event handler failed",
			"handler_index", i,
			"event_id", event.ID,
			"error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
