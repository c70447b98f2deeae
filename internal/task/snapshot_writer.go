package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSaveInterval is the minimum gap between coalesced background saves.
const DefaultSaveInterval = 500 * time.Millisecond

// SnapshotWriter decouples save requests from disk writes. Hot paths such
// as progress callbacks call Request, which never blocks; Run performs at
// most one write per interval. Flush writes synchronously.
type SnapshotWriter struct {
	persistence *Persistence
	queue       *Queue
	interval    time.Duration
	logger      *slog.Logger

	// dirty holds at most one pending request
	dirty chan struct{}

	// saveMu serializes writes from Run, Flush and ClearSavedState
	saveMu sync.Mutex
}

// NewSnapshotWriter creates a writer that saves queue through persistence.
// A non-positive interval falls back to DefaultSaveInterval.
func NewSnapshotWriter(
	persistence *Persistence,
	queue *Queue,
	interval time.Duration,
	logger *slog.Logger,
) *SnapshotWriter {
	if interval <= 0 {
		interval = DefaultSaveInterval
	}
	return &SnapshotWriter{
		persistence: persistence,
		queue:       queue,
		interval:    interval,
		logger:      logger.With("component", "snapshot_writer"),
		dirty:       make(chan struct{}, 1),
	}
}

// Request marks the queue as needing a save.
func (w *SnapshotWriter) Request() {
	select {
	case w.dirty <- struct{}{}:
	default:
		// a save is already pending and will include this change
	}
}

// Flush saves immediately and absorbs any pending request.
func (w *SnapshotWriter) Flush(ctx context.Context) bool {
	select {
	case <-w.dirty:
	default:
	}
	return w.save(ctx)
}

// Run services save requests until ctx is cancelled, then writes any
// request still pending.
func (w *SnapshotWriter) Run(ctx context.Context) {
	w.logger.Debug("snapshot writer started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			select {
			case <-w.dirty:
				w.save(context.WithoutCancel(ctx))
			default:
			}
			w.logger.Debug("snapshot writer stopped")
			return

		case <-w.dirty:
			w.save(ctx)

			timer := time.NewTimer(w.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

// ClearSavedState removes the durable snapshot without racing a save.
func (w *SnapshotWriter) ClearSavedState(ctx context.Context) bool {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	return w.persistence.ClearSavedState(ctx)
}

func (w *SnapshotWriter) save(ctx context.Context) bool {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	return w.persistence.Save(ctx, w.queue)
}
