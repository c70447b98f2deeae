package task

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SnapshotStore defines durable storage for queue snapshots.
// Implementations must replace the previous snapshot atomically, so a
// reader never observes a partially written one.
// Version: 1.0
type SnapshotStore interface {
	// Save replaces the stored snapshot
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load returns the stored snapshot.
	// It returns ErrNoSnapshot when nothing is stored and ErrCorruptSnapshot
	// when the stored content cannot be decoded.
	Load(ctx context.Context) (*Snapshot, error)

	// Clear removes the stored snapshot. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// Persistence saves and restores a Queue through a SnapshotStore.
// It never returns errors to the caller: failures are logged and reported
// as false or nil so the in-memory queue keeps working without durability.
type Persistence struct {
	store  SnapshotStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPersistence creates a Persistence backed by store.
func NewPersistence(store SnapshotStore, logger *slog.Logger) *Persistence {
	return &Persistence{
		store:  store,
		logger: logger.With("component", "queue_persistence"),
		now:    time.Now,
	}
}

// Save writes a snapshot of q. It reports whether the write succeeded.
func (p *Persistence) Save(ctx context.Context, q *Queue) bool {
	snapshot := NewSnapshot(q, p.now())
	if err := p.store.Save(ctx, snapshot); err != nil {
		p.logger.ErrorContext(ctx, "failed to save queue state", "error", err)
		return false
	}

	p.logger.DebugContext(ctx, "queue state saved",
		"pending", len(snapshot.Queue),
		"history", len(snapshot.History),
		"has_current", snapshot.CurrentTask != nil)
	return true
}

// Load restores the last saved queue. It returns nil if nothing was saved
// or the saved state cannot be read; both mean "no prior state".
func (p *Persistence) Load(ctx context.Context) *Queue {
	snapshot, err := p.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			p.logger.InfoContext(ctx, "no saved queue state found")
		} else {
			p.logger.ErrorContext(ctx, "failed to load queue state", "error", err)
		}
		return nil
	}

	q, err := snapshot.Restore(p.logger)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to restore queue state", "error", err)
		return nil
	}

	p.logger.InfoContext(ctx, "queue state loaded",
		"pending", len(q.pending),
		"history", len(q.history))
	return q
}

// ClearSavedState deletes the stored snapshot. A later Load returns nil.
func (p *Persistence) ClearSavedState(ctx context.Context) bool {
	if err := p.store.Clear(ctx); err != nil {
		p.logger.ErrorContext(ctx, "failed to clear saved queue state", "error", err)
		return false
	}
	p.logger.InfoContext(ctx, "saved queue state cleared")
	return true
}
