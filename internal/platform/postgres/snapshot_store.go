package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/image-tagger/internal/task"
)

// SnapshotStore implements task.SnapshotStore using PostgreSQL. The
// snapshot lives in a single row, so each save is one atomic upsert.
type SnapshotStore struct {
	db     DBTX
	logger *slog.Logger
}

var _ task.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a new SnapshotStore
func NewSnapshotStore(db DBTX, logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{
		db:     db,
		logger: logger.With("component", "postgres_snapshot_store"),
	}
}

// Save implements task.SnapshotStore.
func (s *SnapshotStore) Save(ctx context.Context, snapshot *task.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO queue_snapshots (id, version, snapshot, saved_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET version = EXCLUDED.version,
			snapshot = EXCLUDED.snapshot,
			saved_at = EXCLUDED.saved_at
	`
	if _, err := s.db.ExecContext(ctx, query, snapshot.Version, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", MapError(err))
	}
	s.logger.DebugContext(ctx, "snapshot row upserted", "bytes", len(data))
	return nil
}

// Load implements task.SnapshotStore.
func (s *SnapshotStore) Load(ctx context.Context) (*task.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM queue_snapshots WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, task.ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", MapError(err))
	}

	var snapshot task.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", task.ErrCorruptSnapshot, err)
	}
	return &snapshot, nil
}

// Clear implements task.SnapshotStore.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_snapshots WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", MapError(err))
	}
	return nil
}
