package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/image-tagger/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingDB returns execErr from every ExecContext call
type failingDB struct {
	execErr error
}

func (f *failingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, f.execErr
}

func (f *failingDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

func TestSnapshotStore_SaveErrorIsReturnedNotLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := NewSnapshotStore(&failingDB{execErr: &pgconn.PgError{Code: undefinedTableCode}}, logger)

	err := store.Save(context.Background(), task.NewSnapshot(task.NewQueue(task.WithLogger(logger)), time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMissing)

	// the caller owns error logging
	assert.NotContains(t, buf.String(), `"level":"ERROR"`)
	assert.NotContains(t, buf.String(), "snapshot row upserted")
}
