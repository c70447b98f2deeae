//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/image-tagger/internal/platform/postgres"
)

// GetTestDBWithT opens the test database, applies migrations and closes the
// connection when the test ends. It skips the test when no database is
// configured, except in CI where it fails.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		if isCIEnvironment() {
			t.Fatalf("%s must be set in CI", DatabaseURLEnvVar)
		}
		t.Skipf("%s not set, skipping database integration test", DatabaseURLEnvVar)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := postgres.Open(ctx, dbURL, logger)
	if err != nil {
		t.Fatalf("failed to open test database %s: %v", postgres.MaskDatabaseURL(dbURL), err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
