//go:build integration

// Package testdb provides utilities for database integration tests.
//
// Tests obtain a migrated connection with GetTestDBWithT and run each case
// inside WithTx, whose transaction is always rolled back, so cases never see
// each other's snapshot rows:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        store := postgres.NewSnapshotStore(tx, logger)
//	        // ...
//	    })
//	}
//
// Without TAGGER_DATABASE_URL the tests are skipped locally and fail in CI,
// where a missing database is a configuration error.
package testdb
