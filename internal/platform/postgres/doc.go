// Package postgres provides a PostgreSQL implementation of task.SnapshotStore.
// The queue snapshot is kept as a single jsonb row that is replaced in one
// statement, and the schema is managed with goose migrations embedded in the
// binary.
package postgres
