package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Errors returned by the postgres package
var (
	// ErrUnavailable is returned when the database cannot be reached
	ErrUnavailable = errors.New("database unavailable")

	// ErrSchemaMissing is returned when the snapshot table does not exist,
	// usually because migrations have not been applied
	ErrSchemaMissing = errors.New("database schema missing")
)

// PostgreSQL error codes
const (
	// undefinedTableCode is raised when a query names a table that does not exist
	undefinedTableCode = "42P01"

	// connectionExceptionClass prefixes every connection-related error code
	connectionExceptionClass = "08"

	// adminShutdownCode is raised when the server is shutting down
	adminShutdownCode = "57P01"
)

// MapError maps a database error to a package error. It wraps the original
// error to preserve context.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == undefinedTableCode:
			return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
		case strings.HasPrefix(pgErr.Code, connectionExceptionClass),
			pgErr.Code == adminShutdownCode:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
