package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString    = errors.New("empty postgres connection string")
	ErrFailedToParseDBConfig    = errors.New("failed to parse postgres connection string")
	ErrFailedToOpenDBConnection = errors.New("failed to open postgres connection")
	ErrHealthcheckFailed        = errors.New("postgres healthcheck failed")
	ErrNilPool                  = errors.New("postgres pool is required")
	ErrMigrationFailed          = errors.New("postgres migration failed")
)

const uniqueViolation = "23505"

// IsNotFoundError reports whether err means a query returned no rows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports whether err is a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
