package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint clashes.
// Races on room codes and duplicate joins surface as this code and are
// translated to domain conflicts, never to internal errors.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation on
// the given constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
