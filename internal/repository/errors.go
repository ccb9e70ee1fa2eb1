package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE class 23 covers integrity constraint violations;
// 23505 is unique_violation.
const uniqueViolationCode = "23505"

// uniqueViolationConstraint returns the violated constraint name when err is
// a Postgres unique violation, and "" otherwise.
func uniqueViolationConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr.ConstraintName
	}
	return ""
}
