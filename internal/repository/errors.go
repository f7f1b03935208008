package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned for missing rows by every store implementation.
var ErrNotFound = pgx.ErrNoRows

// ErrDuplicate is returned when a unique key already exists.
var ErrDuplicate = errors.New("duplicate key")

const uniqueViolation = "23505"

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
