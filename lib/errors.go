package lib

import (
	"errors"
)

// Database errors
var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

// Auth errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// MapPgError maps PostgreSQL driver errors onto the sentinel errors
// above. pgdriver exposes the SQLSTATE via Field('C').
func MapPgError(err error) error {
	var pgErr interface{ Field(byte) string }
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') { // SQLSTATE
		case "23505": // unique_violation
			return ErrConflict
		case "P0002": // no_data_found
			return ErrNotFound
		}
	}
	return err
}

// IsNotFound reports whether the error is the not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation reports whether the error is the conflict sentinel.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrConflict)
}
