package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// ErrInvalidIdentifier is returned when a table or column name is not a plain identifier.
var ErrInvalidIdentifier = errors.New("invalid_identifier")

// StorageError wraps connectivity and query failures raised by the Gateway.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Code reports a stable classification for logging and tracing.
func (e *StorageError) Code() string {
	if e.Duplicate() {
		return "storage_duplicate"
	}
	return "storage_error"
}

// Duplicate reports whether the failure was a unique constraint violation.
func (e *StorageError) Duplicate() bool {
	return IsDuplicateKeyErr(e.Err)
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

// IsDuplicateKeyErr reports whether err is a unique constraint violation on any supported engine.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}

	msg := err.Error()
	// PostgreSQL through drivers that do not expose PgError.
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		return true
	}
	// SQLite (extended code 2067)
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}

	return false
}
