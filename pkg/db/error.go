package db

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/smallbiznis/menuya/internal/apperror"
	"gorm.io/gorm"
)

const (
	// CodeNoRows marks a single-row query that matched nothing.
	CodeNoRows = "no_rows"
	// CodeUniqueViolation is the SQLSTATE for unique constraint violations.
	CodeUniqueViolation = "23505"
)

func IsDuplicateKeyErr(err error) bool {
	return ErrorCode(err) == CodeUniqueViolation
}

func IsNoRows(err error) bool {
	return ErrorCode(err) == CodeNoRows
}

// ErrorCode extracts a backend error code, normalizing unique violations from
// every supported dialect to CodeUniqueViolation.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows) {
		return CodeNoRows
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return CodeUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	msg := err.Error()
	switch {
	// PostgreSQL through text-only wrappers
	case strings.Contains(msg, "duplicate key value violates unique constraint"):
		return CodeUniqueViolation
	// MySQL (error code 1062)
	case strings.Contains(msg, "Error 1062"):
		return CodeUniqueViolation
	// SQLite (error code 2067)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return CodeUniqueViolation
	}

	return ""
}

// Translate maps a storage error onto the application error taxonomy.
func Translate(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if apperror.IsValidation(err) || apperror.IsNotFound(err) || apperror.IsConflict(err) || apperror.IsPersistence(err) {
		return err
	}

	code := ErrorCode(err)
	switch code {
	case CodeNoRows:
		return apperror.NotFound(entity, id)
	case CodeUniqueViolation:
		return apperror.Conflict(entity+" already exists", err)
	default:
		return &apperror.PersistenceError{Message: err.Error(), Code: code, Err: err}
	}
}
