package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "record_not_found", err: gorm.ErrRecordNotFound, want: CodeNoRows},
		{name: "gorm_duplicate", err: gorm.ErrDuplicatedKey, want: CodeUniqueViolation},
		{name: "pgconn", err: &pgconn.PgError{Code: "23505"}, want: CodeUniqueViolation},
		{name: "pgconn_other", err: &pgconn.PgError{Code: "40001"}, want: "40001"},
		{name: "pq", err: &pq.Error{Code: "23505"}, want: CodeUniqueViolation},
		{name: "sqlite_text", err: errors.New("UNIQUE constraint failed: accounts.table_number"), want: CodeUniqueViolation},
		{name: "mysql_text", err: errors.New("Error 1062: Duplicate entry"), want: CodeUniqueViolation},
		{name: "wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: CodeUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorCode(tc.err))
		})
	}
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil, "order", "1"))
	assert.True(t, apperror.IsNotFound(Translate(gorm.ErrRecordNotFound, "order", "1")))
	assert.True(t, apperror.IsConflict(Translate(gorm.ErrDuplicatedKey, "account", "")))

	err := Translate(&pgconn.PgError{Code: "08006", Message: "connection failure"}, "order", "1")
	var persistence *apperror.PersistenceError
	if assert.ErrorAs(t, err, &persistence) {
		assert.Equal(t, "08006", persistence.Code)
	}

	validation := apperror.Validation("items", "required")
	assert.Same(t, validation, Translate(validation, "order", "1"))
}
