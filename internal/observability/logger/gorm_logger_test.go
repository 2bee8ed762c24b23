package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql      string
		op       string
		relation string
	}{
		{"SELECT * FROM orders", "SELECT", "orders"},
		{"  update \"orders\" set kitchen_ready = ? where id = ?", "UPDATE", "orders"},
		{"WITH latest AS (SELECT 1) SELECT * FROM latest", "SELECT", ""},
		{"INSERT INTO accounts (id) VALUES (?)", "INSERT", "accounts"},
		{"DELETE FROM account_orders WHERE account_id = ?", "DELETE", "account_orders"},
		{"", "UNKNOWN", ""},
		{"VACUUM", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, relation := describeSQL(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		if tc.relation != "" {
			assert.Equal(t, tc.relation, relation, tc.sql)
		}
	}
}

func TestTraceDowngradesExpectedErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	errDuplicate := errors.New("duplicate key")
	l := NewGormLogger(GormLoggerConfig{
		Level:    gormlogger.Warn,
		Expected: func(err error) bool { return errors.Is(err, errDuplicate) },
	})
	sql := func() (string, int64) { return "INSERT INTO accounts (id) VALUES (?)", 0 }

	l.Trace(context.Background(), time.Now(), sql, errDuplicate)
	l.Trace(context.Background(), time.Now(), sql, errors.New("connection reset"))
	l.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "accounts", entries[1].ContextMap()["relation"])
	}
}
