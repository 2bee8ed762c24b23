package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the SQL logger.
type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// Expected reports errors the services recover from, such as the
	// duplicate-key race on a table's open bill. They are logged at warn.
	Expected func(error) bool
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// GormLogger routes gorm output through the request-scoped zap logger.
type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, gormlogger.Info, zapcore.InfoLevel, msg, zap.Any("data", data))
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, zap.Any("data", data))
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.write(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, zap.Any("data", data))
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	level := l.cfg.Level
	if level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		if l.cfg.Expected != nil && l.cfg.Expected(err) {
			l.query(ctx, gormlogger.Warn, zapcore.WarnLevel, fc, elapsed, err)
			return
		}
		l.query(ctx, gormlogger.Error, zapcore.ErrorLevel, fc, elapsed, err)
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold:
		l.query(ctx, gormlogger.Warn, zapcore.WarnLevel, fc, elapsed, nil)
	default:
		l.query(ctx, gormlogger.Info, zapcore.DebugLevel, fc, elapsed, nil)
	}
}

// ParamsFilter drops bound values so customer emails and DNIs stay out of the log.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) query(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, fc func() (string, int64), elapsed time.Duration, err error) {
	if l.cfg.Level < min {
		return
	}
	sql, rows := fc()
	op, relation := describeSQL(sql)
	fields := []zap.Field{
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", op),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if relation != "" {
		fields = append(fields, zap.String("relation", relation))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.emit(ctx, level, "gorm.query", fields...)
}

func (l *GormLogger) write(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, fields ...zap.Field) {
	if l.cfg.Level < min {
		return
	}
	l.emit(ctx, level, msg, fields...)
}

func (l *GormLogger) emit(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(append(fields, zap.String("component", "gorm"))...)
	}
}

// describeSQL returns the statement verb and the first relation it touches.
func describeSQL(sql string) (string, string) {
	tokens := strings.Fields(strings.TrimSpace(sql))
	op := "UNKNOWN"
	for i, raw := range tokens {
		token := strings.ToUpper(strings.Trim(raw, "();"))
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			if op == "UNKNOWN" {
				op = token
			}
			if token == "UPDATE" {
				return op, relationAt(tokens, i+1)
			}
		case "FROM", "INTO":
			if op != "UNKNOWN" {
				return op, relationAt(tokens, i+1)
			}
		}
	}
	return op, ""
}

func relationAt(tokens []string, i int) string {
	if i >= len(tokens) {
		return ""
	}
	return strings.Trim(tokens[i], "\"`();")
}

var _ gormlogger.Interface = (*GormLogger)(nil)
