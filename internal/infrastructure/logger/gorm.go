package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold applies when GormLoggerConfig leaves SlowThreshold at zero
const DefaultSlowThreshold = 200 * time.Millisecond

// GormLoggerConfig tunes the SQL log
type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// LogNotFound reports empty lookups as errors; lookups by external ref miss on every new sale
	LogNotFound bool
}

// GormLogger routes GORM's SQL log to zap.
// Lock waits on inventory_lots surface here as slow statements.
type GormLogger struct {
	log *zap.Logger
	cfg GormLoggerConfig
}

// NewGormLogger creates a GORM logger writing to the "gorm" child of log
func NewGormLogger(log *zap.Logger, cfg GormLoggerConfig) *GormLogger {
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = DefaultSlowThreshold
	}
	return &GormLogger{log: log.Named("gorm"), cfg: cfg}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(min gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.cfg.Level < min {
		return
	}
	l.log.Sugar().Logf(level, msg, data...)
}

// Trace implements gormlogger.Interface.
// A duplicate key is logged at info: a replayed sale losing the insert race produces one.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	if err != nil && !l.cfg.LogNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	msg, level, min := "SQL Query", zapcore.DebugLevel, gormlogger.Info
	switch {
	case err != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		msg, level, min = "SQL unique key conflict", zapcore.InfoLevel, gormlogger.Error
	case err != nil:
		msg, level, min = "SQL Error", zapcore.ErrorLevel, gormlogger.Error
	case elapsed > l.cfg.SlowThreshold:
		msg, level, min = "Slow SQL", zapcore.WarnLevel, gormlogger.Warn
	}
	if l.cfg.Level < min {
		return
	}

	sql, rows := fc()
	fields := make([]zap.Field, 0, 7)
	fields = append(fields,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if level == zapcore.WarnLevel {
		fields = append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))
	}
	if id := GetOperationID(ctx); id != "" {
		fields = append(fields, zap.String("operation_id", id))
	}
	if tenantID := GetTenantID(ctx); tenantID != "" {
		fields = append(fields, zap.String("tenant_id", tenantID))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.log.Log(level, msg, fields...)
}

// MapGormLogLevel maps the configured log level onto GORM's; unknown levels warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
