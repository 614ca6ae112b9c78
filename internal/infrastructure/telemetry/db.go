package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig holds configuration for database instrumentation.
type DBConfig struct {
	TraceEnabled    bool          // Register otelgorm spans
	LogFullSQL      bool          // Keep bound variables in span statements (dev only)
	SlowQueryThresh time.Duration // Default: 200ms
	DBSystem        string        // Default: "postgresql"
}

// DBInstrumentation records query metrics and pool statistics for a gorm.DB.
type DBInstrumentation struct {
	config DBConfig
	logger *zap.Logger

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolStats      metric.Registration
}

const queryStartKey = "ledger:query_start"

// InstrumentDB registers tracing (when enabled), query metrics and
// connection pool gauges on db. A nil meter uses the global provider.
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(TracerName)
	}
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	d := &DBInstrumentation{config: cfg, logger: logger}

	var err error
	if d.queryTotal, err = NewCounter(meter, "db_query_total", "Total number of database queries by operation type", "{query}"); err != nil {
		return nil, err
	}
	if d.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Total number of queries slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	d.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}

	if err := d.registerCallbacks(db); err != nil {
		return nil, err
	}
	if err := d.registerPoolStats(db, meter); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.TraceEnabled),
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return d, nil
}

func (d *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("ledger:before_create", markStart),
		cb.Create().After("gorm:create").Register("ledger:after_create", d.after("INSERT")),
		cb.Query().Before("gorm:query").Register("ledger:before_query", markStart),
		cb.Query().After("gorm:query").Register("ledger:after_query", d.after("SELECT")),
		cb.Update().Before("gorm:update").Register("ledger:before_update", markStart),
		cb.Update().After("gorm:update").Register("ledger:after_update", d.after("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("ledger:before_delete", markStart),
		cb.Delete().After("gorm:delete").Register("ledger:after_delete", d.after("DELETE")),
		cb.Row().Before("gorm:row").Register("ledger:before_row", markStart),
		cb.Row().After("gorm:row").Register("ledger:after_row", d.after("ROW")),
		cb.Raw().Before("gorm:raw").Register("ledger:before_raw", markStart),
		cb.Raw().After("gorm:raw").Register("ledger:after_raw", d.after("RAW")),
	)
}

func markStart(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (d *DBInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		elapsed := time.Since(start)

		d.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
		d.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(operation))

		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
			if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		}

		if elapsed <= d.config.SlowQueryThresh {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		d.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
		if span.IsRecording() {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}

		fields := []zap.Field{
			zap.String("operation", operation),
			zap.String("table", table),
			zap.Duration("elapsed", elapsed),
		}
		if d.config.LogFullSQL {
			fields = append(fields, zap.String("sql", db.Statement.SQL.String()))
		}
		d.logger.Warn("Slow database query", fields...)
	}
}

// registerPoolStats exposes sql.DB pool counters as observable gauges,
// read on every collection cycle.
func (d *DBInstrumentation) registerPoolStats(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}
	maxConnections, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	d.poolStats, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		o.ObserveInt64(maxConnections, int64(stats.MaxOpenConnections))
		return nil
	}, connections, maxConnections)
	return err
}

// Stop unregisters the pool gauges. Safe to call more than once.
func (d *DBInstrumentation) Stop() {
	if d.poolStats == nil {
		return
	}
	if err := d.poolStats.Unregister(); err != nil {
		d.logger.Debug("Failed to unregister pool stats", zap.Error(err))
	}
	d.poolStats = nil
}
