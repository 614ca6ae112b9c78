package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type probe struct {
	ID   uint
	Name string
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestInstrumentDB_RecordsQueries(t *testing.T) {
	db := openSQLite(t)
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	inst, err := telemetry.InstrumentDB(db, meter, telemetry.DBConfig{SlowQueryThresh: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	defer inst.Stop()

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).AutoMigrate(&probe{}))
	require.NoError(t, db.WithContext(ctx).Create(&probe{Name: "a"}).Error)
	var rows []probe
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)

	data := collect(t, reader)
	require.Contains(t, data, "db_query_total")
	sum, ok := data["db_query_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	byOp := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(telemetry.AttrDBOperation)
		byOp[op.AsString()] += dp.Value
	}
	assert.Equal(t, int64(1), byOp["INSERT"])
	assert.GreaterOrEqual(t, byOp["SELECT"], int64(1))

	assert.Contains(t, data, "db_query_duration_seconds")
	assert.NotContains(t, data, "db_slow_query_total")

	gauge, ok := data["db_pool_connections_max"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(1), gauge.DataPoints[0].Value)
	assert.Contains(t, data, "db_pool_connections")
}

func TestInstrumentDB_SlowQuery(t *testing.T) {
	db := openSQLite(t)
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	core, logs := observer.New(zapcore.WarnLevel)

	inst, err := telemetry.InstrumentDB(db, meter, telemetry.DBConfig{SlowQueryThresh: time.Nanosecond}, zap.New(core))
	require.NoError(t, err)
	defer inst.Stop()
	inst.Stop()

	require.NoError(t, db.AutoMigrate(&probe{}))
	require.NoError(t, db.Create(&probe{Name: "slow"}).Error)

	data := collect(t, reader)
	assert.Positive(t, sumOf(t, data["db_slow_query_total"]))

	slow := logs.FilterMessage("Slow database query").FilterField(zap.String("table", "probes"))
	assert.GreaterOrEqual(t, slow.Len(), 1)
	for _, e := range slow.All() {
		assert.NotContains(t, e.ContextMap(), "sql")
	}
}
