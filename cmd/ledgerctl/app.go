package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	inventoryapp "github.com/erp/lotledger/internal/application/inventory"
	reportapp "github.com/erp/lotledger/internal/application/report"
	tradeapp "github.com/erp/lotledger/internal/application/trade"
	"github.com/erp/lotledger/internal/domain/report"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/cache"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/erp/lotledger/internal/infrastructure/event"
	"github.com/erp/lotledger/internal/infrastructure/export"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/infrastructure/persistence"
	"github.com/erp/lotledger/internal/infrastructure/persistence/models"
	"github.com/erp/lotledger/internal/infrastructure/storage"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the wired services for one CLI invocation
type app struct {
	cfg *config.Config
	log *zap.Logger

	db        *persistence.Database
	providers *telemetry.Providers
	dbMetrics *telemetry.DBInstrumentation
	metrics   *telemetry.LedgerMetrics
	bus       *event.InMemoryEventBus
	replay    closer

	catalog     *persistence.GormCatalogRepository
	inventory   *inventoryapp.InventoryService
	orders      *tradeapp.SupplierOrderService
	sales       *tradeapp.SaleService
	reports     *reportapp.Service
	exportStore *storage.S3ExportStore
}

type closer interface {
	Close() error
}

// loadEnv reads .env before viper sees the environment; a missing file is fine
func loadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	// stdout carries command output
	if logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	var extra []zapcore.Core
	if providers.IsEnabled() {
		extra = append(extra, providers.ZapCore(zapcore.InfoLevel))
	}
	log, err := logger.New(logCfg, extra...)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, providers: providers}
	if err := a.wire(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	db, err := persistence.NewDatabase(&cfg.Database, log, persistence.Options{
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	})
	if err != nil {
		return err
	}
	a.db = db

	// postgres schemas come from cmd/migrate; sqlite is created in place
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.DB.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	a.dbMetrics, err = telemetry.InstrumentDB(db.DB, a.providers.Meter(telemetry.TracerName), telemetry.DBConfig{
		TraceEnabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log)
	if err != nil {
		return fmt.Errorf("instrument database: %w", err)
	}

	a.metrics, err = telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           a.providers.Meter(telemetry.TracerName),
		Logger:          log,
		CollectInterval: cfg.Telemetry.MetricsInterval,
		ValueProvider:   telemetry.NewGormInventoryValueProvider(db.DB),
	})
	if err != nil {
		return fmt.Errorf("create ledger metrics: %w", err)
	}

	a.bus = event.NewInMemoryEventBus(log)
	a.bus.Subscribe(tradeapp.NewSaleRecordedHandler(a.metrics, log))
	if err := a.bus.Start(ctx); err != nil {
		return err
	}

	replay, err := cache.NewReplayCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).Create(ctx)
	if err != nil {
		return err
	}
	a.replay = replay

	clock := shared.SystemClock{}
	txScope := persistence.NewGormTransactionScope(db.DB)
	lotRepo := persistence.NewGormLotRepository(db.DB)
	orderRepo := persistence.NewGormSupplierOrderRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	a.catalog = persistence.NewGormCatalogRepository(db.DB)

	a.inventory = inventoryapp.NewInventoryService(txScope, lotRepo, clock, log)
	a.inventory.SetEventPublisher(a.bus)
	a.inventory.SetLedgerMetrics(a.metrics)

	a.orders = tradeapp.NewSupplierOrderService(txScope, orderRepo, clock, log)
	a.orders.SetEventPublisher(a.bus)
	a.orders.SetLedgerMetrics(a.metrics)

	a.sales = tradeapp.NewSaleService(txScope, saleRepo, clock, log)
	a.sales.SetEventPublisher(a.bus)
	a.sales.SetLedgerMetrics(a.metrics)
	a.sales.SetReplayCache(replay)

	a.reports = reportapp.NewService(persistence.NewGormReportRepository(db.DB), reportapp.Options{
		DefaultGroupBy: report.GroupBy(cfg.Report.DefaultGroupBy),
		MaxRangeDays:   cfg.Report.MaxRangeDays,
		ExportPrefix:   cfg.Export.Prefix,
	}, clock, log)
	a.reports.SetRenderer(export.NewXLSXRenderer())

	if cfg.Export.UploadEnabled() {
		store, err := storage.NewS3ExportStore(ctx, &cfg.Export, storage.WithLogger(log))
		if err != nil {
			return err
		}
		a.exportStore = store
		a.reports.SetObjectStorage(store)
	}
	return nil
}

// close releases everything newApp opened, in reverse order
func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.bus != nil {
		if err := a.bus.Stop(ctx); err != nil {
			a.log.Warn("Event bus did not drain", zap.Error(err))
		}
	}
	if a.replay != nil {
		if err := a.replay.Close(); err != nil {
			a.log.Warn("Failed to close sale replay cache", zap.Error(err))
		}
	}
	if a.metrics != nil {
		a.metrics.Stop()
	}
	if a.dbMetrics != nil {
		a.dbMetrics.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", zap.Error(err))
		}
	}
	if a.providers != nil {
		if err := a.providers.Shutdown(ctx); err != nil {
			a.log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
