// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the lot ledger.
// It tracks lot production, FIFO consumption, sale intake and stock value.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	lotsCreatedTotal        *Counter
	lotsReleasedTotal       *Counter
	allocationsTotal        *Counter
	allocationFailuresTotal *Counter
	salesTotal              *Counter
	orderTransitionsTotal   *Counter
	recordSaleDuration      *Histogram
	inventoryValue          *FloatGauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	valueProvider InventoryValueProvider
}

// InventoryValueProvider supplies stock values for periodic collection
// without the telemetry layer depending on the ledger domain.
type InventoryValueProvider interface {
	// TenantsWithStock returns every tenant that owns at least one lot
	TenantsWithStock(ctx context.Context) ([]uuid.UUID, error)

	// StockValue returns sum(quantity_remaining * unit_cost) for a tenant
	StockValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	ValueProvider   InventoryValueProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		valueProvider: cfg.ValueProvider,
	}

	var err error
	counters := []struct {
		target            **Counter
		name, desc, unit string
	}{
		{&lm.lotsCreatedTotal, "ledger_lots_created_total", "Total number of inventory lots created", "{lots}"},
		{&lm.lotsReleasedTotal, "ledger_lots_released_total", "Total number of unconsumed lots released by unreceive", "{lots}"},
		{&lm.allocationsTotal, "ledger_allocations_total", "Total number of FIFO allocations committed against lots", "{allocations}"},
		{&lm.allocationFailuresTotal, "ledger_allocation_failures_total", "Total number of sale requests rejected for insufficient inventory", "{requests}"},
		{&lm.salesTotal, "ledger_sales_total", "Total number of sale submissions by outcome", "{sales}"},
		{&lm.orderTransitionsTotal, "ledger_order_transitions_total", "Total number of supplier order state transitions", "{transitions}"},
	}
	for _, c := range counters {
		*c.target, err = NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
	}

	lm.recordSaleDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_record_sale_duration_seconds",
		Description: "Duration of sale intake including allocation",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	lm.inventoryValue, err = NewFloatGauge(cfg.Meter,
		"ledger_inventory_value",
		"Current stock value at FIFO cost",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// Sale outcomes for metrics labeling.
const (
	SaleOutcomeCreated  = "created"
	SaleOutcomeReplayed = "replayed"
	SaleOutcomeRejected = "rejected"
)

// RecordLotsCreated records lots created from a source kind (manual or supplier_order_item).
func (lm *LedgerMetrics) RecordLotsCreated(ctx context.Context, tenantID uuid.UUID, source string, count int) {
	lm.lotsCreatedTotal.Add(ctx, int64(count),
		AttrTenantID.String(tenantID.String()),
		AttrLotSource.String(source),
	)
}

// RecordLotsReleased records lots deleted by an unreceive.
func (lm *LedgerMetrics) RecordLotsReleased(ctx context.Context, tenantID uuid.UUID, count int) {
	lm.lotsReleasedTotal.Add(ctx, int64(count), AttrTenantID.String(tenantID.String()))
}

// RecordAllocations records committed allocations.
func (lm *LedgerMetrics) RecordAllocations(ctx context.Context, tenantID uuid.UUID, count int) {
	lm.allocationsTotal.Add(ctx, int64(count), AttrTenantID.String(tenantID.String()))
}

// RecordAllocationFailure records a sale rejected for insufficient inventory.
func (lm *LedgerMetrics) RecordAllocationFailure(ctx context.Context, tenantID uuid.UUID) {
	lm.allocationFailuresTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordSale records a sale submission and how long it took.
func (lm *LedgerMetrics) RecordSale(ctx context.Context, tenantID uuid.UUID, marketplace, outcome string, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrMarketplace.String(marketplace),
		AttrSaleOutcome.String(outcome),
	}
	lm.salesTotal.Inc(ctx, attrs...)
	lm.recordSaleDuration.RecordDuration(ctx, d, attrs...)
}

// RecordOrderTransition records a supplier order transition (receive, unreceive, delete).
func (lm *LedgerMetrics) RecordOrderTransition(ctx context.Context, tenantID uuid.UUID, transition string) {
	lm.orderTransitionsTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrOrderTransition.String(transition),
	)
}

// RecordInventoryValue records the tenant's current stock value.
func (lm *LedgerMetrics) RecordInventoryValue(ctx context.Context, tenantID uuid.UUID, value decimal.Decimal) {
	lm.inventoryValue.Record(ctx, value.InexactFloat64(), AttrTenantID.String(tenantID.String()))
}

// StartPeriodicCollection starts periodic collection of the stock value gauge.
// This is non-blocking - use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go lm.runPeriodicCollection(ctx, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lm.collectInventoryValues(ctx)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectInventoryValues(ctx)
		}
	}
}

func (lm *LedgerMetrics) collectInventoryValues(ctx context.Context) {
	if lm.valueProvider == nil {
		lm.logger.Debug("No inventory value provider configured, skipping collection")
		return
	}

	tenantIDs, err := lm.valueProvider.TenantsWithStock(ctx)
	if err != nil {
		lm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		value, err := lm.valueProvider.StockValue(ctx, tenantID)
		if err != nil {
			lm.logger.Warn("Failed to get stock value for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		lm.RecordInventoryValue(ctx, tenantID, value)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Ledger attribute keys
var (
	AttrLotSource       = attribute.Key("lot_source")
	AttrMarketplace     = attribute.Key("marketplace")
	AttrSaleOutcome     = attribute.Key("sale_outcome")
	AttrOrderTransition = attribute.Key("order_transition")
)
