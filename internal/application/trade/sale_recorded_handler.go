package trade

import (
	"context"
	"fmt"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SaleRecordedHandler handles SaleRecordedEvent
// and records how many lot allocations the sale committed
type SaleRecordedHandler struct {
	ledgerMetrics *telemetry.LedgerMetrics
	logger        *zap.Logger
}

// NewSaleRecordedHandler creates a new handler for sale recorded events
func NewSaleRecordedHandler(ledgerMetrics *telemetry.LedgerMetrics, logger *zap.Logger) *SaleRecordedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleRecordedHandler{
		ledgerMetrics: ledgerMetrics,
		logger:        logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *SaleRecordedHandler) EventTypes() []string {
	return []string{trade.EventTypeSaleRecorded}
}

// Handle processes a SaleRecordedEvent
func (h *SaleRecordedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	recorded, ok := event.(*trade.SaleRecordedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypeSaleRecorded),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypeSaleRecorded, event.EventType())
	}

	allocations := 0
	for _, item := range recorded.Items {
		allocations += item.LotCount
	}

	h.logger.Debug("processing sale recorded event",
		zap.String("sale_id", recorded.SaleID.String()),
		zap.String("marketplace", recorded.Marketplace),
		zap.Int("items_count", len(recorded.Items)),
		zap.Int("allocations", allocations),
	)

	if h.ledgerMetrics != nil {
		h.ledgerMetrics.RecordAllocations(ctx, recorded.TenantID(), allocations)
	}
	return nil
}

var _ shared.EventHandler = (*SaleRecordedHandler)(nil)
