package inventory

import (
	"context"

	"github.com/erp/lotledger/internal/application/validation"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/report"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryService handles opening balances and the inventory overview
type InventoryService struct {
	txScope        TransactionScope
	lotRepo        ledger.LotRepository
	clock          shared.Clock
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	ledgerMetrics  *telemetry.LedgerMetrics
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(txScope TransactionScope, lotRepo ledger.LotRepository, clock shared.Clock, log *zap.Logger) *InventoryService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryService{
		txScope: txScope,
		lotRepo: lotRepo,
		clock:   clock,
		logger:  log,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLedgerMetrics sets the ledger metrics collector
func (s *InventoryService) SetLedgerMetrics(lm *telemetry.LedgerMetrics) {
	s.ledgerMetrics = lm
}

// InitialBalance creates one manual lot per item in a single transaction.
// Any unknown SKU aborts the whole request before a lot is written.
func (s *InventoryService) InitialBalance(ctx context.Context, tenantID uuid.UUID, req InitialBalanceRequest) (*InitialBalanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "initial_balance")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrItemsCount, len(req.Items),
	)

	if err := validation.Struct(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	codes := make([]string, len(req.Items))
	for i, item := range req.Items {
		codes[i] = item.SKU
	}

	var lots []ledger.InventoryLot
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Catalog().ResolveMany(ctx, tenantID, catalog.UniqueCodes(codes)); err != nil {
			return err
		}

		lotLedger := ledger.NewLotLedger(repos.LotRepo(), s.clock)
		lots = make([]ledger.InventoryLot, 0, len(req.Items))
		for _, item := range req.Items {
			lot, err := lotLedger.CreateLot(ctx, tenantID, item.SKU, item.Quantity, item.UnitCost, ledger.ManualSource())
			if err != nil {
				return err
			}
			lots = append(lots, *lot)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Initial balance rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}

	amount := decimal.Zero
	for i := range lots {
		amount = amount.Add(lots[i].QuantityOriginal.Mul(lots[i].UnitCost))
		s.publishDomainEvents(ctx, &lots[i])
	}
	if s.ledgerMetrics != nil {
		s.ledgerMetrics.RecordLotsCreated(ctx, tenantID, ledger.LotSourceManual.String(), len(lots))
	}
	s.logger.Info("Initial balance recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("lots_created", len(lots)),
		zap.String("purchase_amount", amount.String()))

	return &InitialBalanceResponse{
		LotsCreated:    len(lots),
		PurchaseAmount: amount,
		ItemsCount:     len(req.Items),
		Lots:           ToLotResponses(lots),
	}, nil
}

// ListInventory returns the per-SKU summary, the lots oldest-first and the stock value.
// TotalStockValue always equals the sum of RemainingValue over the returned lots.
func (s *InventoryService) ListInventory(ctx context.Context, tenantID uuid.UUID, req ListInventoryRequest) (*InventoryResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	lots, err := s.lotRepo.ListForTenant(ctx, tenantID, ledger.LotFilter{
		SKU:           ledger.NormalizeSKU(req.SKU),
		OnlyAvailable: req.OnlyAvailable,
	})
	if err != nil {
		return nil, err
	}

	summary, total := report.SummarizeLots(lots)
	return &InventoryResponse{
		Summary:         summary,
		Lots:            ToLotResponses(lots),
		TotalStockValue: total,
	}, nil
}

// TotalValue returns the tenant's stock value as computed by the store
func (s *InventoryService) TotalValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	value, err := ledger.NewLotLedger(s.lotRepo, s.clock).TotalValue(ctx, tenantID)
	if err != nil {
		return decimal.Zero, err
	}
	if s.ledgerMetrics != nil {
		s.ledgerMetrics.RecordInventoryValue(ctx, tenantID, value)
	}
	return value, nil
}

// publishDomainEvents publishes and clears the lot's events
func (s *InventoryService) publishDomainEvents(ctx context.Context, lot *ledger.InventoryLot) {
	if s.eventPublisher == nil {
		return
	}
	events := lot.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	lot.ClearDomainEvents()
}
