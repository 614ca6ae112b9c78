package trade

import (
	"context"
	"errors"
	"strings"
	"time"

	appinv "github.com/erp/lotledger/internal/application/inventory"
	"github.com/erp/lotledger/internal/application/validation"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleService records marketplace sales against the lot ledger.
//
// Intake is idempotent per (tenant, marketplace, external order id):
//  1. the replay cache and then the store are asked for an earlier sale;
//  2. otherwise SKUs are resolved, every item is allocated FIFO and the sale
//     is inserted, all in one transaction;
//  3. if the transaction fails and a concurrent submission has since recorded
//     the same external order, the winner's sale is returned with Existing set.
type SaleService struct {
	txScope        appinv.TransactionScope
	saleRepo       trade.SaleRepository
	replayCache    trade.SaleReplayCache
	clock          shared.Clock
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	ledgerMetrics  *telemetry.LedgerMetrics
}

// NewSaleService creates a new SaleService
func NewSaleService(txScope appinv.TransactionScope, saleRepo trade.SaleRepository, clock shared.Clock, log *zap.Logger) *SaleService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SaleService{
		txScope:  txScope,
		saleRepo: saleRepo,
		clock:    clock,
		logger:   log,
	}
}

// SetReplayCache sets the cache consulted before the store on replays
func (s *SaleService) SetReplayCache(cache trade.SaleReplayCache) {
	s.replayCache = cache
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLedgerMetrics sets the ledger metrics collector
func (s *SaleService) SetLedgerMetrics(lm *telemetry.LedgerMetrics) {
	s.ledgerMetrics = lm
}

// RecordSale records a sale and consumes lots FIFO for every item.
// A replayed external order returns the original sale with Existing=true and allocates nothing.
func (s *SaleService) RecordSale(ctx context.Context, tenantID uuid.UUID, req RecordSaleRequest) (*SaleResponse, error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "record")
	defer span.End()

	marketplace := strings.TrimSpace(req.Marketplace)
	externalID := trade.NormalizeExternalOrderID(req.ExternalOrderID)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrMarketplace, marketplace,
		telemetry.SpanAttrItemsCount, len(req.Items),
	)
	if externalID != nil {
		telemetry.SetAttribute(span, telemetry.SpanAttrExternalID, *externalID)
	}

	if err := validation.Struct(req); err != nil {
		telemetry.RecordError(span, err)
		s.recordOutcome(ctx, tenantID, marketplace, telemetry.SaleOutcomeRejected, started)
		return nil, err
	}

	var key trade.SaleKey
	if externalID != nil {
		key = trade.SaleKey{TenantID: tenantID, Marketplace: marketplace, ExternalOrderID: *externalID}
		existing, err := s.findExisting(ctx, key)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if existing != nil {
			s.recordOutcome(ctx, tenantID, marketplace, telemetry.SaleOutcomeReplayed, started)
			telemetry.SetAttribute(span, telemetry.SpanAttrSaleID, existing.ID.String())
			return ToSaleResponse(existing, true), nil
		}
	}

	var sale *trade.Sale
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		codes := make([]string, len(req.Items))
		for i, item := range req.Items {
			codes[i] = item.SKU
		}
		if _, err := repos.Catalog().ResolveMany(ctx, tenantID, catalog.UniqueCodes(codes)); err != nil {
			return err
		}

		now := s.clock.Now()
		saleDate := now
		if req.SaleDate != nil {
			saleDate = req.SaleDate.UTC()
		}
		sl, err := trade.NewSale(tenantID, marketplace, externalID, saleDate, now)
		if err != nil {
			return err
		}

		lotLedger := ledger.NewLotLedger(repos.LotRepo(), s.clock)
		for _, item := range req.Items {
			plan, err := lotLedger.Allocate(ctx, tenantID, item.SKU, item.Quantity)
			if err != nil {
				return err
			}
			if _, err := sl.AddItem(item.SKU, item.Quantity, item.UnitSalePrice, item.Fee, plan); err != nil {
				return err
			}
		}
		if err := sl.Complete(); err != nil {
			return err
		}
		if err := repos.SaleRepo().Create(ctx, sl); err != nil {
			return err
		}
		sale = sl
		return nil
	})
	if err != nil {
		if externalID != nil {
			// the winner of a concurrent replay may have drained the lots before the unique key was reached
			resp, raceErr := s.resolveLostRace(ctx, key, started)
			if raceErr == nil {
				return resp, nil
			}
			if errors.Is(err, trade.ErrDuplicateSale) {
				telemetry.RecordError(span, raceErr)
				return nil, raceErr
			}
		}

		telemetry.RecordError(span, err)
		if s.ledgerMetrics != nil && shared.IsCode(err, shared.CodeInsufficientInventory) {
			s.ledgerMetrics.RecordAllocationFailure(ctx, tenantID)
		}
		s.recordOutcome(ctx, tenantID, marketplace, telemetry.SaleOutcomeRejected, started)
		logger.L(ctx).Warn("Sale rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("marketplace", marketplace),
			zap.Error(err))
		return nil, err
	}

	if externalID != nil {
		s.remember(ctx, key, sale.ID)
	}
	s.publishDomainEvents(ctx, sale)
	s.recordOutcome(ctx, tenantID, marketplace, telemetry.SaleOutcomeCreated, started)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, sale.ID.String(),
		telemetry.SpanAttrAmount, sale.Revenue().String(),
	)
	s.logger.Info("Sale recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("sale_id", sale.ID.String()),
		zap.String("marketplace", marketplace),
		zap.String("margin", sale.Margin().String()))

	return ToSaleResponse(sale, false), nil
}

// GetByID retrieves a sale with items and allocations
func (s *SaleService) GetByID(ctx context.Context, tenantID, saleID uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByIDForTenant(ctx, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	return ToSaleResponse(sale, false), nil
}

// findExisting returns the sale already recorded for key, or nil.
// Cache failures fall back to the store.
func (s *SaleService) findExisting(ctx context.Context, key trade.SaleKey) (*trade.Sale, error) {
	if s.replayCache != nil {
		saleID, ok, err := s.replayCache.Get(ctx, key)
		if err != nil {
			logger.L(ctx).Warn("Sale replay cache lookup failed", zap.String("key", key.String()), zap.Error(err))
		} else if ok {
			sale, err := s.saleRepo.FindByIDForTenant(ctx, key.TenantID, saleID)
			if err == nil {
				return sale, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
		}
	}

	sale, err := s.saleRepo.FindByExternalRef(ctx, key.TenantID, key.Marketplace, key.ExternalOrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s.remember(ctx, key, sale.ID)
	return sale, nil
}

// resolveLostRace returns the sale of the concurrent submission that won the unique key
func (s *SaleService) resolveLostRace(ctx context.Context, key trade.SaleKey, started time.Time) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByExternalRef(ctx, key.TenantID, key.Marketplace, key.ExternalOrderID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, sale.ID)
	s.recordOutcome(ctx, key.TenantID, key.Marketplace, telemetry.SaleOutcomeReplayed, started)
	s.logger.Info("Concurrent sale submission resolved to existing sale",
		zap.String("tenant_id", key.TenantID.String()),
		zap.String("sale_id", sale.ID.String()))
	return ToSaleResponse(sale, true), nil
}

func (s *SaleService) remember(ctx context.Context, key trade.SaleKey, saleID uuid.UUID) {
	if s.replayCache == nil {
		return
	}
	if err := s.replayCache.Remember(ctx, key, saleID); err != nil {
		logger.L(ctx).Warn("Sale replay cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

func (s *SaleService) recordOutcome(ctx context.Context, tenantID uuid.UUID, marketplace, outcome string, started time.Time) {
	if s.ledgerMetrics == nil {
		return
	}
	s.ledgerMetrics.RecordSale(ctx, tenantID, marketplace, outcome, time.Since(started))
}

// publishDomainEvents publishes and clears the sale's events
func (s *SaleService) publishDomainEvents(ctx context.Context, sale *trade.Sale) {
	publishDomainEvents(ctx, s.eventPublisher, sale)
}
