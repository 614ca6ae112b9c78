package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotLedger is the domain service owning lot creation, FIFO reads, consumption and release.
// It is bound to one repository; inside a transaction, build it from the
// transaction's repository so every step shares the same unit of work.
//
// Order receipt and initial balance are the only producers (CreateLot);
// sale intake is the only consumer (Allocate).
type LotLedger struct {
	repo  LotRepository
	clock shared.Clock

	mu          sync.Mutex
	lastCreated time.Time
}

// LotTimePrecision is the creation-time resolution the stores keep
const LotTimePrecision = time.Microsecond

// NewLotLedger creates a LotLedger over repo
func NewLotLedger(repo LotRepository, clock shared.Clock) *LotLedger {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &LotLedger{repo: repo, clock: clock}
}

// CreateLot validates and inserts a lot with QuantityRemaining = quantity
func (l *LotLedger) CreateLot(ctx context.Context, tenantID uuid.UUID, sku string, quantity, unitCost decimal.Decimal, source LotSource) (*InventoryLot, error) {
	lot, err := NewInventoryLot(tenantID, sku, quantity, unitCost, source, l.nextCreatedAt())
	if err != nil {
		return nil, err
	}
	if err := l.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	return lot, nil
}

// nextCreatedAt hands out strictly increasing creation times at store precision,
// so lots created together keep their creation order in FIFO
func (l *LotLedger) nextCreatedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now().Truncate(LotTimePrecision)
	if !now.After(l.lastCreated) {
		now = l.lastCreated.Add(LotTimePrecision)
	}
	l.lastCreated = now
	return now
}

// ListLots returns the tenant's lots oldest-first, optionally for one SKU
func (l *LotLedger) ListLots(ctx context.Context, tenantID uuid.UUID, sku string) ([]InventoryLot, error) {
	return l.repo.ListForTenant(ctx, tenantID, LotFilter{SKU: NormalizeSKU(sku)})
}

// Consume decrements one lot's remaining quantity
func (l *LotLedger) Consume(ctx context.Context, tenantID, lotID uuid.UUID, amount decimal.Decimal) (*InventoryLot, error) {
	lot, err := l.repo.FindByIDForTenant(ctx, tenantID, lotID)
	if err != nil {
		return nil, err
	}
	if err := l.consumeLoaded(ctx, lot, amount); err != nil {
		return nil, err
	}
	return lot, nil
}

func (l *LotLedger) consumeLoaded(ctx context.Context, lot *InventoryLot, amount decimal.Decimal) error {
	if err := lot.Consume(amount, l.clock.Now()); err != nil {
		return err
	}
	return l.repo.SaveWithLock(ctx, lot)
}

// ReleaseUnconsumed deletes a lot that has never been consumed
func (l *LotLedger) ReleaseUnconsumed(ctx context.Context, tenantID, lotID uuid.UUID) (*InventoryLot, error) {
	lot, err := l.repo.FindByIDForTenant(ctx, tenantID, lotID)
	if err != nil {
		return nil, err
	}
	if err := l.releaseLoaded(ctx, lot); err != nil {
		return nil, err
	}
	return lot, nil
}

func (l *LotLedger) releaseLoaded(ctx context.Context, lot *InventoryLot) error {
	if err := lot.EnsureReleasable(); err != nil {
		return err
	}
	if err := l.repo.DeleteUnconsumed(ctx, lot); err != nil {
		return err
	}
	lot.AddDomainEvent(NewLotReleasedEvent(lot, l.clock.Now()))
	return nil
}

// ReleaseOrderLots releases every lot produced by orderID.
// All lots are checked before any is deleted; a single consumed lot
// fails the whole call with ORDER_LOTS_CONSUMED.
func (l *LotLedger) ReleaseOrderLots(ctx context.Context, tenantID, orderID uuid.UUID) ([]InventoryLot, error) {
	lots, err := l.repo.FindBySourceOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	consumed := make([]string, 0)
	for i := range lots {
		if !lots[i].IsUntouched() {
			consumed = append(consumed, lots[i].ID.String())
		}
	}
	if len(consumed) > 0 {
		return nil, shared.NewDomainError(shared.CodeOrderLotsConsumed,
			fmt.Sprintf("Cannot unreceive order %s: %d lot(s) already consumed by sales", orderID, len(consumed))).
			WithDetails(map[string]interface{}{
				"order_id":      orderID.String(),
				"consumed_lots": consumed,
			})
	}

	for i := range lots {
		if err := l.releaseLoaded(ctx, &lots[i]); err != nil {
			if shared.IsCode(err, shared.CodeLotPartiallyConsumed) || shared.IsCode(err, shared.CodeConcurrencyConflict) {
				return nil, shared.NewDomainError(shared.CodeOrderLotsConsumed,
					fmt.Sprintf("Cannot unreceive order %s: lot %s changed concurrently", orderID, lots[i].ID))
			}
			return nil, err
		}
	}
	return lots, nil
}

// TotalValue returns the tenant's stock value
func (l *LotLedger) TotalValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	return l.repo.TotalValue(ctx, tenantID)
}

// Plan computes, without committing, the FIFO allocations for quantity of sku.
// The lots read are locked until the surrounding transaction ends.
func (l *LotLedger) Plan(ctx context.Context, tenantID uuid.UUID, sku string, quantity decimal.Decimal) (*AllocationPlan, []InventoryLot, error) {
	lots, err := l.repo.ListAvailableForUpdate(ctx, tenantID, NormalizeSKU(sku))
	if err != nil {
		return nil, nil, err
	}
	plan, err := PlanFIFO(lots, sku, quantity)
	if err != nil {
		return nil, nil, err
	}
	return plan, lots, nil
}

// Allocate plans quantity of sku FIFO and consumes every planned lot.
// The caller's transaction makes the whole allocation atomic.
func (l *LotLedger) Allocate(ctx context.Context, tenantID uuid.UUID, sku string, quantity decimal.Decimal) (*AllocationPlan, error) {
	plan, lots, err := l.Plan(ctx, tenantID, sku, quantity)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*InventoryLot, len(lots))
	for i := range lots {
		byID[lots[i].ID] = &lots[i]
	}
	for _, a := range plan.Allocations {
		lot, ok := byID[a.LotID]
		if !ok {
			return nil, shared.ErrConcurrencyConflict
		}
		if err := l.consumeLoaded(ctx, lot, a.Quantity); err != nil {
			return nil, err
		}
	}
	return plan, nil
}
