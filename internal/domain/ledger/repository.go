package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotFilter narrows lot listings
type LotFilter struct {
	SKU           string // empty means every SKU
	OnlyAvailable bool   // quantity_remaining > 0
}

// LotRepository persists inventory lots.
// Every method is tenant-scoped; a lot of another tenant behaves as if it did not exist.
// Listings are ordered by created_at ASC, id ASC.
type LotRepository interface {
	// Create inserts a new lot
	Create(ctx context.Context, lot *InventoryLot) error

	// FindByIDForTenant loads one lot
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*InventoryLot, error)

	// ListForTenant returns lots in FIFO order
	ListForTenant(ctx context.Context, tenantID uuid.UUID, filter LotFilter) ([]InventoryLot, error)

	// ListAvailableForUpdate returns lots of sku with stock left, in FIFO order,
	// locking the rows until the surrounding transaction ends
	ListAvailableForUpdate(ctx context.Context, tenantID uuid.UUID, sku string) ([]InventoryLot, error)

	// FindBySourceOrder returns the lots created by receiving orderID, locking the rows
	FindBySourceOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]InventoryLot, error)

	// SaveWithLock persists a consumed lot using optimistic locking on Version.
	// The stored version must equal lot.Version-1.
	SaveWithLock(ctx context.Context, lot *InventoryLot) error

	// DeleteUnconsumed removes a lot only if it is still untouched at the stored version
	DeleteUnconsumed(ctx context.Context, lot *InventoryLot) error

	// TotalValue returns sum(quantity_remaining * unit_cost) over the tenant's lots
	TotalValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}
