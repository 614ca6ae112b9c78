package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderFilter narrows supplier order listings
type OrderFilter struct {
	Status   SupplierOrderStatus // empty means any status
	Page     int
	PageSize int
}

// Offset returns the row offset for the page
func (f OrderFilter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// SupplierOrderRepository persists supplier orders and their items
type SupplierOrderRepository interface {
	// Create inserts an order with its items
	Create(ctx context.Context, order *SupplierOrder) error

	// FindByIDForTenant loads an order with items, or shared.ErrNotFound
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SupplierOrder, error)

	// FindByIDForUpdate loads an order and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*SupplierOrder, error)

	// ListForTenant returns orders newest first with the total count
	ListForTenant(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]SupplierOrder, int64, error)

	// SaveWithLock updates the header using optimistic locking and replaces items
	SaveWithLock(ctx context.Context, order *SupplierOrder) error

	// Delete removes an order and its items
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// SaleRepository persists sales, items and allocations
type SaleRepository interface {
	// Create inserts the whole sale.
	// It returns ErrDuplicateSale when the external order was already recorded.
	Create(ctx context.Context, sale *Sale) error

	// FindByIDForTenant loads a sale with items and allocations
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Sale, error)

	// FindByExternalRef loads the sale recorded for an external order, or shared.ErrNotFound
	FindByExternalRef(ctx context.Context, tenantID uuid.UUID, marketplace, externalOrderID string) (*Sale, error)

	// ListBetween returns sales whose sale date falls in [from, to)
	ListBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Sale, error)
}

// SaleReplayCache remembers which sale answered an external order.
// It is a fast path in front of the store's uniqueness constraint, never the authority.
type SaleReplayCache interface {
	// Get returns the sale id remembered for key
	Get(ctx context.Context, key SaleKey) (uuid.UUID, bool, error)
	// Remember stores key -> saleID if absent
	Remember(ctx context.Context, key SaleKey, saleID uuid.UUID) error
	// Close releases resources
	Close() error
}
