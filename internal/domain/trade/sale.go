package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDuplicateSale is returned by the store when (tenant, marketplace, external_order_id) already exists
var ErrDuplicateSale = shared.NewDomainError(shared.CodeAlreadyExists, "Sale already recorded for this external order")

// SaleKey identifies a marketplace order for idempotent intake
type SaleKey struct {
	TenantID        uuid.UUID
	Marketplace     string
	ExternalOrderID string
}

// String renders the key for caches and logs
func (k SaleKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.Marketplace, k.ExternalOrderID)
}

// SaleAllocation records which lot funded part of a sale item and at what cost.
// It is the cost-of-goods audit trail.
type SaleAllocation struct {
	ID         uuid.UUID
	SaleItemID uuid.UUID
	LotID      uuid.UUID
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
}

// Cost returns Quantity * UnitCost
func (a SaleAllocation) Cost() decimal.Decimal {
	return valueobject.LineAmount(a.Quantity, a.UnitCost).Amount()
}

// SaleItem is one SKU line of a sale.
// Quantity always equals the sum of its allocation quantities.
type SaleItem struct {
	ID            uuid.UUID
	SaleID        uuid.UUID
	LineNo        int
	SKU           string
	Quantity      decimal.Decimal
	UnitSalePrice decimal.Decimal
	Fee           decimal.Decimal
	Allocations   []SaleAllocation
}

// Revenue returns UnitSalePrice * Quantity
func (i SaleItem) Revenue() decimal.Decimal {
	return valueobject.LineAmount(i.Quantity, i.UnitSalePrice).Amount()
}

// Cost returns the FIFO cost of goods of the item
func (i SaleItem) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, a := range i.Allocations {
		total = total.Add(a.Cost())
	}
	return total
}

// Margin returns revenue - fee - cost
func (i SaleItem) Margin() decimal.Decimal {
	return i.Revenue().Sub(i.Fee).Sub(i.Cost())
}

// AllocatedQuantity sums the allocation quantities
func (i SaleItem) AllocatedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, a := range i.Allocations {
		total = total.Add(a.Quantity)
	}
	return total
}

// Sale is the aggregate root for one marketplace sale.
// Sales are immutable once recorded.
type Sale struct {
	shared.TenantAggregateRoot
	Marketplace     string
	ExternalOrderID *string
	SaleDate        time.Time
	Items           []SaleItem
}

// NewSale creates an empty sale. A blank external order id is stored as nil and never deduplicates.
func NewSale(tenantID uuid.UUID, marketplace string, externalOrderID *string, saleDate, now time.Time) (*Sale, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	marketplace = strings.TrimSpace(marketplace)
	if marketplace == "" {
		return nil, shared.NewDomainError("INVALID_MARKETPLACE", "Marketplace cannot be empty")
	}
	if saleDate.IsZero() {
		saleDate = now
	}
	return &Sale{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		Marketplace:         marketplace,
		ExternalOrderID:     NormalizeExternalOrderID(externalOrderID),
		SaleDate:            saleDate,
	}, nil
}

// NormalizeExternalOrderID trims the id and maps blank values to nil
func NormalizeExternalOrderID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Key returns the idempotency key, or false when the sale has no external order id
func (s *Sale) Key() (SaleKey, bool) {
	if s.ExternalOrderID == nil {
		return SaleKey{}, false
	}
	return SaleKey{TenantID: s.TenantID, Marketplace: s.Marketplace, ExternalOrderID: *s.ExternalOrderID}, true
}

// AddItem appends a line funded by a committed allocation plan
func (s *Sale) AddItem(sku string, quantity, unitSalePrice, fee decimal.Decimal, plan *ledger.AllocationPlan) (*SaleItem, error) {
	lineNo := len(s.Items) + 1
	sku = ledger.NormalizeSKU(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", fmt.Sprintf("Item %d: SKU cannot be empty", lineNo))
	}
	if err := valueobject.ValidatePositiveQuantity(quantity); err != nil {
		return nil, shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Item %d: %s", lineNo, err))
	}
	if err := valueobject.ValidateAmount(unitSalePrice); err != nil {
		return nil, shared.NewDomainError("INVALID_PRICE", fmt.Sprintf("Item %d: unit sale price: %s", lineNo, err))
	}
	if err := valueobject.ValidateAmount(fee); err != nil {
		return nil, shared.NewDomainError("INVALID_FEE", fmt.Sprintf("Item %d: fee: %s", lineNo, err))
	}
	if plan == nil || plan.SKU != sku || !plan.TotalQuantity().Equal(quantity) {
		return nil, shared.NewDomainError("ALLOCATION_MISMATCH", fmt.Sprintf("Item %d: allocations do not cover the requested quantity", lineNo))
	}

	item := SaleItem{
		ID:            uuid.New(),
		SaleID:        s.ID,
		LineNo:        lineNo,
		SKU:           sku,
		Quantity:      quantity,
		UnitSalePrice: unitSalePrice,
		Fee:           fee,
		Allocations:   make([]SaleAllocation, 0, len(plan.Allocations)),
	}
	for _, a := range plan.Allocations {
		item.Allocations = append(item.Allocations, SaleAllocation{
			ID:         uuid.New(),
			SaleItemID: item.ID,
			LotID:      a.LotID,
			Quantity:   a.Quantity,
			UnitCost:   a.UnitCost,
		})
	}
	s.Items = append(s.Items, item)
	return &s.Items[len(s.Items)-1], nil
}

// Complete validates the sale and raises the recorded event
func (s *Sale) Complete() error {
	if len(s.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "A sale needs at least one item")
	}
	s.AddDomainEvent(NewSaleRecordedEvent(s))
	return nil
}

// Revenue sums item revenue
func (s *Sale) Revenue() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Revenue())
	}
	return total
}

// Fees sums item fees
func (s *Sale) Fees() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Fee)
	}
	return total
}

// Cost sums the FIFO cost of goods
func (s *Sale) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Cost())
	}
	return total
}

// Margin returns revenue - fees - cost
func (s *Sale) Margin() decimal.Decimal {
	return s.Revenue().Sub(s.Fees()).Sub(s.Cost())
}
