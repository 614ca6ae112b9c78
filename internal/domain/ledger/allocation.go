package ledger

import (
	"fmt"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation assigns part of a sale quantity to one lot at that lot's unit cost
type Allocation struct {
	LotID    uuid.UUID       `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// Cost returns Quantity * UnitCost
func (a Allocation) Cost() decimal.Decimal {
	return a.Quantity.Mul(a.UnitCost)
}

// AllocationPlan is the ordered set of allocations satisfying one request.
// A plan is not committed until every allocation has been consumed from its lot.
type AllocationPlan struct {
	SKU         string
	Requested   decimal.Decimal
	Allocations []Allocation
}

// TotalQuantity sums the allocated quantity
func (p *AllocationPlan) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Quantity)
	}
	return total
}

// TotalCost sums the allocated cost
func (p *AllocationPlan) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Cost())
	}
	return total
}

// NewInsufficientInventoryError builds the error returned when lots cannot cover a request.
// The message always starts with "Insufficient inventory".
func NewInsufficientInventoryError(sku string, requested, available decimal.Decimal) *shared.DomainError {
	shortfall := requested.Sub(available)
	return shared.NewDomainError(shared.CodeInsufficientInventory,
		fmt.Sprintf("Insufficient inventory for SKU %s: requested %s, available %s, short by %s",
			sku, requested, available, shortfall)).
		WithDetails(map[string]interface{}{
			"sku":       sku,
			"requested": requested.String(),
			"available": available.String(),
			"shortfall": shortfall.String(),
		})
}

// PlanFIFO walks lots oldest-first and takes min(remaining, still needed) from each.
// Lots of other SKUs or tenants are the caller's responsibility to exclude;
// lots with another SKU are skipped defensively. The input slice is not modified.
// The plan is all-or-nothing: if lots run out, no plan is returned.
func PlanFIFO(lots []InventoryLot, sku string, needed decimal.Decimal) (*AllocationPlan, error) {
	sku = NormalizeSKU(sku)
	if err := valueobject.ValidatePositiveQuantity(needed); err != nil {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive: "+err.Error())
	}

	ordered := make([]InventoryLot, 0, len(lots))
	for i := range lots {
		if lots[i].SKU == sku && lots[i].QuantityRemaining.IsPositive() {
			ordered = append(ordered, lots[i])
		}
	}
	SortFIFO(ordered)

	plan := &AllocationPlan{SKU: sku, Requested: needed}
	stillNeeded := needed
	for i := range ordered {
		if stillNeeded.IsZero() {
			break
		}
		take := decimal.Min(ordered[i].QuantityRemaining, stillNeeded)
		plan.Allocations = append(plan.Allocations, Allocation{
			LotID:    ordered[i].ID,
			Quantity: take,
			UnitCost: ordered[i].UnitCost,
		})
		stillNeeded = stillNeeded.Sub(take)
	}

	if stillNeeded.IsPositive() {
		return nil, NewInsufficientInventoryError(sku, needed, needed.Sub(stillNeeded))
	}
	return plan, nil
}
