package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotSourceKind tags where a lot came from
type LotSourceKind string

const (
	LotSourceManual            LotSourceKind = "manual"
	LotSourceSupplierOrderItem LotSourceKind = "supplier_order_item"
)

// IsValid checks if the kind is a known LotSourceKind
func (k LotSourceKind) IsValid() bool {
	switch k {
	case LotSourceManual, LotSourceSupplierOrderItem:
		return true
	}
	return false
}

// String returns the string representation of LotSourceKind
func (k LotSourceKind) String() string {
	return string(k)
}

// LotSource is a tagged variant describing the origin of a lot.
// Manual lots carry no references; supplier order lots reference the order and the item.
// Both variants consume and release identically.
type LotSource struct {
	Kind        LotSourceKind
	OrderID     *uuid.UUID
	OrderItemID *uuid.UUID
}

// ManualSource returns the source for initial-balance lots
func ManualSource() LotSource {
	return LotSource{Kind: LotSourceManual}
}

// SupplierOrderItemSource returns the source for a lot created by receiving an order item
func SupplierOrderItemSource(orderID, itemID uuid.UUID) LotSource {
	return LotSource{
		Kind:        LotSourceSupplierOrderItem,
		OrderID:     &orderID,
		OrderItemID: &itemID,
	}
}

// Validate checks that the references match the kind
func (s LotSource) Validate() error {
	switch s.Kind {
	case LotSourceManual:
		if s.OrderID != nil || s.OrderItemID != nil {
			return shared.NewDomainError("INVALID_LOT_SOURCE", "Manual lots cannot reference a supplier order")
		}
	case LotSourceSupplierOrderItem:
		if s.OrderID == nil || s.OrderItemID == nil || *s.OrderID == uuid.Nil || *s.OrderItemID == uuid.Nil {
			return shared.NewDomainError("INVALID_LOT_SOURCE", "Supplier order lots must reference an order and an item")
		}
	default:
		return shared.NewDomainError("INVALID_LOT_SOURCE", fmt.Sprintf("Unknown lot source %q", s.Kind))
	}
	return nil
}

// IsFromOrder reports whether the lot was produced by receiving orderID
func (s LotSource) IsFromOrder(orderID uuid.UUID) bool {
	return s.Kind == LotSourceSupplierOrderItem && s.OrderID != nil && *s.OrderID == orderID
}

// InventoryLot is a quantity of one SKU acquired at one unit cost.
// It is the unit of FIFO consumption.
//
// Invariants:
//   - 0 <= QuantityRemaining <= QuantityOriginal
//   - QuantityOriginal > 0
//   - UnitCost >= 0
type InventoryLot struct {
	shared.TenantAggregateRoot
	SKU               string
	QuantityOriginal  decimal.Decimal
	QuantityRemaining decimal.Decimal
	UnitCost          decimal.Decimal
	Source            LotSource
}

// NewInventoryLot creates a new, untouched lot
func NewInventoryLot(tenantID uuid.UUID, sku string, quantity, unitCost decimal.Decimal, source LotSource, now time.Time) (*InventoryLot, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	sku = NormalizeSKU(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if err := valueobject.ValidatePositiveQuantity(quantity); err != nil {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Lot quantity must be positive: "+err.Error())
	}
	if err := valueobject.ValidateAmount(unitCost); err != nil {
		return nil, shared.NewDomainError("INVALID_COST", "Invalid unit cost: "+err.Error())
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}

	lot := &InventoryLot{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		SKU:                 sku,
		QuantityOriginal:    quantity,
		QuantityRemaining:   quantity,
		UnitCost:            unitCost,
		Source:              source,
	}
	lot.AddDomainEvent(NewLotCreatedEvent(lot))
	return lot, nil
}

// NormalizeSKU trims surrounding whitespace from a SKU reference.
// SKU references are otherwise opaque.
func NormalizeSKU(sku string) string {
	return strings.TrimSpace(sku)
}

// Consume decrements the remaining quantity
func (l *InventoryLot) Consume(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Consumed quantity must be positive")
	}
	if amount.GreaterThan(l.QuantityRemaining) {
		return shared.NewDomainError(shared.CodeInsufficientLotQuantity,
			fmt.Sprintf("Lot %s has %s remaining, cannot consume %s", l.ID, l.QuantityRemaining, amount)).
			WithDetails(map[string]interface{}{
				"lot_id":    l.ID.String(),
				"remaining": l.QuantityRemaining.String(),
				"requested": amount.String(),
			})
	}
	l.QuantityRemaining = l.QuantityRemaining.Sub(amount)
	l.Touch(now)
	l.IncrementVersion()
	return nil
}

// ConsumedQuantity returns how much of the lot has ever been consumed
func (l *InventoryLot) ConsumedQuantity() decimal.Decimal {
	return l.QuantityOriginal.Sub(l.QuantityRemaining)
}

// IsUntouched reports whether no quantity has ever been consumed
func (l *InventoryLot) IsUntouched() bool {
	return l.QuantityRemaining.Equal(l.QuantityOriginal)
}

// IsExhausted reports whether nothing remains
func (l *InventoryLot) IsExhausted() bool {
	return l.QuantityRemaining.IsZero()
}

// EnsureReleasable fails when any consumption has happened.
// Partial re-credit is not supported, so a touched lot can never be released.
func (l *InventoryLot) EnsureReleasable() error {
	if !l.IsUntouched() {
		return shared.NewDomainError(shared.CodeLotPartiallyConsumed,
			fmt.Sprintf("Lot %s has been partially consumed", l.ID)).
			WithDetails(map[string]interface{}{
				"lot_id":   l.ID.String(),
				"consumed": l.ConsumedQuantity().String(),
			})
	}
	return nil
}

// RemainingValue returns QuantityRemaining * UnitCost
func (l *InventoryLot) RemainingValue() decimal.Decimal {
	return valueobject.LineAmount(l.QuantityRemaining, l.UnitCost).Amount()
}

// SortFIFO orders lots by creation time, oldest first, breaking ties by ID.
// This ordering is the FIFO contract.
func SortFIFO(lots []InventoryLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		return fifoLess(&lots[i], &lots[j])
	})
}

func fifoLess(a, b *InventoryLot) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// TotalValue sums the remaining value over lots
func TotalValue(lots []InventoryLot) decimal.Decimal {
	total := decimal.Zero
	for i := range lots {
		total = total.Add(lots[i].RemainingValue())
	}
	return total
}
