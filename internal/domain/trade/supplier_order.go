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

// SupplierOrderStatus represents the status of a supplier order
type SupplierOrderStatus string

const (
	SupplierOrderStatusDraft    SupplierOrderStatus = "draft"
	SupplierOrderStatusReceived SupplierOrderStatus = "received"
)

// IsValid checks if the status is a valid SupplierOrderStatus
func (s SupplierOrderStatus) IsValid() bool {
	switch s {
	case SupplierOrderStatusDraft, SupplierOrderStatusReceived:
		return true
	}
	return false
}

// String returns the string representation of SupplierOrderStatus
func (s SupplierOrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Neither state is terminal: received orders can be unreceived back to draft.
func (s SupplierOrderStatus) CanTransitionTo(target SupplierOrderStatus) bool {
	switch s {
	case SupplierOrderStatusDraft:
		return target == SupplierOrderStatusReceived
	case SupplierOrderStatusReceived:
		return target == SupplierOrderStatusDraft
	}
	return false
}

// SupplierOrderItem is a line of a supplier order.
// Receiving the order creates exactly one lot per item.
type SupplierOrderItem struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	LineNo   int
	SKU      string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// Amount returns Quantity * UnitCost
func (i SupplierOrderItem) Amount() decimal.Decimal {
	return valueobject.LineAmount(i.Quantity, i.UnitCost).Amount()
}

// SupplierOrderItemInput describes an item to place on an order
type SupplierOrderItemInput struct {
	SKU      string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

func newSupplierOrderItem(orderID uuid.UUID, lineNo int, in SupplierOrderItemInput) (SupplierOrderItem, error) {
	sku := ledger.NormalizeSKU(in.SKU)
	if sku == "" {
		return SupplierOrderItem{}, shared.NewDomainError("INVALID_SKU", fmt.Sprintf("Item %d: SKU cannot be empty", lineNo))
	}
	if err := valueobject.ValidatePositiveQuantity(in.Quantity); err != nil {
		return SupplierOrderItem{}, shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Item %d: %s", lineNo, err))
	}
	if err := valueobject.ValidateAmount(in.UnitCost); err != nil {
		return SupplierOrderItem{}, shared.NewDomainError("INVALID_COST", fmt.Sprintf("Item %d: unit cost: %s", lineNo, err))
	}
	return SupplierOrderItem{
		ID:       uuid.New(),
		OrderID:  orderID,
		LineNo:   lineNo,
		SKU:      sku,
		Quantity: in.Quantity,
		UnitCost: in.UnitCost,
	}, nil
}

// SupplierOrder is the aggregate root for a purchase from a supplier.
// Its status drives lot creation (receive) and reversal (unreceive).
type SupplierOrder struct {
	shared.TenantAggregateRoot
	SupplierName string
	Status       SupplierOrderStatus
	Currency     string
	OrderDate    time.Time
	Items        []SupplierOrderItem
	ReceivedAt   *time.Time
}

// NewSupplierOrder creates a draft order
func NewSupplierOrder(tenantID uuid.UUID, supplierName, currency string, orderDate time.Time, items []SupplierOrderItemInput, now time.Time) (*SupplierOrder, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	if orderDate.IsZero() {
		orderDate = now
	}

	order := &SupplierOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, now),
		Status:              SupplierOrderStatusDraft,
		Currency:            currency,
		OrderDate:           orderDate,
	}
	if err := order.setContents(supplierName, items); err != nil {
		return nil, err
	}

	order.AddDomainEvent(NewSupplierOrderCreatedEvent(order))
	return order, nil
}

func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return "", shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO 4217 code")
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO 4217 code")
		}
	}
	return currency, nil
}

func (o *SupplierOrder) setContents(supplierName string, inputs []SupplierOrderItemInput) error {
	supplierName = strings.TrimSpace(supplierName)
	if supplierName == "" {
		return shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	if len(supplierName) > 200 {
		return shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot exceed 200 characters")
	}

	items := make([]SupplierOrderItem, 0, len(inputs))
	for idx, in := range inputs {
		item, err := newSupplierOrderItem(o.ID, idx+1, in)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	o.SupplierName = supplierName
	o.Items = items
	return nil
}

// Update replaces the supplier name and items.
// Only draft orders can be updated; a received order must be unreceived first.
func (o *SupplierOrder) Update(supplierName string, items []SupplierOrderItemInput, now time.Time) error {
	if o.Status != SupplierOrderStatusDraft {
		return o.invalidState("update")
	}
	if err := o.setContents(supplierName, items); err != nil {
		return err
	}
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewSupplierOrderUpdatedEvent(o))
	return nil
}

// Receive transitions draft -> received.
// Receiving an already received order is rejected, not ignored.
func (o *SupplierOrder) Receive(now time.Time) error {
	if !o.Status.CanTransitionTo(SupplierOrderStatusReceived) {
		return o.invalidState("receive")
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot receive an order without items")
	}

	o.Status = SupplierOrderStatusReceived
	o.ReceivedAt = &now
	o.Touch(now)
	o.IncrementVersion()
	return nil
}

// RecordReceipt raises the received event once the lots exist
func (o *SupplierOrder) RecordReceipt(lotIDs []uuid.UUID) {
	o.AddDomainEvent(NewSupplierOrderReceivedEvent(o, lotIDs))
}

// Unreceive transitions received -> draft.
// The caller must have released every lot produced by this order in the same transaction.
func (o *SupplierOrder) Unreceive(now time.Time, releasedLotIDs []uuid.UUID) error {
	if !o.Status.CanTransitionTo(SupplierOrderStatusDraft) {
		return o.invalidState("unreceive")
	}

	o.Status = SupplierOrderStatusDraft
	o.ReceivedAt = nil
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewSupplierOrderUnreceivedEvent(o, releasedLotIDs, now))
	return nil
}

// Delete checks the order may be removed and raises the deleted event.
// Deleting a received order would orphan its lots, so only drafts may be deleted.
func (o *SupplierOrder) Delete(now time.Time) error {
	if o.Status != SupplierOrderStatusDraft {
		return o.invalidState("delete")
	}
	o.AddDomainEvent(NewSupplierOrderDeletedEvent(o, now))
	return nil
}

func (o *SupplierOrder) invalidState(action string) error {
	return shared.NewDomainError(shared.CodeInvalidOrderState,
		fmt.Sprintf("Cannot %s order in %s status", action, o.Status)).
		WithDetails(map[string]interface{}{
			"order_id": o.ID.String(),
			"status":   o.Status.String(),
			"action":   action,
		})
}

// PurchaseAmount returns sum(quantity * unit_cost) over items
func (o *SupplierOrder) PurchaseAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// TotalQuantity returns the summed item quantity
func (o *SupplierOrder) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Quantity)
	}
	return total
}

// ItemCount returns the number of items
func (o *SupplierOrder) ItemCount() int {
	return len(o.Items)
}

// IsDraft returns true if the order is a draft
func (o *SupplierOrder) IsDraft() bool {
	return o.Status == SupplierOrderStatusDraft
}

// IsReceived returns true if the order has been received
func (o *SupplierOrder) IsReceived() bool {
	return o.Status == SupplierOrderStatusReceived
}
