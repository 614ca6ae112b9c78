package trade

import (
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSupplierOrder = "SupplierOrder"

// Event type constants
const (
	EventTypeSupplierOrderCreated    = "SupplierOrderCreated"
	EventTypeSupplierOrderUpdated    = "SupplierOrderUpdated"
	EventTypeSupplierOrderReceived   = "SupplierOrderReceived"
	EventTypeSupplierOrderUnreceived = "SupplierOrderUnreceived"
	EventTypeSupplierOrderDeleted    = "SupplierOrderDeleted"
)

// SupplierOrderCreatedEvent is raised when a draft order is created
type SupplierOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	SupplierName string    `json:"supplier_name"`
	ItemCount    int       `json:"item_count"`
}

// NewSupplierOrderCreatedEvent creates a new SupplierOrderCreatedEvent
func NewSupplierOrderCreatedEvent(order *SupplierOrder) *SupplierOrderCreatedEvent {
	return &SupplierOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderCreated, AggregateTypeSupplierOrder, order.ID, order.TenantID, order.CreatedAt),
		OrderID:         order.ID,
		SupplierName:    order.SupplierName,
		ItemCount:       len(order.Items),
	}
}

// SupplierOrderUpdatedEvent is raised when a draft order's contents change
type SupplierOrderUpdatedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	SupplierName string    `json:"supplier_name"`
	ItemCount    int       `json:"item_count"`
}

// NewSupplierOrderUpdatedEvent creates a new SupplierOrderUpdatedEvent
func NewSupplierOrderUpdatedEvent(order *SupplierOrder) *SupplierOrderUpdatedEvent {
	return &SupplierOrderUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderUpdated, AggregateTypeSupplierOrder, order.ID, order.TenantID, order.UpdatedAt),
		OrderID:         order.ID,
		SupplierName:    order.SupplierName,
		ItemCount:       len(order.Items),
	}
}

// SupplierOrderReceivedEvent is raised after receipt created the order's lots
type SupplierOrderReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	LotIDs         []uuid.UUID     `json:"lot_ids"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	Currency       string          `json:"currency"`
}

// NewSupplierOrderReceivedEvent creates a new SupplierOrderReceivedEvent
func NewSupplierOrderReceivedEvent(order *SupplierOrder, lotIDs []uuid.UUID) *SupplierOrderReceivedEvent {
	return &SupplierOrderReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderReceived, AggregateTypeSupplierOrder, order.ID, order.TenantID, order.UpdatedAt),
		OrderID:         order.ID,
		LotIDs:          lotIDs,
		PurchaseAmount:  order.PurchaseAmount(),
		Currency:        order.Currency,
	}
}

// SupplierOrderUnreceivedEvent is raised after a receipt was reversed
type SupplierOrderUnreceivedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID   `json:"order_id"`
	ReleasedLotIDs []uuid.UUID `json:"released_lot_ids"`
}

// NewSupplierOrderUnreceivedEvent creates a new SupplierOrderUnreceivedEvent
func NewSupplierOrderUnreceivedEvent(order *SupplierOrder, releasedLotIDs []uuid.UUID, at time.Time) *SupplierOrderUnreceivedEvent {
	return &SupplierOrderUnreceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderUnreceived, AggregateTypeSupplierOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		ReleasedLotIDs:  releasedLotIDs,
	}
}

// SupplierOrderDeletedEvent is raised when a draft order is removed
type SupplierOrderDeletedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewSupplierOrderDeletedEvent creates a new SupplierOrderDeletedEvent
func NewSupplierOrderDeletedEvent(order *SupplierOrder, at time.Time) *SupplierOrderDeletedEvent {
	return &SupplierOrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierOrderDeleted, AggregateTypeSupplierOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
	}
}
