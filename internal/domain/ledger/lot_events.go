package ledger

import (
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeInventoryLot is the aggregate type for lot events
const AggregateTypeInventoryLot = "InventoryLot"

// Event type constants
const (
	EventTypeLotCreated  = "LotCreated"
	EventTypeLotReleased = "LotReleased"
)

// LotCreatedEvent is raised when a lot enters the ledger
type LotCreatedEvent struct {
	shared.BaseDomainEvent
	LotID       uuid.UUID       `json:"lot_id"`
	SKU         string          `json:"sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	SourceKind  LotSourceKind   `json:"source_kind"`
	OrderID     *uuid.UUID      `json:"order_id,omitempty"`
	OrderItemID *uuid.UUID      `json:"order_item_id,omitempty"`
}

// NewLotCreatedEvent creates a new LotCreatedEvent
func NewLotCreatedEvent(lot *InventoryLot) *LotCreatedEvent {
	return &LotCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLotCreated, AggregateTypeInventoryLot, lot.ID, lot.TenantID, lot.CreatedAt),
		LotID:           lot.ID,
		SKU:             lot.SKU,
		Quantity:        lot.QuantityOriginal,
		UnitCost:        lot.UnitCost,
		SourceKind:      lot.Source.Kind,
		OrderID:         lot.Source.OrderID,
		OrderItemID:     lot.Source.OrderItemID,
	}
}

// LotReleasedEvent is raised when an untouched lot is deleted by a reversal
type LotReleasedEvent struct {
	shared.BaseDomainEvent
	LotID    uuid.UUID       `json:"lot_id"`
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
}

// NewLotReleasedEvent creates a new LotReleasedEvent
func NewLotReleasedEvent(lot *InventoryLot, at time.Time) *LotReleasedEvent {
	return &LotReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLotReleased, AggregateTypeInventoryLot, lot.ID, lot.TenantID, at),
		LotID:           lot.ID,
		SKU:             lot.SKU,
		Quantity:        lot.QuantityOriginal,
	}
}
