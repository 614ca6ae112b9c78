package trade

import (
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSale = "Sale"

// Event type constants
const (
	EventTypeSaleRecorded = "SaleRecorded"
)

// SaleRecordedItemInfo summarises a sale line for events
type SaleRecordedItemInfo struct {
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
	Fee      decimal.Decimal `json:"fee"`
	Cost     decimal.Decimal `json:"cost"`
	LotCount int             `json:"lot_count"`
}

// SaleRecordedEvent is raised when a new sale consumed lots
type SaleRecordedEvent struct {
	shared.BaseDomainEvent
	SaleID          uuid.UUID              `json:"sale_id"`
	Marketplace     string                 `json:"marketplace"`
	ExternalOrderID *string                `json:"external_order_id,omitempty"`
	Items           []SaleRecordedItemInfo `json:"items"`
	Revenue         decimal.Decimal        `json:"revenue"`
	Cost            decimal.Decimal        `json:"cost"`
	Margin          decimal.Decimal        `json:"margin"`
}

// NewSaleRecordedEvent creates a new SaleRecordedEvent
func NewSaleRecordedEvent(sale *Sale) *SaleRecordedEvent {
	items := make([]SaleRecordedItemInfo, len(sale.Items))
	for i, item := range sale.Items {
		items[i] = SaleRecordedItemInfo{
			SKU:      item.SKU,
			Quantity: item.Quantity,
			Revenue:  item.Revenue(),
			Fee:      item.Fee,
			Cost:     item.Cost(),
			LotCount: len(item.Allocations),
		}
	}
	return &SaleRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleRecorded, AggregateTypeSale, sale.ID, sale.TenantID, sale.CreatedAt),
		SaleID:          sale.ID,
		Marketplace:     sale.Marketplace,
		ExternalOrderID: sale.ExternalOrderID,
		Items:           items,
		Revenue:         sale.Revenue(),
		Cost:            sale.Cost(),
		Margin:          sale.Margin(),
	}
}
