package inventory

import (
	"time"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitialBalanceItem is one opening stock line
type InitialBalanceItem struct {
	SKU      string          `json:"sku" validate:"required,max=100"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitCost decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

// InitialBalanceRequest creates manual lots for opening stock
type InitialBalanceRequest struct {
	Items []InitialBalanceItem `json:"items" validate:"required,min=1,max=500,dive"`
}

// InitialBalanceResponse reports the lots created
type InitialBalanceResponse struct {
	LotsCreated    int             `json:"lots_created"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	ItemsCount     int             `json:"items_count"`
	Lots           []LotResponse   `json:"lots"`
}

// ListInventoryRequest filters the inventory overview
type ListInventoryRequest struct {
	SKU           string `json:"sku,omitempty" validate:"max=100"`
	OnlyAvailable bool   `json:"only_available,omitempty"`
}

// InventoryResponse is the inventory overview
type InventoryResponse struct {
	Summary         []report.InventorySummaryRow `json:"summary"`
	Lots            []LotResponse                `json:"lots"`
	TotalStockValue decimal.Decimal              `json:"total_stock_value"`
}

// LotResponse represents a lot in responses
type LotResponse struct {
	ID                uuid.UUID       `json:"id"`
	SKU               string          `json:"sku"`
	QuantityOriginal  decimal.Decimal `json:"quantity_original"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	RemainingValue    decimal.Decimal `json:"remaining_value"`
	Source            string          `json:"source"`
	SourceOrderID     *uuid.UUID      `json:"source_order_id,omitempty"`
	SourceOrderItemID *uuid.UUID      `json:"source_order_item_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	Version           int             `json:"version"`
}

// ToLotResponse converts a domain lot to a response
func ToLotResponse(lot *ledger.InventoryLot) LotResponse {
	return LotResponse{
		ID:                lot.ID,
		SKU:               lot.SKU,
		QuantityOriginal:  lot.QuantityOriginal,
		QuantityRemaining: lot.QuantityRemaining,
		UnitCost:          lot.UnitCost,
		RemainingValue:    lot.RemainingValue(),
		Source:            lot.Source.Kind.String(),
		SourceOrderID:     lot.Source.OrderID,
		SourceOrderItemID: lot.Source.OrderItemID,
		CreatedAt:         lot.CreatedAt,
		Version:           lot.Version,
	}
}

// ToLotResponses converts lots to responses
func ToLotResponses(lots []ledger.InventoryLot) []LotResponse {
	out := make([]LotResponse, len(lots))
	for i := range lots {
		out[i] = ToLotResponse(&lots[i])
	}
	return out
}
