package trade

import (
	"time"

	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Supplier Order DTOs ====================

// SupplierOrderItemInput represents an item in a create or update request
type SupplierOrderItemInput struct {
	SKU      string          `json:"sku" validate:"required,max=100"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitCost decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

// CreateSupplierOrderRequest represents a request to create a draft supplier order
type CreateSupplierOrderRequest struct {
	SupplierName string                   `json:"supplier_name" validate:"required,max=200"`
	Currency     string                   `json:"currency" validate:"required,len=3,alpha"`
	OrderDate    *time.Time               `json:"order_date,omitempty"`
	Items        []SupplierOrderItemInput `json:"items" validate:"omitempty,max=500,dive"`
}

// UpdateSupplierOrderRequest replaces the supplier name and items of a draft order
type UpdateSupplierOrderRequest struct {
	SupplierName string                   `json:"supplier_name" validate:"required,max=200"`
	Items        []SupplierOrderItemInput `json:"items" validate:"omitempty,max=500,dive"`
}

// SupplierOrderListFilter represents filter options for supplier order list
type SupplierOrderListFilter struct {
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=draft received"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"page_size" validate:"gte=0,max=100"`
}

// SupplierOrderItemResponse represents an order item in responses
type SupplierOrderItemResponse struct {
	ID       uuid.UUID       `json:"id"`
	LineNo   int             `json:"line_no"`
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Amount   decimal.Decimal `json:"amount"`
}

// SupplierOrderResponse represents a supplier order in responses
type SupplierOrderResponse struct {
	ID             uuid.UUID                   `json:"id"`
	TenantID       uuid.UUID                   `json:"tenant_id"`
	SupplierName   string                      `json:"supplier_name"`
	Status         string                      `json:"status"`
	Currency       string                      `json:"currency"`
	OrderDate      time.Time                   `json:"order_date"`
	Items          []SupplierOrderItemResponse `json:"items"`
	ItemCount      int                         `json:"item_count"`
	TotalQuantity  decimal.Decimal             `json:"total_quantity"`
	PurchaseAmount decimal.Decimal             `json:"purchase_amount"`
	ReceivedAt     *time.Time                  `json:"received_at,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	Version        int                         `json:"version"`
}

// ReceiveResultResponse is returned by a successful receipt
type ReceiveResultResponse struct {
	Order          SupplierOrderResponse `json:"order"`
	LotsCreated    int                   `json:"lots_created"`
	LotIDs         []uuid.UUID           `json:"lot_ids"`
	PurchaseAmount decimal.Decimal       `json:"purchase_amount"`
}

// UnreceiveResultResponse is returned by a successful reversal
type UnreceiveResultResponse struct {
	Order          SupplierOrderResponse `json:"order"`
	Unreceived     bool                  `json:"unreceived"`
	ReleasedLotIDs []uuid.UUID           `json:"released_lot_ids"`
}

// SupplierOrderListResponse is one page of orders
type SupplierOrderListResponse struct {
	Orders []SupplierOrderResponse `json:"orders"`
	Total  int64                   `json:"total"`
	Page   int                     `json:"page"`
}

// ToSupplierOrderResponse converts a domain SupplierOrder to SupplierOrderResponse
func ToSupplierOrderResponse(order *trade.SupplierOrder) SupplierOrderResponse {
	items := make([]SupplierOrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = SupplierOrderItemResponse{
			ID:       item.ID,
			LineNo:   item.LineNo,
			SKU:      item.SKU,
			Quantity: item.Quantity,
			UnitCost: item.UnitCost,
			Amount:   item.Amount(),
		}
	}
	return SupplierOrderResponse{
		ID:             order.ID,
		TenantID:       order.TenantID,
		SupplierName:   order.SupplierName,
		Status:         order.Status.String(),
		Currency:       order.Currency,
		OrderDate:      order.OrderDate,
		Items:          items,
		ItemCount:      order.ItemCount(),
		TotalQuantity:  order.TotalQuantity(),
		PurchaseAmount: order.PurchaseAmount(),
		ReceivedAt:     order.ReceivedAt,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
		Version:        order.Version,
	}
}

func toItemInputs(items []SupplierOrderItemInput) []trade.SupplierOrderItemInput {
	out := make([]trade.SupplierOrderItemInput, len(items))
	for i, item := range items {
		out[i] = trade.SupplierOrderItemInput{SKU: item.SKU, Quantity: item.Quantity, UnitCost: item.UnitCost}
	}
	return out
}

// ==================== Sale DTOs ====================

// SaleItemInput is one SKU line of an incoming sale
type SaleItemInput struct {
	SKU           string          `json:"sku" validate:"required,max=100"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitSalePrice decimal.Decimal `json:"unit_sale_price" validate:"gte=0"`
	Fee           decimal.Decimal `json:"fee" validate:"gte=0"`
}

// RecordSaleRequest is an incoming marketplace sale
type RecordSaleRequest struct {
	Marketplace     string          `json:"marketplace" validate:"required,max=50"`
	ExternalOrderID *string         `json:"external_order_id,omitempty" validate:"omitempty,max=200"`
	SaleDate        *time.Time      `json:"sale_date,omitempty"`
	Items           []SaleItemInput `json:"items" validate:"required,min=1,max=500,dive"`
}

// SaleAllocationResponse shows which lot funded part of an item
type SaleAllocationResponse struct {
	LotID    uuid.UUID       `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Cost     decimal.Decimal `json:"cost"`
}

// SaleItemResponse represents a sale item in responses
type SaleItemResponse struct {
	ID            uuid.UUID                `json:"id"`
	LineNo        int                      `json:"line_no"`
	SKU           string                   `json:"sku"`
	Quantity      decimal.Decimal          `json:"quantity"`
	UnitSalePrice decimal.Decimal          `json:"unit_sale_price"`
	Fee           decimal.Decimal          `json:"fee"`
	Revenue       decimal.Decimal          `json:"revenue"`
	Cost          decimal.Decimal          `json:"cost"`
	Margin        decimal.Decimal          `json:"margin"`
	Allocations   []SaleAllocationResponse `json:"allocations"`
}

// SaleResponse represents a recorded sale.
// Existing is true when the sale was recorded by an earlier submission.
type SaleResponse struct {
	ID              uuid.UUID          `json:"id"`
	TenantID        uuid.UUID          `json:"tenant_id"`
	Marketplace     string             `json:"marketplace"`
	ExternalOrderID *string            `json:"external_order_id,omitempty"`
	SaleDate        time.Time          `json:"sale_date"`
	Items           []SaleItemResponse `json:"items"`
	Revenue         decimal.Decimal    `json:"revenue"`
	Fees            decimal.Decimal    `json:"fees"`
	Cost            decimal.Decimal    `json:"cost"`
	Margin          decimal.Decimal    `json:"margin"`
	CreatedAt       time.Time          `json:"created_at"`
	Existing        bool               `json:"existing"`
}

// ToSaleResponse converts a domain Sale to SaleResponse
func ToSaleResponse(sale *trade.Sale, existing bool) *SaleResponse {
	items := make([]SaleItemResponse, len(sale.Items))
	for i, item := range sale.Items {
		allocations := make([]SaleAllocationResponse, len(item.Allocations))
		for j, a := range item.Allocations {
			allocations[j] = SaleAllocationResponse{
				LotID:    a.LotID,
				Quantity: a.Quantity,
				UnitCost: a.UnitCost,
				Cost:     a.Cost(),
			}
		}
		items[i] = SaleItemResponse{
			ID:            item.ID,
			LineNo:        item.LineNo,
			SKU:           item.SKU,
			Quantity:      item.Quantity,
			UnitSalePrice: item.UnitSalePrice,
			Fee:           item.Fee,
			Revenue:       item.Revenue(),
			Cost:          item.Cost(),
			Margin:        item.Margin(),
			Allocations:   allocations,
		}
	}
	return &SaleResponse{
		ID:              sale.ID,
		TenantID:        sale.TenantID,
		Marketplace:     sale.Marketplace,
		ExternalOrderID: sale.ExternalOrderID,
		SaleDate:        sale.SaleDate,
		Items:           items,
		Revenue:         sale.Revenue(),
		Fees:            sale.Fees(),
		Cost:            sale.Cost(),
		Margin:          sale.Margin(),
		CreatedAt:       sale.CreatedAt,
		Existing:        existing,
	}
}
