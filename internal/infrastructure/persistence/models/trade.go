package models

import (
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierOrderModel is the persistence model for the SupplierOrder aggregate root.
type SupplierOrderModel struct {
	TenantAggregateModel
	SupplierName string                   `gorm:"type:varchar(200);not null"`
	Status       string                   `gorm:"type:varchar(20);not null;default:'draft';index"`
	Currency     string                   `gorm:"type:varchar(3);not null"`
	OrderDate    time.Time                `gorm:"type:date;not null;index"`
	ReceivedAt   *time.Time               `gorm:"index"`
	Items        []SupplierOrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (SupplierOrderModel) TableName() string {
	return "supplier_orders"
}

// ToDomain converts the persistence model to a domain SupplierOrder.
func (m *SupplierOrderModel) ToDomain() *trade.SupplierOrder {
	order := &trade.SupplierOrder{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		SupplierName:        m.SupplierName,
		Status:              trade.SupplierOrderStatus(m.Status),
		Currency:            m.Currency,
		OrderDate:           m.OrderDate.UTC(),
		ReceivedAt:          m.ReceivedAt,
		Items:               make([]trade.SupplierOrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = item.ToDomain()
	}
	return order
}

// SupplierOrderModelFromDomain creates a persistence model from a domain order, items included.
func SupplierOrderModelFromDomain(o *trade.SupplierOrder) *SupplierOrderModel {
	m := &SupplierOrderModel{
		SupplierName: o.SupplierName,
		Status:       o.Status.String(),
		Currency:     o.Currency,
		OrderDate:    o.OrderDate,
		ReceivedAt:   o.ReceivedAt,
		Items:        make([]SupplierOrderItemModel, len(o.Items)),
	}
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	for i := range o.Items {
		m.Items[i] = SupplierOrderItemModelFromDomain(o.ID, &o.Items[i])
	}
	return m
}

// SupplierOrderItemModel is the persistence model for a supplier order line.
type SupplierOrderItemModel struct {
	ID       uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo   int             `gorm:"not null"`
	SKU      string          `gorm:"column:sku;type:varchar(100);not null"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SupplierOrderItemModel) TableName() string {
	return "supplier_order_items"
}

// ToDomain converts the persistence model to a domain item.
func (m SupplierOrderItemModel) ToDomain() trade.SupplierOrderItem {
	return trade.SupplierOrderItem{
		ID:       m.ID,
		OrderID:  m.OrderID,
		LineNo:   m.LineNo,
		SKU:      m.SKU,
		Quantity: m.Quantity,
		UnitCost: m.UnitCost,
	}
}

// SupplierOrderItemModelFromDomain maps an item onto orderID.
func SupplierOrderItemModelFromDomain(orderID uuid.UUID, i *trade.SupplierOrderItem) SupplierOrderItemModel {
	return SupplierOrderItemModel{
		ID:       i.ID,
		OrderID:  orderID,
		LineNo:   i.LineNo,
		SKU:      i.SKU,
		Quantity: i.Quantity,
		UnitCost: i.UnitCost,
	}
}

// SaleModel is the persistence model for the Sale aggregate root.
// (tenant_id, marketplace, external_order_id) is unique; NULL external ids never collide.
type SaleModel struct {
	BaseModel
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sales_external_ref,priority:1"`
	Version         int             `gorm:"not null;default:1"`
	Marketplace     string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_external_ref,priority:2"`
	ExternalOrderID *string         `gorm:"type:varchar(100);uniqueIndex:idx_sales_external_ref,priority:3"`
	SaleDate        time.Time       `gorm:"type:date;not null;index"`
	Items           []SaleItemModel `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale.
func (m *SaleModel) ToDomain() *trade.Sale {
	s := &trade.Sale{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID: m.TenantID,
		},
		Marketplace:     m.Marketplace,
		ExternalOrderID: m.ExternalOrderID,
		SaleDate:        m.SaleDate.UTC(),
		Items:           make([]trade.SaleItem, len(m.Items)),
	}
	for i := range m.Items {
		s.Items[i] = m.Items[i].ToDomain()
	}
	return s
}

// SaleModelFromDomain creates a persistence model from a domain sale with items and allocations.
func SaleModelFromDomain(s *trade.Sale) *SaleModel {
	m := &SaleModel{
		BaseModel: BaseModel{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
		TenantID:        s.TenantID,
		Version:         s.Version,
		Marketplace:     s.Marketplace,
		ExternalOrderID: s.ExternalOrderID,
		SaleDate:        s.SaleDate,
		Items:           make([]SaleItemModel, len(s.Items)),
	}
	for i := range s.Items {
		m.Items[i] = SaleItemModelFromDomain(s.ID, &s.Items[i])
	}
	return m
}

// SaleItemModel is the persistence model for a sale line.
type SaleItemModel struct {
	ID            uuid.UUID             `gorm:"type:uuid;primary_key"`
	SaleID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	LineNo        int                   `gorm:"not null"`
	SKU           string                `gorm:"column:sku;type:varchar(100);not null;index"`
	Quantity      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	UnitSalePrice decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Fee           decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Allocations   []SaleAllocationModel `gorm:"foreignKey:SaleItemID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleItemModel) TableName() string {
	return "sale_items"
}

// ToDomain converts the persistence model to a domain item.
func (m *SaleItemModel) ToDomain() trade.SaleItem {
	item := trade.SaleItem{
		ID:            m.ID,
		SaleID:        m.SaleID,
		LineNo:        m.LineNo,
		SKU:           m.SKU,
		Quantity:      m.Quantity,
		UnitSalePrice: m.UnitSalePrice,
		Fee:           m.Fee,
		Allocations:   make([]trade.SaleAllocation, len(m.Allocations)),
	}
	for i, a := range m.Allocations {
		item.Allocations[i] = trade.SaleAllocation{
			ID:         a.ID,
			SaleItemID: a.SaleItemID,
			LotID:      a.LotID,
			Quantity:   a.Quantity,
			UnitCost:   a.UnitCost,
		}
	}
	return item
}

// SaleItemModelFromDomain maps an item and its allocations onto saleID.
func SaleItemModelFromDomain(saleID uuid.UUID, i *trade.SaleItem) SaleItemModel {
	m := SaleItemModel{
		ID:            i.ID,
		SaleID:        saleID,
		LineNo:        i.LineNo,
		SKU:           i.SKU,
		Quantity:      i.Quantity,
		UnitSalePrice: i.UnitSalePrice,
		Fee:           i.Fee,
		Allocations:   make([]SaleAllocationModel, len(i.Allocations)),
	}
	for j, a := range i.Allocations {
		m.Allocations[j] = SaleAllocationModel{
			ID:         a.ID,
			SaleItemID: i.ID,
			LotID:      a.LotID,
			Quantity:   a.Quantity,
			UnitCost:   a.UnitCost,
		}
	}
	return m
}

// SaleAllocationModel is the persistence model for the cost-of-goods audit trail.
type SaleAllocationModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	SaleItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SaleAllocationModel) TableName() string {
	return "sale_allocations"
}
