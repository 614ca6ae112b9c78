package models

import (
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryLotModel is the persistence model for the InventoryLot aggregate root.
type InventoryLotModel struct {
	TenantAggregateModel
	SKU               string          `gorm:"column:sku;type:varchar(100);not null;index:idx_inventory_lots_sku"`
	QuantityOriginal  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityRemaining decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SourceKind        string          `gorm:"type:varchar(30);not null"`
	SourceOrderID     *uuid.UUID      `gorm:"type:uuid;index"`
	SourceOrderItemID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (InventoryLotModel) TableName() string {
	return "inventory_lots"
}

// ToDomain converts the persistence model to a domain InventoryLot.
func (m *InventoryLotModel) ToDomain() *ledger.InventoryLot {
	return &ledger.InventoryLot{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		SKU:                 m.SKU,
		QuantityOriginal:    m.QuantityOriginal,
		QuantityRemaining:   m.QuantityRemaining,
		UnitCost:            m.UnitCost,
		Source: ledger.LotSource{
			Kind:        ledger.LotSourceKind(m.SourceKind),
			OrderID:     m.SourceOrderID,
			OrderItemID: m.SourceOrderItemID,
		},
	}
}

// InventoryLotModelFromDomain creates a persistence model from a domain lot.
func InventoryLotModelFromDomain(l *ledger.InventoryLot) *InventoryLotModel {
	m := &InventoryLotModel{
		SKU:               l.SKU,
		QuantityOriginal:  l.QuantityOriginal,
		QuantityRemaining: l.QuantityRemaining,
		UnitCost:          l.UnitCost,
		SourceKind:        l.Source.Kind.String(),
		SourceOrderID:     l.Source.OrderID,
		SourceOrderItemID: l.Source.OrderItemID,
	}
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	return m
}

// InventoryLotsToDomain converts a slice of models preserving order.
func InventoryLotsToDomain(ms []InventoryLotModel) []ledger.InventoryLot {
	lots := make([]ledger.InventoryLot, len(ms))
	for i := range ms {
		lots[i] = *ms[i].ToDomain()
	}
	return lots
}
