// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInventoryValueProvider implements InventoryValueProvider using GORM.
// It reads the inventory_lots table directly.
type GormInventoryValueProvider struct {
	db *gorm.DB
}

// NewGormInventoryValueProvider creates a new GormInventoryValueProvider.
func NewGormInventoryValueProvider(db *gorm.DB) *GormInventoryValueProvider {
	return &GormInventoryValueProvider{db: db}
}

// TenantsWithStock returns tenants owning at least one lot with stock left.
func (p *GormInventoryValueProvider) TenantsWithStock(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("inventory_lots").
		Where("quantity_remaining > 0").
		Distinct().
		Pluck("tenant_id", &ids).Error
	return ids, err
}

// StockValue sums remaining * unit_cost in Go so no precision is lost to the driver.
func (p *GormInventoryValueProvider) StockValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	type row struct {
		QuantityRemaining decimal.Decimal
		UnitCost          decimal.Decimal
	}
	var rows []row
	err := p.db.WithContext(ctx).
		Table("inventory_lots").
		Select("quantity_remaining, unit_cost").
		Where("tenant_id = ? AND quantity_remaining > 0", tenantID).
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.QuantityRemaining.Mul(r.UnitCost))
	}
	return total, nil
}
