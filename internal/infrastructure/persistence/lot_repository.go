package persistence

import (
	"context"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/persistence/models"
	"github.com/erp/lotledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const fifoOrder = "created_at ASC, id ASC"

// GormLotRepository implements ledger.LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

func (r *GormLotRepository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.InventoryLotModel{}).Scopes(tenant.Scope(tenantID))
}

// Create inserts a new lot
func (r *GormLotRepository) Create(ctx context.Context, lot *ledger.InventoryLot) error {
	model := models.InventoryLotModelFromDomain(lot)
	return translateError("create lot", r.db.WithContext(ctx).Create(model).Error)
}

// FindByIDForTenant loads one lot
func (r *GormLotRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.InventoryLot, error) {
	var model models.InventoryLotModel
	if err := r.scoped(ctx, tenantID).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError("find lot", err)
	}
	return model.ToDomain(), nil
}

// ListForTenant returns lots in FIFO order
func (r *GormLotRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.LotFilter) ([]ledger.InventoryLot, error) {
	query := r.scoped(ctx, tenantID)
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.OnlyAvailable {
		query = query.Where("quantity_remaining > 0")
	}

	var ms []models.InventoryLotModel
	if err := query.Order(fifoOrder).Find(&ms).Error; err != nil {
		return nil, translateError("list lots", err)
	}
	return models.InventoryLotsToDomain(ms), nil
}

// ListAvailableForUpdate returns lots of sku with stock left, oldest first, locked FOR UPDATE.
// SQLite ignores the locking clause; its single writer serializes instead.
func (r *GormLotRepository) ListAvailableForUpdate(ctx context.Context, tenantID uuid.UUID, sku string) ([]ledger.InventoryLot, error) {
	var ms []models.InventoryLotModel
	err := r.scoped(ctx, tenantID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sku = ? AND quantity_remaining > 0", sku).
		Order(fifoOrder).
		Find(&ms).Error
	if err != nil {
		return nil, translateError("lock available lots", err)
	}
	return models.InventoryLotsToDomain(ms), nil
}

// FindBySourceOrder returns the lots created by receiving orderID, locked FOR UPDATE
func (r *GormLotRepository) FindBySourceOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]ledger.InventoryLot, error) {
	var ms []models.InventoryLotModel
	err := r.scoped(ctx, tenantID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("source_kind = ? AND source_order_id = ?", ledger.LotSourceSupplierOrderItem.String(), orderID).
		Order(fifoOrder).
		Find(&ms).Error
	if err != nil {
		return nil, translateError("lock order lots", err)
	}
	return models.InventoryLotsToDomain(ms), nil
}

// SaveWithLock persists quantity_remaining with optimistic locking (checks version)
func (r *GormLotRepository) SaveWithLock(ctx context.Context, lot *ledger.InventoryLot) error {
	result := r.scoped(ctx, lot.TenantID).
		Where("id = ? AND version = ?", lot.ID, lot.Version-1).
		Updates(map[string]interface{}{
			"quantity_remaining": lot.QuantityRemaining,
			"version":            lot.Version,
			"updated_at":         lot.UpdatedAt,
		})
	if result.Error != nil {
		return translateError("save lot", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// DeleteUnconsumed removes a lot only if it is still untouched at the expected version.
// When nothing is deleted the stored row decides between NOT_FOUND,
// LOT_PARTIALLY_CONSUMED and CONCURRENCY_CONFLICT.
func (r *GormLotRepository) DeleteUnconsumed(ctx context.Context, lot *ledger.InventoryLot) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.Scope(lot.TenantID)).
		Where("id = ? AND version = ? AND quantity_remaining = quantity_original", lot.ID, lot.Version).
		Delete(&models.InventoryLotModel{})
	if result.Error != nil {
		return translateError("delete lot", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	stored, err := r.FindByIDForTenant(ctx, lot.TenantID, lot.ID)
	if err != nil {
		return err
	}
	if err := stored.EnsureReleasable(); err != nil {
		return err
	}
	return shared.ErrConcurrencyConflict
}

// TotalValue sums remaining * unit_cost in Go so no precision is lost to the driver
func (r *GormLotRepository) TotalValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var ms []models.InventoryLotModel
	err := r.scoped(ctx, tenantID).
		Select("quantity_remaining", "unit_cost").
		Where("quantity_remaining > 0").
		Find(&ms).Error
	if err != nil {
		return decimal.Zero, translateError("total lot value", err)
	}

	total := decimal.Zero
	for _, m := range ms {
		total = total.Add(m.QuantityRemaining.Mul(m.UnitCost))
	}
	return total, nil
}

var _ ledger.LotRepository = (*GormLotRepository)(nil)
