package persistence

import (
	"context"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/persistence/models"
	"github.com/erp/lotledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSupplierOrderRepository implements trade.SupplierOrderRepository using GORM
type GormSupplierOrderRepository struct {
	db *gorm.DB
}

// NewGormSupplierOrderRepository creates a new GormSupplierOrderRepository
func NewGormSupplierOrderRepository(db *gorm.DB) *GormSupplierOrderRepository {
	return &GormSupplierOrderRepository{db: db}
}

func orderItemsByLine(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// Create inserts an order with its items
func (r *GormSupplierOrderRepository) Create(ctx context.Context, order *trade.SupplierOrder) error {
	model := models.SupplierOrderModelFromDomain(order)
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		return translateError("create supplier order", err)
	}
	if len(model.Items) > 0 {
		if err := db.Create(&model.Items).Error; err != nil {
			return translateError("create supplier order items", err)
		}
	}
	return nil
}

// FindByIDForTenant loads an order with items
func (r *GormSupplierOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.SupplierOrder, error) {
	return r.find(ctx, tenantID, id, false)
}

// FindByIDForUpdate loads an order and locks its row until the transaction ends
func (r *GormSupplierOrderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.SupplierOrder, error) {
	return r.find(ctx, tenantID, id, true)
}

func (r *GormSupplierOrderRepository) find(ctx context.Context, tenantID, id uuid.UUID, lock bool) (*trade.SupplierOrder, error) {
	db := r.db.WithContext(ctx)
	query := db.Scopes(tenant.Scope(tenantID)).Where("id = ?", id)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.SupplierOrderModel
	if err := query.First(&model).Error; err != nil {
		return nil, translateError("find supplier order", err)
	}
	if err := orderItemsByLine(db).Where("order_id = ?", model.ID).Find(&model.Items).Error; err != nil {
		return nil, translateError("load supplier order items", err)
	}
	return model.ToDomain(), nil
}

// ListForTenant returns orders newest first with the total count
func (r *GormSupplierOrderRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter trade.OrderFilter) ([]trade.SupplierOrder, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.SupplierOrderModel{}).Scopes(tenant.Scope(tenantID))
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status.String())
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, translateError("count supplier orders", err)
	}

	query := base().Preload("Items", orderItemsByLine).Order("order_date DESC, created_at DESC, id DESC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var ms []models.SupplierOrderModel
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, translateError("list supplier orders", err)
	}

	orders := make([]trade.SupplierOrder, len(ms))
	for i := range ms {
		orders[i] = *ms[i].ToDomain()
	}
	return orders, total, nil
}

// SaveWithLock updates the header when the stored version is order.Version-1,
// then replaces the items
func (r *GormSupplierOrderRepository) SaveWithLock(ctx context.Context, order *trade.SupplierOrder) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.SupplierOrderModel{}).
		Scopes(tenant.Scope(order.TenantID)).
		Where("id = ? AND version = ?", order.ID, order.Version-1).
		Updates(map[string]interface{}{
			"supplier_name": order.SupplierName,
			"status":        order.Status.String(),
			"currency":      order.Currency,
			"order_date":    order.OrderDate,
			"received_at":   order.ReceivedAt,
			"version":       order.Version,
			"updated_at":    order.UpdatedAt,
		})
	if result.Error != nil {
		return translateError("save supplier order", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	if err := db.Where("order_id = ?", order.ID).Delete(&models.SupplierOrderItemModel{}).Error; err != nil {
		return translateError("replace supplier order items", err)
	}
	if len(order.Items) == 0 {
		return nil
	}
	items := make([]models.SupplierOrderItemModel, len(order.Items))
	for i := range order.Items {
		items[i] = models.SupplierOrderItemModelFromDomain(order.ID, &order.Items[i])
	}
	return translateError("replace supplier order items", db.Create(&items).Error)
}

// Delete removes an order and its items.
// Items go first, selected through the tenant-scoped order row.
func (r *GormSupplierOrderRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	owned := db.Model(&models.SupplierOrderModel{}).Select("id").Scopes(tenant.Scope(tenantID)).Where("id = ?", id)
	if err := db.Where("order_id IN (?)", owned).Delete(&models.SupplierOrderItemModel{}).Error; err != nil {
		return translateError("delete supplier order items", err)
	}

	result := db.Scopes(tenant.Scope(tenantID)).Where("id = ?", id).Delete(&models.SupplierOrderModel{})
	if result.Error != nil {
		return translateError("delete supplier order", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ trade.SupplierOrderRepository = (*GormSupplierOrderRepository)(nil)
