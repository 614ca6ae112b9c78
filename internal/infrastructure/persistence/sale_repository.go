package persistence

import (
	"context"
	"time"

	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/persistence/models"
	"github.com/erp/lotledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSaleRepository implements trade.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func (r *GormSaleRepository) withLines(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Preload("Items", orderItemsByLine).
		Preload("Items.Allocations")
}

// Create inserts the sale header, its items and their allocations.
// The external reference unique index turns a replayed intake into ErrDuplicateSale.
func (r *GormSaleRepository) Create(ctx context.Context, sale *trade.Sale) error {
	model := models.SaleModelFromDomain(sale)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return trade.ErrDuplicateSale
		}
		return translateError("create sale", err)
	}

	items := make([]models.SaleItemModel, 0, len(model.Items))
	allocations := make([]models.SaleAllocationModel, 0, len(model.Items))
	for _, item := range model.Items {
		allocations = append(allocations, item.Allocations...)
		item.Allocations = nil
		items = append(items, item)
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return translateError("create sale items", err)
		}
	}
	if len(allocations) > 0 {
		if err := db.Create(&allocations).Error; err != nil {
			return translateError("create sale allocations", err)
		}
	}
	return nil
}

// FindByIDForTenant loads a sale with items and allocations
func (r *GormSaleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Sale, error) {
	var model models.SaleModel
	if err := r.withLines(ctx, tenantID).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError("find sale", err)
	}
	return model.ToDomain(), nil
}

// FindByExternalRef loads the sale recorded for an external order
func (r *GormSaleRepository) FindByExternalRef(ctx context.Context, tenantID uuid.UUID, marketplace, externalOrderID string) (*trade.Sale, error) {
	var model models.SaleModel
	err := r.withLines(ctx, tenantID).
		Where("marketplace = ? AND external_order_id = ?", marketplace, externalOrderID).
		First(&model).Error
	if err != nil {
		return nil, translateError("find sale by external ref", err)
	}
	return model.ToDomain(), nil
}

// ListBetween returns sales dated in [from, to), oldest first
func (r *GormSaleRepository) ListBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]trade.Sale, error) {
	var ms []models.SaleModel
	err := r.withLines(ctx, tenantID).
		Where("sale_date >= ? AND sale_date < ?", from, to).
		Order("sale_date ASC, created_at ASC, id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, translateError("list sales", err)
	}

	sales := make([]trade.Sale, len(ms))
	for i := range ms {
		sales[i] = *ms[i].ToDomain()
	}
	return sales, nil
}

var _ trade.SaleRepository = (*GormSaleRepository)(nil)
