package persistence

import (
	"context"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/infrastructure/persistence/models"
	"github.com/erp/lotledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCatalogRepository implements catalog.Repository using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// Resolve returns the card for code, or UNKNOWN_SKU
func (r *GormCatalogRepository) Resolve(ctx context.Context, tenantID uuid.UUID, code string) (*catalog.SKU, error) {
	found, err := r.ResolveMany(ctx, tenantID, []string{code})
	if err != nil {
		return nil, err
	}
	return found[code], nil
}

// ResolveMany loads every code in one query; any miss names all missing codes
func (r *GormCatalogRepository) ResolveMany(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*catalog.SKU, error) {
	unique := catalog.UniqueCodes(codes)
	if len(unique) == 0 {
		return map[string]*catalog.SKU{}, nil
	}

	var ms []models.CatalogSKUModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("code IN ?", unique).
		Find(&ms).Error
	if err != nil {
		return nil, translateError("resolve skus", err)
	}

	found := make(map[string]*catalog.SKU, len(ms))
	for i := range ms {
		sku, err := ms[i].ToDomain()
		if err != nil {
			return nil, err
		}
		found[sku.Code] = sku
	}
	if missing := catalog.MissingCodes(unique, found); len(missing) > 0 {
		return nil, catalog.NewUnknownSKUError(missing...)
	}
	return found, nil
}

// Save upserts a card by (tenant_id, code)
func (r *GormCatalogRepository) Save(ctx context.Context, sku *catalog.SKU) error {
	model, err := models.CatalogSKUModelFromDomain(sku)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "unit", "enrichment", "updated_at"}),
	}).Create(model).Error
	return translateError("save sku", err)
}

var _ catalog.Repository = (*GormCatalogRepository)(nil)
