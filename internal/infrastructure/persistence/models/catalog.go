package models

import (
	"time"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/google/uuid"
)

// CatalogSKUModel is the persistence model for a catalog card.
// Enrichment is stored as the raw JSON provider map and validated on read.
type CatalogSKUModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_catalog_skus_tenant_code,priority:1"`
	Code       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_catalog_skus_tenant_code,priority:2"`
	Name       string    `gorm:"type:varchar(200);not null"`
	Unit       string    `gorm:"type:varchar(20);not null;default:'pcs'"`
	Enrichment string    `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogSKUModel) TableName() string {
	return "catalog_skus"
}

// ToDomain converts the persistence model to a domain SKU, validating enrichment.
func (m *CatalogSKUModel) ToDomain() (*catalog.SKU, error) {
	enrichment, err := catalog.ParseEnrichment([]byte(m.Enrichment))
	if err != nil {
		return nil, err
	}
	return &catalog.SKU{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Code:       m.Code,
		Name:       m.Name,
		Unit:       m.Unit,
		Enrichment: enrichment,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// CatalogSKUModelFromDomain creates a persistence model from a domain SKU.
func CatalogSKUModelFromDomain(s *catalog.SKU) (*CatalogSKUModel, error) {
	raw, err := s.Enrichment.Marshal()
	if err != nil {
		return nil, err
	}
	return &CatalogSKUModel{
		ID:         s.ID,
		TenantID:   s.TenantID,
		Code:       s.Code,
		Name:       s.Name,
		Unit:       s.Unit,
		Enrichment: string(raw),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}, nil
}

// All lists every model in dependency order, for AutoMigrate in tests.
func All() []interface{} {
	return []interface{}{
		&CatalogSKUModel{},
		&SupplierOrderModel{},
		&SupplierOrderItemModel{},
		&InventoryLotModel{},
		&SaleModel{},
		&SaleItemModel{},
		&SaleAllocationModel{},
	}
}
