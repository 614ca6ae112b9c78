package persistence

import (
	"context"
	"time"

	"github.com/erp/lotledger/internal/domain/report"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/persistence/models"
	"github.com/erp/lotledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReportRepository implements report.ReadRepository.
// Amounts are summed in Go from the stored decimals.
type GormReportRepository struct {
	db    *gorm.DB
	sales *GormSaleRepository
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db, sales: NewGormSaleRepository(db)}
}

// PurchasesBetween returns received orders whose order date falls in [from, to)
func (r *GormReportRepository) PurchasesBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]report.PurchaseRecord, error) {
	var ms []models.SupplierOrderModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Preload("Items", orderItemsByLine).
		Where("status = ? AND order_date >= ? AND order_date < ?", trade.SupplierOrderStatusReceived.String(), from, to).
		Order("order_date ASC, created_at ASC, id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, translateError("list purchases", err)
	}

	records := make([]report.PurchaseRecord, len(ms))
	for i := range ms {
		order := ms[i].ToDomain()
		records[i] = report.PurchaseRecord{
			OrderID:      order.ID,
			SupplierName: order.SupplierName,
			Currency:     order.Currency,
			Date:         order.OrderDate,
			Amount:       order.PurchaseAmount(),
		}
	}
	return records, nil
}

// SaleLinesBetween flattens sales dated in [from, to) into costed lines
func (r *GormReportRepository) SaleLinesBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]report.SaleLine, error) {
	sales, err := r.sales.ListBetween(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	lines := make([]report.SaleLine, 0, len(sales))
	for _, s := range sales {
		for _, item := range s.Items {
			lines = append(lines, report.SaleLine{
				SaleID:      s.ID,
				Marketplace: s.Marketplace,
				Date:        s.SaleDate,
				SKU:         item.SKU,
				Quantity:    item.Quantity,
				Revenue:     item.Revenue(),
				Fee:         item.Fee,
				Cost:        item.Cost(),
			})
		}
	}
	return lines, nil
}

var _ report.ReadRepository = (*GormReportRepository)(nil)
