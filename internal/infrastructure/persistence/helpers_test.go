package persistence

import (
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/erp/lotledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newSQLiteDB opens a private in-memory database with every ledger table migrated
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := NewDatabase(&config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, database.DB.AutoMigrate(models.All()...))
	return database.DB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustLot(t *testing.T, clock shared.Clock, tenantID uuid.UUID, sku, qty, cost string) *ledger.InventoryLot {
	t.Helper()
	lot, err := ledger.NewInventoryLot(tenantID, sku, dec(qty), dec(cost), ledger.ManualSource(), clock.Now())
	require.NoError(t, err)
	return lot
}

func mustOrder(t *testing.T, clock shared.Clock, tenantID uuid.UUID, date string, items ...trade.SupplierOrderItemInput) *trade.SupplierOrder {
	t.Helper()
	order, err := trade.NewSupplierOrder(tenantID, "Acme Supply", "USD", day(date), items, clock.Now())
	require.NoError(t, err)
	return order
}

func item(sku, qty, cost string) trade.SupplierOrderItemInput {
	return trade.SupplierOrderItemInput{SKU: sku, Quantity: dec(qty), UnitCost: dec(cost)}
}

func strPtr(s string) *string { return &s }
