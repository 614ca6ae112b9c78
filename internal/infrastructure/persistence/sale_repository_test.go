package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSale(t *testing.T, clock shared.Clock, tenantID uuid.UUID, ext *string, date string, lot *ledger.InventoryLot, qty string) *trade.Sale {
	t.Helper()
	sale, err := trade.NewSale(tenantID, "amazon", ext, day(date), clock.Now())
	require.NoError(t, err)
	plan, err := ledger.PlanFIFO([]ledger.InventoryLot{*lot}, lot.SKU, dec(qty))
	require.NoError(t, err)
	_, err = sale.AddItem(lot.SKU, dec(qty), dec("10"), dec("1"), plan)
	require.NoError(t, err)
	return sale
}

func TestGormSaleRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormSaleRepository(db)
	lots := NewGormLotRepository(db)
	clock := shared.NewStepClock(baseTime, time.Minute)
	tenantID := uuid.New()

	lot := mustLot(t, clock, tenantID, "SKU-A", "10", "4.00")
	require.NoError(t, lots.Create(ctx, lot))

	sale := newSale(t, clock, tenantID, strPtr("AMZ-1"), "2024-03-02", lot, "3")
	require.NoError(t, repo.Create(ctx, sale))

	t.Run("loads items with allocations", func(t *testing.T) {
		loaded, err := repo.FindByIDForTenant(ctx, tenantID, sale.ID)
		require.NoError(t, err)
		require.Len(t, loaded.Items, 1)
		require.Len(t, loaded.Items[0].Allocations, 1)
		assert.Equal(t, lot.ID, loaded.Items[0].Allocations[0].LotID)
		assert.True(t, loaded.Cost().Equal(dec("12")))
		assert.True(t, loaded.Revenue().Equal(dec("30")))
	})

	t.Run("finds by external reference", func(t *testing.T) {
		loaded, err := repo.FindByExternalRef(ctx, tenantID, "amazon", "AMZ-1")
		require.NoError(t, err)
		assert.Equal(t, sale.ID, loaded.ID)

		_, err = repo.FindByExternalRef(ctx, tenantID, "ebay", "AMZ-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("replayed external order is a duplicate", func(t *testing.T) {
		again := newSale(t, clock, tenantID, strPtr("AMZ-1"), "2024-03-02", lot, "1")
		err := repo.Create(ctx, again)
		assert.ErrorIs(t, err, trade.ErrDuplicateSale)
	})

	t.Run("sales without external id never collide", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newSale(t, clock, tenantID, nil, "2024-03-04", lot, "1")))
		require.NoError(t, repo.Create(ctx, newSale(t, clock, tenantID, nil, "2024-03-04", lot, "1")))
	})

	t.Run("lists by half-open date range", func(t *testing.T) {
		sales, err := repo.ListBetween(ctx, tenantID, day("2024-03-02"), day("2024-03-04"))
		require.NoError(t, err)
		require.Len(t, sales, 1)
		assert.Equal(t, sale.ID, sales[0].ID)

		sales, err = repo.ListBetween(ctx, tenantID, day("2024-03-01"), day("2024-03-05"))
		require.NoError(t, err)
		assert.Len(t, sales, 3)
	})
}
