package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLotRepository_FIFOListing(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLotRepository(newSQLiteDB(t))
	clock := shared.NewStepClock(baseTime, time.Minute)
	tenantID := uuid.New()

	first := mustLot(t, clock, tenantID, "SKU-A", "5", "2.00")
	second := mustLot(t, clock, tenantID, "SKU-A", "3", "2.50")
	other := mustLot(t, clock, tenantID, "SKU-B", "1", "9.00")
	foreign := mustLot(t, clock, uuid.New(), "SKU-A", "7", "1.00")
	for _, l := range []*ledger.InventoryLot{second, first, other, foreign} {
		require.NoError(t, repo.Create(ctx, l))
	}

	t.Run("lists a tenant's lots oldest first", func(t *testing.T) {
		lots, err := repo.ListForTenant(ctx, tenantID, ledger.LotFilter{SKU: "SKU-A"})
		require.NoError(t, err)
		require.Len(t, lots, 2)
		assert.Equal(t, first.ID, lots[0].ID)
		assert.Equal(t, second.ID, lots[1].ID)
		assert.True(t, lots[0].QuantityRemaining.Equal(dec("5")))
		assert.True(t, lots[1].UnitCost.Equal(dec("2.5")))
		assert.Equal(t, ledger.LotSourceManual, lots[0].Source.Kind)
	})

	t.Run("available lots skip exhausted ones", func(t *testing.T) {
		loaded, err := repo.FindByIDForTenant(ctx, tenantID, first.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Consume(dec("5"), clock.Now()))
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		lots, err := repo.ListAvailableForUpdate(ctx, tenantID, "SKU-A")
		require.NoError(t, err)
		require.Len(t, lots, 1)
		assert.Equal(t, second.ID, lots[0].ID)
	})

	t.Run("other tenants are invisible", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, tenantID, foreign.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("total value sums remaining stock", func(t *testing.T) {
		total, err := repo.TotalValue(ctx, tenantID)
		require.NoError(t, err)
		// 3 * 2.50 + 1 * 9.00
		assert.True(t, total.Equal(dec("16.5")), total.String())
	})
}

func TestGormLotRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLotRepository(newSQLiteDB(t))
	clock := shared.NewStepClock(baseTime, time.Minute)
	tenantID := uuid.New()

	lot := mustLot(t, clock, tenantID, "SKU-A", "10", "1.00")
	require.NoError(t, repo.Create(ctx, lot))

	a, err := repo.FindByIDForTenant(ctx, tenantID, lot.ID)
	require.NoError(t, err)
	b, err := repo.FindByIDForTenant(ctx, tenantID, lot.ID)
	require.NoError(t, err)

	require.NoError(t, a.Consume(dec("4"), clock.Now()))
	require.NoError(t, repo.SaveWithLock(ctx, a))

	require.NoError(t, b.Consume(dec("4"), clock.Now()))
	err = repo.SaveWithLock(ctx, b)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := repo.FindByIDForTenant(ctx, tenantID, lot.ID)
	require.NoError(t, err)
	assert.True(t, stored.QuantityRemaining.Equal(dec("6")))
	assert.Equal(t, 2, stored.Version)
}

func TestGormLotRepository_DeleteUnconsumed(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLotRepository(newSQLiteDB(t))
	clock := shared.NewStepClock(baseTime, time.Minute)
	tenantID := uuid.New()

	t.Run("removes an untouched lot", func(t *testing.T) {
		lot := mustLot(t, clock, tenantID, "SKU-A", "2", "1.00")
		require.NoError(t, repo.Create(ctx, lot))

		require.NoError(t, repo.DeleteUnconsumed(ctx, lot))
		_, err := repo.FindByIDForTenant(ctx, tenantID, lot.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("refuses a consumed lot", func(t *testing.T) {
		lot := mustLot(t, clock, tenantID, "SKU-A", "2", "1.00")
		require.NoError(t, repo.Create(ctx, lot))
		stale := *lot

		require.NoError(t, lot.Consume(dec("1"), clock.Now()))
		require.NoError(t, repo.SaveWithLock(ctx, lot))

		err := repo.DeleteUnconsumed(ctx, &stale)
		assert.True(t, shared.IsCode(err, shared.CodeLotPartiallyConsumed), "got %v", err)
	})

	t.Run("missing lot is not found", func(t *testing.T) {
		lot := mustLot(t, clock, tenantID, "SKU-A", "2", "1.00")
		err := repo.DeleteUnconsumed(ctx, lot)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("version drift is a conflict", func(t *testing.T) {
		lot := mustLot(t, clock, tenantID, "SKU-A", "2", "1.00")
		require.NoError(t, repo.Create(ctx, lot))
		ahead := *lot
		ahead.Version = lot.Version + 1

		err := repo.DeleteUnconsumed(ctx, &ahead)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormLotRepository_FindBySourceOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLotRepository(newSQLiteDB(t))
	clock := shared.NewStepClock(baseTime, time.Minute)
	tenantID := uuid.New()
	orderID := uuid.New()

	for i := 0; i < 2; i++ {
		lot, err := ledger.NewInventoryLot(tenantID, "SKU-A", dec("1"), dec("1"),
			ledger.SupplierOrderItemSource(orderID, uuid.New()), clock.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, lot))
	}
	require.NoError(t, repo.Create(ctx, mustLot(t, clock, tenantID, "SKU-A", "1", "1")))

	lots, err := repo.FindBySourceOrder(ctx, tenantID, orderID)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	for _, l := range lots {
		assert.True(t, l.Source.IsFromOrder(orderID))
	}
}
