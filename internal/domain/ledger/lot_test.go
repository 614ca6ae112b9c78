package ledger

import (
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLot(t *testing.T, tenantID uuid.UUID, sku, qty, cost string, at time.Time) *InventoryLot {
	t.Helper()
	lot, err := NewInventoryLot(tenantID, sku, dec(qty), dec(cost), ManualSource(), at)
	require.NoError(t, err)
	return lot
}

func TestNewInventoryLot(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates an untouched lot", func(t *testing.T) {
		lot, err := NewInventoryLot(tenantID, "  SKU-1 ", dec("50"), dec("120.50"), ManualSource(), testNow)
		require.NoError(t, err)

		assert.Equal(t, "SKU-1", lot.SKU)
		assert.True(t, lot.QuantityOriginal.Equal(dec("50")))
		assert.True(t, lot.QuantityRemaining.Equal(dec("50")))
		assert.True(t, lot.IsUntouched())
		assert.Equal(t, testNow, lot.CreatedAt)
		assert.Equal(t, 1, lot.Version)
		require.Len(t, lot.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeLotCreated, lot.GetDomainEvents()[0].EventType())
	})

	t.Run("allows zero unit cost", func(t *testing.T) {
		_, err := NewInventoryLot(tenantID, "FREE", dec("1"), decimal.Zero, ManualSource(), testNow)
		assert.NoError(t, err)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		cases := []struct {
			name     string
			tenantID uuid.UUID
			sku      string
			qty      string
			cost     string
			source   LotSource
			code     string
		}{
			{"empty tenant", uuid.Nil, "A", "1", "1", ManualSource(), "INVALID_TENANT"},
			{"blank sku", tenantID, "   ", "1", "1", ManualSource(), "INVALID_SKU"},
			{"zero quantity", tenantID, "A", "0", "1", ManualSource(), "INVALID_QUANTITY"},
			{"negative quantity", tenantID, "A", "-2", "1", ManualSource(), "INVALID_QUANTITY"},
			{"negative cost", tenantID, "A", "1", "-0.01", ManualSource(), "INVALID_COST"},
			{"unknown source", tenantID, "A", "1", "1", LotSource{Kind: "gift"}, "INVALID_LOT_SOURCE"},
			{"order source without refs", tenantID, "A", "1", "1", LotSource{Kind: LotSourceSupplierOrderItem}, "INVALID_LOT_SOURCE"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewInventoryLot(tc.tenantID, tc.sku, dec(tc.qty), dec(tc.cost), tc.source, testNow)
				require.Error(t, err)
				assert.True(t, shared.IsCode(err, tc.code), "got %v", err)
			})
		}
	})
}

func TestLotSource(t *testing.T) {
	orderID, itemID := uuid.New(), uuid.New()
	src := SupplierOrderItemSource(orderID, itemID)

	assert.NoError(t, src.Validate())
	assert.True(t, src.IsFromOrder(orderID))
	assert.False(t, src.IsFromOrder(uuid.New()))
	assert.False(t, ManualSource().IsFromOrder(orderID))

	manualWithRef := LotSource{Kind: LotSourceManual, OrderID: &orderID}
	assert.Error(t, manualWithRef.Validate())
}

func TestInventoryLot_Consume(t *testing.T) {
	lot := newTestLot(t, uuid.New(), "SKU-1", "50", "120.50", testNow)

	t.Run("decrements remaining and bumps version", func(t *testing.T) {
		require.NoError(t, lot.Consume(dec("5"), testNow.Add(time.Hour)))
		assert.True(t, lot.QuantityRemaining.Equal(dec("45")))
		assert.True(t, lot.ConsumedQuantity().Equal(dec("5")))
		assert.Equal(t, 2, lot.Version)
		assert.Equal(t, testNow.Add(time.Hour), lot.UpdatedAt)
		assert.False(t, lot.IsUntouched())
	})

	t.Run("rejects more than remaining", func(t *testing.T) {
		err := lot.Consume(dec("45.0001"), testNow)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientLotQuantity))
		assert.True(t, lot.QuantityRemaining.Equal(dec("45")))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		assert.Error(t, lot.Consume(decimal.Zero, testNow))
		assert.Error(t, lot.Consume(dec("-1"), testNow))
	})

	t.Run("can be drained exactly", func(t *testing.T) {
		require.NoError(t, lot.Consume(dec("45"), testNow))
		assert.True(t, lot.IsExhausted())
	})
}

func TestInventoryLot_EnsureReleasable(t *testing.T) {
	lot := newTestLot(t, uuid.New(), "SKU-1", "10", "5000", testNow)
	assert.NoError(t, lot.EnsureReleasable())

	require.NoError(t, lot.Consume(dec("0.5"), testNow))
	err := lot.EnsureReleasable()
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeLotPartiallyConsumed))
}

func TestSortFIFO(t *testing.T) {
	tenantID := uuid.New()
	newer := newTestLot(t, tenantID, "A", "1", "2", testNow.Add(time.Minute))
	older := newTestLot(t, tenantID, "A", "1", "1", testNow)
	tieA := newTestLot(t, tenantID, "A", "1", "3", testNow.Add(2*time.Minute))
	tieB := newTestLot(t, tenantID, "A", "1", "4", testNow.Add(2*time.Minute))

	lots := []InventoryLot{*newer, *tieB, *older, *tieA}
	SortFIFO(lots)

	assert.Equal(t, older.ID, lots[0].ID)
	assert.Equal(t, newer.ID, lots[1].ID)
	assert.True(t, lots[2].ID.String() < lots[3].ID.String(), "ties are broken by id ascending")
}

func TestTotalValue(t *testing.T) {
	tenantID := uuid.New()
	a := newTestLot(t, tenantID, "A", "45", "120.50", testNow)
	b := newTestLot(t, tenantID, "B", "10", "5000", testNow)
	assert.True(t, TotalValue([]InventoryLot{*a, *b}).Equal(dec("55422.5")))
	assert.True(t, TotalValue(nil).IsZero())
}
