package trade

import (
	"context"
	"strings"
	"testing"
	"time"

	appinv "github.com/erp/lotledger/internal/application/inventory"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	service   *SaleService
	saleRepo  *MockSaleRepository
	lotRepo   *memLotRepository
	lotLedger *ledger.LotLedger
	publisher *MockEventPublisher
}

func newSaleFixture(knownSKUs ...string) *saleFixture {
	saleRepo := new(MockSaleRepository)
	lotRepo := newMemLotRepository()
	clock := shared.NewStepClock(testStart, time.Second)
	scope := appinv.NewNoOpTransactionScope(lotRepo, nil, saleRepo, newStubCatalog(knownSKUs...))
	svc := NewSaleService(scope, saleRepo, clock, nil)
	publisher := &MockEventPublisher{}
	svc.SetEventPublisher(publisher)
	return &saleFixture{
		service:   svc,
		saleRepo:  saleRepo,
		lotRepo:   lotRepo,
		lotLedger: ledger.NewLotLedger(lotRepo, clock),
		publisher: publisher,
	}
}

func (f *saleFixture) addLot(t *testing.T, tenantID uuid.UUID, sku, qty, cost string) *ledger.InventoryLot {
	t.Helper()
	lot, err := f.lotLedger.CreateLot(context.Background(), tenantID, sku, dec(qty), dec(cost), ledger.ManualSource())
	require.NoError(t, err)
	return lot
}

func (f *saleFixture) remaining(t *testing.T, tenantID, lotID uuid.UUID) string {
	t.Helper()
	lot, err := f.lotRepo.FindByIDForTenant(context.Background(), tenantID, lotID)
	require.NoError(t, err)
	return lot.QuantityRemaining.String()
}

func strPtr(s string) *string {
	return &s
}

func TestSaleService_RecordSale_EndToEnd(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	f := newSaleFixture("S")
	lot := f.addLot(t, tenantID, "S", "50", "120.50")

	f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "A-1").Return(nil, shared.ErrNotFound).Once()
	f.saleRepo.On("Create", mock.Anything, mock.AnythingOfType("*trade.Sale")).Return(nil).Once()

	req := RecordSaleRequest{
		Marketplace:     "ozon",
		ExternalOrderID: strPtr("A-1"),
		Items:           []SaleItemInput{{SKU: "S", Quantity: dec("5"), UnitSalePrice: dec("500.00"), Fee: dec("50.00")}},
	}
	resp, err := f.service.RecordSale(ctx, tenantID, req)
	require.NoError(t, err)

	assert.False(t, resp.Existing)
	require.Len(t, resp.Items, 1)
	require.Len(t, resp.Items[0].Allocations, 1)
	assert.Equal(t, lot.ID, resp.Items[0].Allocations[0].LotID)
	assert.True(t, resp.Items[0].Allocations[0].UnitCost.Equal(dec("120.50")))
	assert.True(t, resp.Revenue.Equal(dec("2500")))
	assert.True(t, resp.Cost.Equal(dec("602.50")))
	assert.True(t, resp.Margin.Equal(dec("1847.50")))
	assert.Equal(t, "45", f.remaining(t, tenantID, lot.ID))
	assert.Len(t, f.publisher.GetEventsByType(trade.EventTypeSaleRecorded), 1)

	t.Run("replay returns the first sale without allocating", func(t *testing.T) {
		var stored *trade.Sale
		for _, call := range f.saleRepo.Calls {
			if call.Method == "Create" {
				stored = call.Arguments.Get(1).(*trade.Sale)
			}
		}
		require.NotNil(t, stored)
		f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "A-1").Return(stored, nil)

		replay, err := f.service.RecordSale(ctx, tenantID, req)
		require.NoError(t, err)
		assert.True(t, replay.Existing)
		assert.Equal(t, resp.ID, replay.ID)
		assert.True(t, replay.Margin.Equal(dec("1847.50")))
		assert.Equal(t, "45", f.remaining(t, tenantID, lot.ID))
		f.saleRepo.AssertNumberOfCalls(t, "Create", 1)
	})
}

func TestSaleService_RecordSale_FIFOAcrossLots(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	f := newSaleFixture("A")
	older := f.addLot(t, tenantID, "A", "10", "100")
	newer := f.addLot(t, tenantID, "A", "5", "120")
	f.saleRepo.On("Create", mock.Anything, mock.AnythingOfType("*trade.Sale")).Return(nil)

	resp, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
		Marketplace: "wb",
		Items:       []SaleItemInput{{SKU: "A", Quantity: dec("12"), UnitSalePrice: dec("150"), Fee: dec("0")}},
	})
	require.NoError(t, err)

	allocations := resp.Items[0].Allocations
	require.Len(t, allocations, 2)
	assert.Equal(t, older.ID, allocations[0].LotID)
	assert.True(t, allocations[0].Quantity.Equal(dec("10")))
	assert.Equal(t, newer.ID, allocations[1].LotID)
	assert.True(t, allocations[1].Quantity.Equal(dec("2")))
	assert.True(t, resp.Cost.Equal(dec("1240")))
	assert.Equal(t, "0", f.remaining(t, tenantID, older.ID))
	assert.Equal(t, "3", f.remaining(t, tenantID, newer.ID))

	value, err := f.lotRepo.TotalValue(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, value.Equal(dec("360")))
}

func TestSaleService_RecordSale_Rejections(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("insufficient inventory leaves lots untouched", func(t *testing.T) {
		f := newSaleFixture("S")
		lot := f.addLot(t, tenantID, "S", "50", "120.50")

		_, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
			Marketplace: "ozon",
			Items:       []SaleItemInput{{SKU: "S", Quantity: dec("60"), UnitSalePrice: dec("1"), Fee: dec("0")}},
		})
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientInventory))
		assert.True(t, strings.HasPrefix(err.Error(), "Insufficient inventory"))
		assert.Equal(t, 400, shared.HTTPStatus(err))
		assert.Equal(t, "50", f.remaining(t, tenantID, lot.ID))
		f.saleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown sku consumes nothing", func(t *testing.T) {
		f := newSaleFixture("S")
		lot := f.addLot(t, tenantID, "S", "50", "120.50")

		_, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
			Marketplace: "ozon",
			Items: []SaleItemInput{
				{SKU: "S", Quantity: dec("1"), UnitSalePrice: dec("1"), Fee: dec("0")},
				{SKU: "GHOST", Quantity: dec("1"), UnitSalePrice: dec("1"), Fee: dec("0")},
			},
		})
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeUnknownSKU))
		assert.Equal(t, "50", f.remaining(t, tenantID, lot.ID))
	})

	t.Run("other tenant's lots are invisible", func(t *testing.T) {
		f := newSaleFixture("S")
		f.addLot(t, uuid.New(), "S", "50", "120.50")

		_, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
			Marketplace: "ozon",
			Items:       []SaleItemInput{{SKU: "S", Quantity: dec("1"), UnitSalePrice: dec("1"), Fee: dec("0")}},
		})
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientInventory))
	})

	t.Run("request without items fails validation", func(t *testing.T) {
		f := newSaleFixture("S")
		_, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{Marketplace: "ozon"})
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidationFailed))
	})
}

func TestSaleService_RecordSale_BlankExternalIDNeverDedupes(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	f := newSaleFixture("S")
	lot := f.addLot(t, tenantID, "S", "10", "1")
	f.saleRepo.On("Create", mock.Anything, mock.AnythingOfType("*trade.Sale")).Return(nil)

	req := RecordSaleRequest{
		Marketplace:     "ozon",
		ExternalOrderID: strPtr("   "),
		Items:           []SaleItemInput{{SKU: "S", Quantity: dec("2"), UnitSalePrice: dec("5"), Fee: dec("0")}},
	}
	first, err := f.service.RecordSale(ctx, tenantID, req)
	require.NoError(t, err)
	second, err := f.service.RecordSale(ctx, tenantID, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Nil(t, first.ExternalOrderID)
	assert.Equal(t, "6", f.remaining(t, tenantID, lot.ID))
	f.saleRepo.AssertNotCalled(t, "FindByExternalRef", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSaleService_RecordSale_LostRaceReturnsWinner(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	f := newSaleFixture("S")
	f.addLot(t, tenantID, "S", "10", "1")

	winner, err := trade.NewSale(tenantID, "ozon", strPtr("R-1"), testStart, testStart)
	require.NoError(t, err)

	f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "R-1").Return(nil, shared.ErrNotFound).Once()
	f.saleRepo.On("Create", mock.Anything, mock.AnythingOfType("*trade.Sale")).Return(trade.ErrDuplicateSale).Once()
	f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "R-1").Return(winner, nil).Once()

	resp, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
		Marketplace:     "ozon",
		ExternalOrderID: strPtr("R-1"),
		Items:           []SaleItemInput{{SKU: "S", Quantity: dec("1"), UnitSalePrice: dec("5"), Fee: dec("0")}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Existing)
	assert.Equal(t, winner.ID, resp.ID)
	assert.Empty(t, f.publisher.GetEventsByType(trade.EventTypeSaleRecorded))
	f.saleRepo.AssertExpectations(t)
}

func TestSaleService_RecordSale_WinnerDrainedStock(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	f := newSaleFixture("S")
	lot := f.addLot(t, tenantID, "S", "3", "2")

	winner, err := trade.NewSale(tenantID, "ozon", strPtr("R-2"), testStart, testStart)
	require.NoError(t, err)

	// the identical submission commits between the lookup and the allocation
	f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "R-2").
		Return(nil, shared.ErrNotFound).
		Run(func(mock.Arguments) {
			_, err := f.lotLedger.Consume(ctx, tenantID, lot.ID, dec("3"))
			require.NoError(t, err)
		}).Once()
	f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "R-2").Return(winner, nil).Once()

	resp, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
		Marketplace:     "ozon",
		ExternalOrderID: strPtr("R-2"),
		Items:           []SaleItemInput{{SKU: "S", Quantity: dec("3"), UnitSalePrice: dec("5"), Fee: dec("0")}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Existing)
	assert.Equal(t, winner.ID, resp.ID)
	assert.Equal(t, "0", f.remaining(t, tenantID, lot.ID))
	f.saleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.saleRepo.AssertExpectations(t)
}

func TestSaleService_RecordSale_FailureWithoutWinnerKeepsError(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	f := newSaleFixture("S")
	f.addLot(t, tenantID, "S", "1", "2")

	f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "R-3").Return(nil, shared.ErrNotFound).Twice()

	_, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
		Marketplace:     "ozon",
		ExternalOrderID: strPtr("R-3"),
		Items:           []SaleItemInput{{SKU: "S", Quantity: dec("3"), UnitSalePrice: dec("5"), Fee: dec("0")}},
	})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeInsufficientInventory))
	f.saleRepo.AssertExpectations(t)
}

func TestSaleService_RecordSale_ReplayCache(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	key := trade.SaleKey{TenantID: tenantID, Marketplace: "ozon", ExternalOrderID: "C-1"}

	t.Run("cache hit skips the external ref lookup", func(t *testing.T) {
		f := newSaleFixture("S")
		cache := new(MockReplayCache)
		f.service.SetReplayCache(cache)

		cached, err := trade.NewSale(tenantID, "ozon", strPtr("C-1"), testStart, testStart)
		require.NoError(t, err)
		cache.On("Get", mock.Anything, key).Return(cached.ID, true, nil)
		f.saleRepo.On("FindByIDForTenant", mock.Anything, tenantID, cached.ID).Return(cached, nil)

		resp, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
			Marketplace:     "ozon",
			ExternalOrderID: strPtr(" C-1 "),
			Items:           []SaleItemInput{{SKU: "S", Quantity: dec("1"), UnitSalePrice: dec("5"), Fee: dec("0")}},
		})
		require.NoError(t, err)
		assert.True(t, resp.Existing)
		assert.Equal(t, cached.ID, resp.ID)
		f.saleRepo.AssertNotCalled(t, "FindByExternalRef", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new sale is remembered", func(t *testing.T) {
		f := newSaleFixture("S")
		f.addLot(t, tenantID, "S", "10", "1")
		cache := new(MockReplayCache)
		f.service.SetReplayCache(cache)

		cache.On("Get", mock.Anything, key).Return(uuid.Nil, false, nil)
		cache.On("Remember", mock.Anything, key, mock.AnythingOfType("uuid.UUID")).Return(nil)
		f.saleRepo.On("FindByExternalRef", mock.Anything, tenantID, "ozon", "C-1").Return(nil, shared.ErrNotFound)
		f.saleRepo.On("Create", mock.Anything, mock.AnythingOfType("*trade.Sale")).Return(nil)

		resp, err := f.service.RecordSale(ctx, tenantID, RecordSaleRequest{
			Marketplace:     "ozon",
			ExternalOrderID: strPtr("C-1"),
			Items:           []SaleItemInput{{SKU: "S", Quantity: dec("1"), UnitSalePrice: dec("5"), Fee: dec("0")}},
		})
		require.NoError(t, err)
		assert.False(t, resp.Existing)
		cache.AssertCalled(t, "Remember", mock.Anything, key, resp.ID)
	})
}

func TestSaleRecordedHandler(t *testing.T) {
	h := NewSaleRecordedHandler(nil, nil)
	assert.Equal(t, []string{trade.EventTypeSaleRecorded}, h.EventTypes())

	sale, err := trade.NewSale(uuid.New(), "ozon", nil, testStart, testStart)
	require.NoError(t, err)
	assert.NoError(t, h.Handle(context.Background(), trade.NewSaleRecordedEvent(sale)))

	order := newDraft(t, uuid.New())
	assert.Error(t, h.Handle(context.Background(), trade.NewSupplierOrderCreatedEvent(order)))
}
