package trade

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher collects published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockSupplierOrderRepository is a mock implementation of trade.SupplierOrderRepository
type MockSupplierOrderRepository struct {
	mock.Mock
}

func (m *MockSupplierOrderRepository) Create(ctx context.Context, order *trade.SupplierOrder) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockSupplierOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.SupplierOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SupplierOrder), args.Error(1)
}

func (m *MockSupplierOrderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.SupplierOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SupplierOrder), args.Error(1)
}

func (m *MockSupplierOrderRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter trade.OrderFilter) ([]trade.SupplierOrder, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]trade.SupplierOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockSupplierOrderRepository) SaveWithLock(ctx context.Context, order *trade.SupplierOrder) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockSupplierOrderRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

// MockSaleRepository is a mock implementation of trade.SaleRepository
type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) Create(ctx context.Context, sale *trade.Sale) error {
	return m.Called(ctx, sale).Error(0)
}

func (m *MockSaleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Sale, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindByExternalRef(ctx context.Context, tenantID uuid.UUID, marketplace, externalOrderID string) (*trade.Sale, error) {
	args := m.Called(ctx, tenantID, marketplace, externalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) ListBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]trade.Sale, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).([]trade.Sale), args.Error(1)
}

// MockReplayCache is a mock implementation of trade.SaleReplayCache
type MockReplayCache struct {
	mock.Mock
}

func (m *MockReplayCache) Get(ctx context.Context, key trade.SaleKey) (uuid.UUID, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockReplayCache) Remember(ctx context.Context, key trade.SaleKey, saleID uuid.UUID) error {
	return m.Called(ctx, key, saleID).Error(0)
}

func (m *MockReplayCache) Close() error {
	return m.Called().Error(0)
}

// stubCatalog knows a fixed set of codes for every tenant
type stubCatalog struct {
	known map[string]bool
}

func newStubCatalog(codes ...string) *stubCatalog {
	known := make(map[string]bool, len(codes))
	for _, c := range codes {
		known[c] = true
	}
	return &stubCatalog{known: known}
}

func (c *stubCatalog) Resolve(ctx context.Context, tenantID uuid.UUID, code string) (*catalog.SKU, error) {
	if !c.known[code] {
		return nil, catalog.NewUnknownSKUError(code)
	}
	return &catalog.SKU{TenantID: tenantID, Code: code, Name: code}, nil
}

func (c *stubCatalog) ResolveMany(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*catalog.SKU, error) {
	found := make(map[string]*catalog.SKU, len(codes))
	for _, code := range codes {
		if c.known[code] {
			found[code] = &catalog.SKU{TenantID: tenantID, Code: code, Name: code}
		}
	}
	if missing := catalog.MissingCodes(codes, found); len(missing) > 0 {
		return nil, catalog.NewUnknownSKUError(missing...)
	}
	return found, nil
}

// memLotRepository keeps lots in memory with the same version guards as the store
type memLotRepository struct {
	mu   sync.Mutex
	lots map[uuid.UUID]ledger.InventoryLot
}

func newMemLotRepository() *memLotRepository {
	return &memLotRepository{lots: make(map[uuid.UUID]ledger.InventoryLot)}
}

func (r *memLotRepository) Create(ctx context.Context, lot *ledger.InventoryLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *lot
	stored.ClearDomainEvents()
	r.lots[lot.ID] = stored
	return nil
}

func (r *memLotRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.InventoryLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok || lot.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &lot, nil
}

func (r *memLotRepository) list(match func(*ledger.InventoryLot) bool) []ledger.InventoryLot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.InventoryLot, 0)
	for _, lot := range r.lots {
		if match(&lot) {
			out = append(out, lot)
		}
	}
	ledger.SortFIFO(out)
	return out
}

func (r *memLotRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.LotFilter) ([]ledger.InventoryLot, error) {
	return r.list(func(l *ledger.InventoryLot) bool {
		if l.TenantID != tenantID {
			return false
		}
		if filter.SKU != "" && l.SKU != filter.SKU {
			return false
		}
		return !filter.OnlyAvailable || l.QuantityRemaining.IsPositive()
	}), nil
}

func (r *memLotRepository) ListAvailableForUpdate(ctx context.Context, tenantID uuid.UUID, sku string) ([]ledger.InventoryLot, error) {
	return r.ListForTenant(ctx, tenantID, ledger.LotFilter{SKU: sku, OnlyAvailable: true})
}

func (r *memLotRepository) FindBySourceOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]ledger.InventoryLot, error) {
	return r.list(func(l *ledger.InventoryLot) bool {
		return l.TenantID == tenantID && l.Source.IsFromOrder(orderID)
	}), nil
}

func (r *memLotRepository) SaveWithLock(ctx context.Context, lot *ledger.InventoryLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.lots[lot.ID]
	if !ok || stored.Version != lot.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	next := *lot
	next.ClearDomainEvents()
	r.lots[lot.ID] = next
	return nil
}

func (r *memLotRepository) DeleteUnconsumed(ctx context.Context, lot *ledger.InventoryLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.lots[lot.ID]
	if !ok || stored.Version != lot.Version || !stored.IsUntouched() {
		return shared.ErrConcurrencyConflict
	}
	delete(r.lots, lot.ID)
	return nil
}

func (r *memLotRepository) TotalValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	lots, _ := r.ListForTenant(ctx, tenantID, ledger.LotFilter{})
	return ledger.TotalValue(lots), nil
}

// ids returns the stored lot ids, sorted
func (r *memLotRepository) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.lots))
	for id := range r.lots {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}
