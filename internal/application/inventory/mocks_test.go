package inventory

import (
	"context"
	"sync"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
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

// MockLotRepository is a mock implementation of ledger.LotRepository
type MockLotRepository struct {
	mock.Mock
}

func (m *MockLotRepository) Create(ctx context.Context, lot *ledger.InventoryLot) error {
	return m.Called(ctx, lot).Error(0)
}

func (m *MockLotRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.InventoryLot, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.InventoryLot), args.Error(1)
}

func (m *MockLotRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.LotFilter) ([]ledger.InventoryLot, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.InventoryLot), args.Error(1)
}

func (m *MockLotRepository) ListAvailableForUpdate(ctx context.Context, tenantID uuid.UUID, sku string) ([]ledger.InventoryLot, error) {
	args := m.Called(ctx, tenantID, sku)
	return args.Get(0).([]ledger.InventoryLot), args.Error(1)
}

func (m *MockLotRepository) FindBySourceOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]ledger.InventoryLot, error) {
	args := m.Called(ctx, tenantID, orderID)
	return args.Get(0).([]ledger.InventoryLot), args.Error(1)
}

func (m *MockLotRepository) SaveWithLock(ctx context.Context, lot *ledger.InventoryLot) error {
	return m.Called(ctx, lot).Error(0)
}

func (m *MockLotRepository) DeleteUnconsumed(ctx context.Context, lot *ledger.InventoryLot) error {
	return m.Called(ctx, lot).Error(0)
}

func (m *MockLotRepository) TotalValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockCatalog is a mock implementation of catalog.Lookup
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Resolve(ctx context.Context, tenantID uuid.UUID, code string) (*catalog.SKU, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.SKU), args.Error(1)
}

func (m *MockCatalog) ResolveMany(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*catalog.SKU, error) {
	args := m.Called(ctx, tenantID, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*catalog.SKU), args.Error(1)
}
