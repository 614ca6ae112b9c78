package inventory

import (
	"context"

	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/trade"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error or ctx is cancelled, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// Aggregate boundary notes:
//   - LotRepo: InventoryLot aggregates. Lots are only produced by order receipt and
//     initial balance, and only consumed by sale intake.
//   - OrderRepo: SupplierOrder aggregates with their items.
//   - SaleRepo: Sale aggregates with items and allocations; insert-only.
//   - Catalog: read-only SKU resolution so unknown SKUs abort before any write.
type TransactionalRepositories interface {
	LotRepo() ledger.LotRepository
	OrderRepo() trade.SupplierOrderRepository
	SaleRepo() trade.SaleRepository
	Catalog() catalog.Lookup
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with mocks.
type NoOpTransactionScope struct {
	lotRepo   ledger.LotRepository
	orderRepo trade.SupplierOrderRepository
	saleRepo  trade.SaleRepository
	catalog   catalog.Lookup
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	lotRepo ledger.LotRepository,
	orderRepo trade.SupplierOrderRepository,
	saleRepo trade.SaleRepository,
	lookup catalog.Lookup,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		lotRepo:   lotRepo,
		orderRepo: orderRepo,
		saleRepo:  saleRepo,
		catalog:   lookup,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

// LotRepo returns the lot repository.
func (s *NoOpTransactionScope) LotRepo() ledger.LotRepository {
	return s.lotRepo
}

// OrderRepo returns the supplier order repository.
func (s *NoOpTransactionScope) OrderRepo() trade.SupplierOrderRepository {
	return s.orderRepo
}

// SaleRepo returns the sale repository.
func (s *NoOpTransactionScope) SaleRepo() trade.SaleRepository {
	return s.saleRepo
}

// Catalog returns the catalog lookup.
func (s *NoOpTransactionScope) Catalog() catalog.Lookup {
	return s.catalog
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
