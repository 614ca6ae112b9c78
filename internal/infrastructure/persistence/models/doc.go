// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: TenantAggregateModel shared by every aggregate table
//   - ledger.go: inventory_lots
//   - trade.go: supplier_orders, supplier_order_items, sales, sale_items, sale_allocations
//   - catalog.go: catalog_skus
//
// The SQL migrations under migrations/ are the schema of record; the gorm tags
// mirror them closely enough for AutoMigrate in SQLite-backed tests.
package models
