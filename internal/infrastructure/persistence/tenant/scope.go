// Package tenant provides multi-tenant database scoping for GORM.
//
// Every ledger table carries tenant_id. Repositories apply the scope explicitly:
//
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Find(&lots)
//
// A nil tenant never widens a query; the statement fails with ErrTenantIDRequired instead.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a statement is scoped to the nil tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Scope applies tenant filtering to GORM statements
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return ScopeTable("", tenantID)
}

// ScopeTable qualifies the tenant column with table, for joined statements
func ScopeTable(table string, tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	column := "tenant_id"
	if table != "" {
		column = table + ".tenant_id"
	}
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(column+" = ?", tenantID)
	}
}
