package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
)

// SKU is the catalog card the ledger references by code.
// The ledger treats the code as opaque; it only needs to know the card exists.
type SKU struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Code       string
	Name       string
	Unit       string
	Enrichment Enrichment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSKU creates a catalog card
func NewSKU(tenantID uuid.UUID, code, name, unit string, now time.Time) (*SKU, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU code cannot be empty")
	}
	if len(code) > 100 {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU code cannot exceed 100 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = code
	}
	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = "pcs"
	}
	return &SKU{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Code:       code,
		Name:       name,
		Unit:       unit,
		Enrichment: Enrichment{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NewUnknownSKUError reports a code the catalog does not know for the tenant
func NewUnknownSKUError(codes ...string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeUnknownSKU,
		fmt.Sprintf("Unknown SKU: %s", strings.Join(codes, ", "))).
		WithDetails(map[string]interface{}{"skus": codes})
}

// Lookup resolves SKU codes against the catalog collaborator
type Lookup interface {
	// Resolve returns the card for code, or an UNKNOWN_SKU error
	Resolve(ctx context.Context, tenantID uuid.UUID, code string) (*SKU, error)

	// ResolveMany resolves every code at once.
	// Any missing code fails the call with an UNKNOWN_SKU error naming all missing codes.
	ResolveMany(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*SKU, error)
}

// Repository persists catalog cards
type Repository interface {
	Lookup

	// Save inserts or updates a card by (tenant, code)
	Save(ctx context.Context, sku *SKU) error
}

// UniqueCodes trims codes and drops blanks and duplicates, keeping first-seen order
func UniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// MissingCodes returns the codes absent from found, in input order
func MissingCodes(codes []string, found map[string]*SKU) []string {
	missing := make([]string, 0)
	for _, c := range UniqueCodes(codes) {
		if _, ok := found[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
