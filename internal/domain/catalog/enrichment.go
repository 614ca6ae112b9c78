package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
)

var providerNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,49}$`)

// EnrichmentRecord is what one marketplace or data provider knows about a card
type EnrichmentRecord struct {
	ExternalID string            `json:"external_id"`
	Title      string            `json:"title,omitempty"`
	Brand      string            `json:"brand,omitempty"`
	Barcode    string            `json:"barcode,omitempty"`
	ImageURL   string            `json:"image_url,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	FetchedAt  *time.Time        `json:"fetched_at,omitempty"`
}

// Validate checks the record
func (r EnrichmentRecord) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return fmt.Errorf("external_id is required")
	}
	for k := range r.Attributes {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("attribute names cannot be empty")
		}
	}
	return nil
}

// Enrichment maps a provider name to its record
type Enrichment map[string]EnrichmentRecord

// ParseEnrichment decodes and validates stored enrichment JSON.
// Empty input yields an empty map.
func ParseEnrichment(raw []byte) (Enrichment, error) {
	out := Enrichment{}
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, shared.NewDomainError("INVALID_ENRICHMENT", "Enrichment is not a provider map: "+err.Error())
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks every provider name and record
func (e Enrichment) Validate() error {
	for _, name := range e.Providers() {
		if !providerNamePattern.MatchString(name) {
			return shared.NewDomainError("INVALID_ENRICHMENT", fmt.Sprintf("Invalid provider name %q", name))
		}
		if err := e[name].Validate(); err != nil {
			return shared.NewDomainError("INVALID_ENRICHMENT", fmt.Sprintf("Provider %s: %s", name, err))
		}
	}
	return nil
}

// Providers returns provider names sorted
func (e Enrichment) Providers() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set validates and stores the record for provider
func (e Enrichment) Set(provider string, record EnrichmentRecord) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !providerNamePattern.MatchString(provider) {
		return shared.NewDomainError("INVALID_ENRICHMENT", fmt.Sprintf("Invalid provider name %q", provider))
	}
	if err := record.Validate(); err != nil {
		return shared.NewDomainError("INVALID_ENRICHMENT", fmt.Sprintf("Provider %s: %s", provider, err))
	}
	e[provider] = record
	return nil
}

// Title returns the first non-empty title, preferring providers in the given order
// and falling back to the remaining providers alphabetically
func (e Enrichment) Title(preferred ...string) string {
	order := make([]string, 0, len(preferred)+len(e))
	order = append(order, preferred...)
	for _, name := range append(order, e.Providers()...) {
		if rec, ok := e[name]; ok && rec.Title != "" {
			return rec.Title
		}
	}
	return ""
}

// Marshal encodes the map for storage
func (e Enrichment) Marshal() ([]byte, error) {
	if e == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e)
}
