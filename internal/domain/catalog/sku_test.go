package catalog

import (
	"testing"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSKU(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sku, err := NewSKU(uuid.New(), "  S-1 ", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, "S-1", sku.Code)
	assert.Equal(t, "S-1", sku.Name)
	assert.Equal(t, "pcs", sku.Unit)
	assert.NotNil(t, sku.Enrichment)

	_, err = NewSKU(uuid.New(), " ", "x", "pcs", now)
	assert.True(t, shared.IsCode(err, "INVALID_SKU"))

	_, err = NewSKU(uuid.Nil, "S-1", "x", "pcs", now)
	assert.True(t, shared.IsCode(err, "INVALID_TENANT"))
}

func TestMissingCodes(t *testing.T) {
	found := map[string]*SKU{"A": {Code: "A"}}
	assert.Equal(t, []string{"B", "C"}, MissingCodes([]string{"A", " B", "B", "", "C"}, found))
	assert.Empty(t, MissingCodes([]string{"A"}, found))

	err := NewUnknownSKUError("B", "C")
	assert.True(t, shared.IsCode(err, shared.CodeUnknownSKU))
	assert.Equal(t, 404, shared.HTTPStatus(err))
	assert.Contains(t, err.Error(), "B, C")
}

func TestParseEnrichment(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		e, err := ParseEnrichment(nil)
		require.NoError(t, err)
		assert.Empty(t, e)

		e, err = ParseEnrichment([]byte("null"))
		require.NoError(t, err)
		assert.Empty(t, e)
	})

	t.Run("typed provider map", func(t *testing.T) {
		raw := []byte(`{"ozon":{"external_id":"123","title":"Kettle","attributes":{"color":"red"}},"wb":{"external_id":"9"}}`)
		e, err := ParseEnrichment(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"ozon", "wb"}, e.Providers())
		assert.Equal(t, "red", e["ozon"].Attributes["color"])
		assert.Equal(t, "Kettle", e.Title("wb"))
	})

	t.Run("rejects loose shapes at the boundary", func(t *testing.T) {
		_, err := ParseEnrichment([]byte(`{"ozon":["not","a","record"]}`))
		assert.True(t, shared.IsCode(err, "INVALID_ENRICHMENT"))

		_, err = ParseEnrichment([]byte(`{"ozon":{"title":"no id"}}`))
		assert.True(t, shared.IsCode(err, "INVALID_ENRICHMENT"))

		_, err = ParseEnrichment([]byte(`{"Bad Name":{"external_id":"1"}}`))
		assert.True(t, shared.IsCode(err, "INVALID_ENRICHMENT"))
	})
}

func TestEnrichment_Set(t *testing.T) {
	e := Enrichment{}
	require.NoError(t, e.Set(" OZON ", EnrichmentRecord{ExternalID: "1"}))
	assert.Contains(t, e, "ozon")
	assert.Error(t, e.Set("ozon", EnrichmentRecord{}))

	raw, err := e.Marshal()
	require.NoError(t, err)
	back, err := ParseEnrichment(raw)
	require.NoError(t, err)
	assert.Equal(t, e, back)
}
