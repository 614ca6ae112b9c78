package validation

import (
	"testing"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	SKU      string          `json:"sku" validate:"required,max=10"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Cost     decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

type request struct {
	Currency string `json:"currency" validate:"required,len=3,alpha"`
	Items    []line `json:"items" validate:"required,min=1,dive"`
}

func TestStruct(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req := request{Currency: "USD", Items: []line{{SKU: "S", Quantity: decimal.NewFromInt(1), Cost: decimal.Zero}}}
		assert.NoError(t, Struct(req))
	})

	t.Run("decimal fields compare numerically", func(t *testing.T) {
		req := request{Currency: "USD", Items: []line{{SKU: "S", Quantity: decimal.Zero, Cost: decimal.RequireFromString("-0.01")}}}
		err := Struct(req)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidationFailed))

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Must be greater than 0", de.Details["items[0].quantity"])
		assert.Equal(t, "Must be greater than or equal to 0", de.Details["items[0].unit_cost"])
	})

	t.Run("missing items", func(t *testing.T) {
		err := Struct(request{Currency: "usd"})
		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Contains(t, de.Details, "items")
		assert.Equal(t, 400, shared.HTTPStatus(err))
	})
}
