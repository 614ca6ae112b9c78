package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	t.Run("parses a two digit amount", func(t *testing.T) {
		m, err := ParseMoney("120.50")
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("120.5")))
		assert.Equal(t, "120.50", m.String())
	})

	t.Run("accepts four fractional digits", func(t *testing.T) {
		m, err := ParseMoney("0.0001")
		require.NoError(t, err)
		assert.Equal(t, "0.0001", m.Amount().String())
	})

	t.Run("rejects more than four fractional digits", func(t *testing.T) {
		_, err := ParseMoney("1.00001")
		assert.ErrorIs(t, err, ErrTooPrecise)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseMoney("twelve")
		assert.Error(t, err)
	})
}

func TestMoneyArithmetic(t *testing.T) {
	price := MustParseMoney("500.00")
	cost := MustParseMoney("120.50")

	revenue := price.Times(decimal.NewFromInt(5))
	cogs := cost.Times(decimal.NewFromInt(5))
	fee := MustParseMoney("50")

	margin := revenue.Sub(fee).Sub(cogs)
	assert.Equal(t, "1847.50", margin.String())
	assert.True(t, margin.Equals(MustParseMoney("1847.5")))
	assert.Equal(t, "-1847.50", margin.Negate().String())
	assert.True(t, margin.Negate().IsNegative())
}

func TestSumMoney(t *testing.T) {
	assert.True(t, SumMoney().IsZero())

	total := SumMoney(MustParseMoney("0.1"), MustParseMoney("0.2"), MustParseMoney("0.3"))
	assert.Equal(t, "0.60", total.String())
}

func TestLineAmount(t *testing.T) {
	m := LineAmount(decimal.NewFromInt(10), decimal.RequireFromString("5000.00"))
	assert.Equal(t, "50000.00", m.String())
}

func TestMoneyJSON(t *testing.T) {
	t.Run("marshals as a fixed string", func(t *testing.T) {
		data, err := json.Marshal(struct {
			Total Money `json:"total"`
		}{Total: MustParseMoney("602.5")})
		require.NoError(t, err)
		assert.JSONEq(t, `{"total":"602.50"}`, string(data))
	})

	t.Run("unmarshals numbers and strings", func(t *testing.T) {
		var v struct {
			A Money `json:"a"`
			B Money `json:"b"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"a":"1.25","b":2.5}`), &v))
		assert.Equal(t, "1.25", v.A.String())
		assert.Equal(t, "2.50", v.B.String())
	})
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.Zero))
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("120.5025")))
	assert.ErrorIs(t, ValidateAmount(decimal.RequireFromString("-0.01")), ErrNegativeAmount)
	assert.ErrorIs(t, ValidateAmount(decimal.RequireFromString("0.00001")), ErrTooPrecise)
}
