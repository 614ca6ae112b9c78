package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits persisted for monetary amounts.
// It matches the decimal(18,4) columns of the ledger tables.
const MoneyScale int32 = 4

// DisplayScale is the number of fractional digits used when rendering amounts
const DisplayScale int32 = 2

var (
	// ErrTooPrecise is returned when an amount carries more fractional digits than the store keeps
	ErrTooPrecise = errors.New("amount has more than 4 fractional digits")
	// ErrNegativeAmount is returned for costs, prices and fees below zero
	ErrNegativeAmount = errors.New("amount cannot be negative")
)

// ValidateAmount checks a unit cost, price or fee is non-negative and storable
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		return ErrTooPrecise
	}
	return nil
}

// Money is an exact fixed-point monetary amount.
// It is immutable; all operations return new Money values.
// Currency conversion is not supported, so Money carries no currency.
type Money struct {
	amount decimal.Decimal
}

// NewMoney wraps a decimal amount
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewMoneyFromInt creates Money from a whole number
func NewMoneyFromInt(amount int64) Money {
	return Money{amount: decimal.NewFromInt(amount)}
}

// ParseMoney parses a decimal string such as "120.50".
// Amounts finer than MoneyScale are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		return Money{}, ErrTooPrecise
	}
	return Money{amount: d}, nil
}

// MustParseMoney parses s and panics on error
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney returns a zero amount
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Times returns m multiplied by a quantity
func (m Money) Times(qty decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(qty)}
}

// Negate returns -m
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg()}
}

// Equals compares amounts numerically, so 1.5 equals 1.50
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// String renders the amount with DisplayScale digits
func (m Money) String() string {
	return m.amount.StringFixed(DisplayScale)
}

// MarshalJSON renders the amount as a JSON string so no float conversion happens on the wire
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.StringFixed(DisplayScale))
}

// UnmarshalJSON accepts both "120.50" and 120.50
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid money value: %w", err)
	}
	m.amount = d
	return nil
}

// SumMoney adds all values
func SumMoney(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v.amount)
	}
	return Money{amount: total}
}

// LineAmount returns qty * unitPrice as Money
func LineAmount(qty, unitPrice decimal.Decimal) Money {
	return Money{amount: qty.Mul(unitPrice)}
}
