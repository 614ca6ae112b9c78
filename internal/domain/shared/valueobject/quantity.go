package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of fractional digits persisted for quantities
const QuantityScale int32 = 4

var (
	// ErrNegativeQuantity is returned for quantities below zero
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	// ErrNonPositiveQuantity is returned where a strictly positive quantity is required
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	// ErrQuantityTooPrecise is returned when a quantity is finer than QuantityScale
	ErrQuantityTooPrecise = errors.New("quantity has more than 4 fractional digits")
)

// ParseQuantity parses a non-negative decimal quantity
func ParseQuantity(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	if err := ValidateQuantity(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateQuantity checks a quantity is non-negative and within the stored precision
func ValidateQuantity(q decimal.Decimal) error {
	if q.IsNegative() {
		return ErrNegativeQuantity
	}
	if !q.Equal(q.Truncate(QuantityScale)) {
		return ErrQuantityTooPrecise
	}
	return nil
}

// ValidatePositiveQuantity checks a quantity is strictly positive and within precision
func ValidatePositiveQuantity(q decimal.Decimal) error {
	if err := ValidateQuantity(q); err != nil {
		return err
	}
	if q.IsZero() {
		return ErrNonPositiveQuantity
	}
	return nil
}
