package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of decimal places a monetary value may carry.
	AmountScale = 2

	// Exponent and coefficient bounds keep rescaling cheap. Anything outside
	// them is far beyond MaxBalance anyway.
	minAmountExponent    = -18
	maxAmountExponent    = 18
	maxCoefficientBitLen = 128
)

// MaxBalance is the largest value a NUMERIC(20,2) column holds.
var MaxBalance = decimal.RequireFromString("999999999999999999.99")

// CheckAmount reports ErrInvalidAmount unless amount is positive, has at most
// AmountScale decimal places and does not exceed MaxBalance. The bounds are
// checked on the raw exponent and coefficient before any rescaling.
func CheckAmount(amount decimal.Decimal) error {
	exp := amount.Exponent()
	if exp < minAmountExponent || exp > maxAmountExponent || amount.Coefficient().BitLen() > maxCoefficientBitLen {
		return fmt.Errorf("%w: amount is out of range", ErrInvalidAmount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if amount.GreaterThan(MaxBalance) {
		return fmt.Errorf("%w: amount must not exceed %s", ErrInvalidAmount, MaxBalance.StringFixed(AmountScale))
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return fmt.Errorf("%w: amount must have at most %d decimal places", ErrInvalidAmount, AmountScale)
	}
	return nil
}

// CheckCredit reports ErrInvalidAmount when crediting amount to balance would
// exceed MaxBalance.
func CheckCredit(balance decimal.Decimal, amount decimal.Decimal) error {
	if balance.Add(amount).GreaterThan(MaxBalance) {
		return fmt.Errorf("%w: balance would exceed %s", ErrInvalidAmount, MaxBalance.StringFixed(AmountScale))
	}
	return nil
}
