// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundCurrency rounds a monetary value to 2 decimal places, half up.
// All persisted money columns are NUMERIC(12,2); every amount crossing
// the storage boundary goes through this.
func RoundCurrency(m Money) Money {
	return m.Round(2)
}

// ApplyPercent returns amount * percent / 100, rounded to currency precision.
func ApplyPercent(amount Money, percent Money) Money {
	return RoundCurrency(amount.Mul(percent).Div(decimal.NewFromInt(100)))
}

// ClampNonNegative floors a monetary value at zero.
func ClampNonNegative(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}
