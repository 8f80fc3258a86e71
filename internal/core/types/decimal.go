// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of decimal places persisted for monetary amounts.
const MoneyScale = 2

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

// NewMoneyFromInt creates a Money value from whole currency units.
func NewMoneyFromInt(v int64) Money {
	return decimal.NewFromInt(v)
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

// RoundMoney rounds to MoneyScale decimal places, halves rounding up.
// Applied to every persisted aggregate; intermediate per-unit figures
// stay unrounded to keep accumulated sums exact.
func RoundMoney(d Money) Money {
	return d.Round(MoneyScale)
}

// MaxMoney returns the larger of two Money values.
func MaxMoney(a, b Money) Money {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

// MinMoney returns the smaller of two Money values.
func MinMoney(a, b Money) Money {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

// Percent converts a percentage figure (e.g. 18) into its ratio (0.18).
func Percent(rate Money) Money {
	return rate.Div(decimal.NewFromInt(100))
}
