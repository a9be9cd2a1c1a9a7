// Package money holds the one rounding rule every monetary value in the
// broker core follows: 6 decimal places on write.
package money

import "github.com/shopspring/decimal"

// Round rounds a decimal to 6 places, half-away-from-zero, matching
// shopspring/decimal's default Round behavior.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(6)
}

// Max returns the larger of two decimals.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MaxZero returns d floored at zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
