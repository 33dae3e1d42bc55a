package pricing

import "github.com/shopspring/decimal"

// The minimum-order gate is evaluated on the pre-discount subtotal so a
// payment-method discount cannot be used to slip under the threshold.

// BelowMinimum reports whether the subtotal has not yet reached the
// configured minimum order amount.
func BelowMinimum(subtotal, minimum decimal.Decimal) bool {
	if !minimum.IsPositive() {
		return false
	}
	return subtotal.LessThan(minimum)
}

// AmountRemaining returns how much more must be added to reach the minimum,
// never negative.
func AmountRemaining(subtotal, minimum decimal.Decimal) decimal.Decimal {
	remaining := minimum.Sub(subtotal)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Progress returns how far the subtotal is toward the minimum as a
// percentage, capped at 100.
func Progress(subtotal, minimum decimal.Decimal) decimal.Decimal {
	if !minimum.IsPositive() {
		return hundred
	}
	pct := subtotal.Div(minimum).Mul(hundred)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
