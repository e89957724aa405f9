// Package money holds the decimal helpers shared by every pricing computation.
package money

import "github.com/shopspring/decimal"

// Zero is the zero amount.
var Zero = decimal.Zero

// Round2 rounds an amount to cents. decimal.Round rounds half away from zero,
// which is half-up for the non-negative amounts produced by pricing.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return Zero
	}
	return d
}

// Line returns unitPrice * quantity. Negative inputs contribute nothing.
func Line(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 || unitPrice.IsNegative() {
		return Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ClampInt constrains v to [lo, hi]. When hi < lo the result is lo.
func ClampInt(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
