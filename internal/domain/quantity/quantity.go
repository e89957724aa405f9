// Package quantity clamps cart line quantities against available stock.
package quantity

import (
	"math"

	"github.com/go-faster/errors"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/money"
)

// ErrInvalidQuantity is returned for quantities that are not acceptable for
// the requested operation.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ApplyDelta returns the quantity after adding delta to current, clamped to
// [0, stock]. A result of 0 means the line should be removed. When stock is
// exhausted a positive delta is rejected and current is returned unchanged.
// The sum saturates instead of overflowing.
func ApplyDelta(current, delta, stock int) int {
	current = max(current, 0)
	if delta > 0 {
		if stock <= 0 {
			return current
		}
		if delta >= stock-min(current, stock) {
			return stock
		}
		return current + delta
	}
	raw := current + delta
	if raw <= 0 {
		return 0
	}
	return money.ClampInt(raw, 0, stock)
}

// Sum adds two non-negative quantities, saturating at math.MaxInt.
func Sum(a, b int) int {
	if a > 0 && b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// ApplyAbsolute returns requested clamped to [0, stock]. Negative requests
// are rejected.
func ApplyAbsolute(requested, stock int) (int, error) {
	if requested < 0 {
		return 0, ErrInvalidQuantity
	}
	return money.ClampInt(requested, 0, max(stock, 0)), nil
}

// ValidateAdd checks the quantity supplied to an add-to-cart operation.
func ValidateAdd(q int) error {
	if q < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// ValidateStep checks a single-step adjustment.
func ValidateStep(delta int) error {
	if delta != 1 && delta != -1 {
		return ErrInvalidQuantity
	}
	return nil
}
