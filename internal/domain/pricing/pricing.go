// Package pricing computes cart totals from valued lines and an optional
// discount code.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/money"
)

// DefaultTaxRate is applied to the pre-discount subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.10")

// ErrInvalidDiscountCode is returned by callers that surface a rejected code
// as an error value.
var ErrInvalidDiscountCode = errors.New("invalid discount code")

// DiscountStatus reports what happened to the supplied discount code.
type DiscountStatus string

const (
	// DiscountNone means no code was supplied.
	DiscountNone DiscountStatus = "none"
	// DiscountApplied means the code was recognized.
	DiscountApplied DiscountStatus = "applied"
	// DiscountInvalid means the code was not recognized and no discount was given.
	DiscountInvalid DiscountStatus = "invalid"
)

// Line is a valued line item: a unit price already resolved from the catalog.
type Line struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the derived pricing result. It is never persisted.
type Totals struct {
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
	DiscountCode   string
	DiscountStatus DiscountStatus
}

// Err returns ErrInvalidDiscountCode when the code was rejected.
func (t Totals) Err() error {
	if t.DiscountStatus == DiscountInvalid {
		return ErrInvalidDiscountCode
	}
	return nil
}

// Engine computes Totals. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	TaxRate decimal.Decimal
	Codes   *discount.Registry
}

// NewEngine returns an Engine using DefaultTaxRate and the given registry.
func NewEngine(codes *discount.Registry) *Engine {
	return &Engine{TaxRate: DefaultTaxRate, Codes: codes}
}

// ComputeTotals prices lines and resolves code against the registry.
//
//	subtotal = sum(unitPrice * quantity)
//	tax      = round2(subtotal * taxRate)
//	discount = min(codeAmount, subtotal)
//	total    = round2(max(subtotal + tax - discount, 0))
//
// Tax is computed on the subtotal before the discount.
func (e *Engine) ComputeTotals(lines []Line, code string) Totals {
	subtotal := money.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(money.Line(l.UnitPrice, l.Quantity))
	}

	tax := money.Round2(subtotal.Mul(e.TaxRate))

	t := Totals{
		Subtotal:       money.Round2(subtotal),
		Tax:            tax,
		Discount:       money.Zero,
		DiscountStatus: DiscountNone,
	}

	if normalized := discount.Normalize(code); normalized != "" {
		t.DiscountCode = normalized
		if c, ok := e.Codes.Lookup(normalized); ok {
			t.Discount = money.Round2(decimal.Min(c.Amount, subtotal))
			t.DiscountStatus = DiscountApplied
		} else {
			t.DiscountStatus = DiscountInvalid
		}
	}

	t.Total = money.Round2(money.NonNegative(subtotal.Add(tax).Sub(t.Discount)))
	return t
}

// Validate reports whether code is known, without pricing anything.
func (e *Engine) Validate(code string) (discount.Code, error) {
	c, ok := e.Codes.Lookup(code)
	if !ok {
		return discount.Code{}, ErrInvalidDiscountCode
	}
	return c, nil
}
