// Package discount defines the fixed-amount discount code registry.
package discount

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnknownCode is returned when a code is not present in the registry.
var ErrUnknownCode = errors.New("unknown discount code")

// Code maps a normalized discount code to a fixed currency amount.
type Code struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Defaults returns the canonical codes every registry starts from.
func Defaults() []Code {
	return []Code{
		{Code: "SAVE10", Amount: decimal.NewFromInt(10), Description: "$10 off your order"},
		{Code: "SAVE20", Amount: decimal.NewFromInt(20), Description: "$20 off your order"},
	}
}

// Normalize trims and upper-cases a code. Lookups are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides the persisted codes layered on top of Defaults.
type Repository interface {
	ListActive(ctx context.Context) ([]Code, error)
	Upsert(ctx context.Context, c Code) error
}

// Registry is an immutable snapshot of known codes. The zero value and nil
// registries know no codes.
type Registry struct {
	codes map[string]Code
}

// NewRegistry builds a registry from codes. Later entries override earlier
// ones with the same normalized code. Blank codes and non-positive amounts are
// skipped.
func NewRegistry(codes ...Code) *Registry {
	r := &Registry{codes: make(map[string]Code, len(codes))}
	for _, c := range codes {
		key := Normalize(c.Code)
		if key == "" || !c.Amount.IsPositive() {
			continue
		}
		c.Code = key
		r.codes[key] = c
	}
	return r
}

// Lookup resolves code after normalization.
func (r *Registry) Lookup(code string) (Code, bool) {
	if r == nil {
		return Code{}, false
	}
	c, ok := r.codes[Normalize(code)]
	return c, ok
}

// Len returns the number of known codes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.codes)
}

// Load builds a registry from Defaults overlaid with the repository's active
// codes.
func Load(ctx context.Context, repo Repository) (*Registry, error) {
	stored, err := repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list discount codes")
	}
	codes := append(Defaults(), stored...)
	return NewRegistry(codes...), nil
}
