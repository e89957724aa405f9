package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. The cart reads it but never modifies it.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Stock    int
	Active   bool
	Category string
	ImageURL string
}

// Available reports whether the product can be placed in a cart.
func (p Product) Available() bool {
	return p.Active && p.Stock > 0
}

// Repository defines read operations for the product catalog.
type Repository interface {
	ListActive(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs returns the products that exist among ids, in no particular
	// order. Missing ids are silently skipped.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Index maps products by ID.
func Index(products []Product) map[string]Product {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
