// Package memory provides in-process repositories used when no database is
// configured and in tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

var _ product.Repository = (*ProductStore)(nil)

// ProductStore is a product catalog held in memory.
type ProductStore struct {
	mu    sync.RWMutex
	byID  map[string]product.Product
	order []string
}

// NewProductStore returns a ProductStore seeded with products.
func NewProductStore(products ...product.Product) *ProductStore {
	s := &ProductStore{byID: make(map[string]product.Product, len(products))}
	for _, p := range products {
		s.Put(p)
	}
	return s
}

// Put inserts or replaces a product.
func (s *ProductStore) Put(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.byID[p.ID] = p
}

// ListActive returns active products in insertion order.
func (s *ProductStore) ListActive(_ context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, 0, len(s.order))
	for _, id := range s.order {
		if p := s.byID[id]; p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetByID returns a product or product.ErrNotFound.
func (s *ProductStore) GetByID(_ context.Context, id string) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the products found among ids.
func (s *ProductStore) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
