package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
)

var _ order.Repository = (*OrderStore)(nil)

// OrderStore keeps orders in memory in creation order.
type OrderStore struct {
	mu     sync.RWMutex
	orders []order.Order
}

// NewOrderStore returns an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

func (s *OrderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders {
		if existing.ID == o.ID {
			return errors.Errorf("order %s already exists", o.ID)
		}
	}
	cp := *o
	cp.Lines = slices.Clone(o.Lines)
	s.orders = append(s.orders, cp)
	return nil
}

func (s *OrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			o.Lines = slices.Clone(o.Lines)
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (s *OrderStore) ListByOwner(_ context.Context, owner cart.Owner) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, 0)
	for i := len(s.orders) - 1; i >= 0; i-- {
		if o := s.orders[i]; o.Owner == owner {
			o.Lines = slices.Clone(o.Lines)
			out = append(out, o)
		}
	}
	return out, nil
}
