package memory

import (
	"context"
	"sync"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
)

var _ discount.Repository = (*DiscountStore)(nil)

// DiscountStore holds discount codes in memory.
type DiscountStore struct {
	mu    sync.RWMutex
	codes []discount.Code
}

// NewDiscountStore returns a DiscountStore seeded with codes.
func NewDiscountStore(codes ...discount.Code) *DiscountStore {
	s := &DiscountStore{}
	for _, c := range codes {
		_ = s.Upsert(context.Background(), c)
	}
	return s
}

func (s *DiscountStore) ListActive(_ context.Context) ([]discount.Code, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]discount.Code, len(s.codes))
	copy(out, s.codes)
	return out, nil
}

// Upsert stores c under its normalized code.
func (s *DiscountStore) Upsert(_ context.Context, c discount.Code) error {
	c.Code = discount.Normalize(c.Code)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.codes {
		if s.codes[i].Code == c.Code {
			s.codes[i] = c
			return nil
		}
	}
	s.codes = append(s.codes, c)
	return nil
}
