package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
)

var _ cart.Repository = (*CartStore)(nil)

type cartState struct {
	carts  map[string]*cart.Cart
	merges map[string]struct{}
}

func (s *cartState) clone() *cartState {
	return &cartState{carts: maps.Clone(s.carts), merges: maps.Clone(s.merges)}
}

// CartStore keeps carts in memory. Atomic stages writes on a copy of the
// state and swaps it in when the callback succeeds.
type CartStore struct {
	mu    sync.Mutex
	state *cartState
}

// NewCartStore returns an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{state: &cartState{
		carts:  make(map[string]*cart.Cart),
		merges: make(map[string]struct{}),
	}}
}

func (s *CartStore) Load(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&cartTx{state: s.state}).Load(ctx, owner)
}

func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&cartTx{state: s.state}).Save(ctx, c)
}

func (s *CartStore) Delete(ctx context.Context, owner cart.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&cartTx{state: s.state}).Delete(ctx, owner)
}

func (s *CartStore) ClaimMerge(ctx context.Context, owner cart.Owner, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&cartTx{state: s.state}).ClaimMerge(ctx, owner, key)
}

// Atomic runs fn against a staged copy of the store. Concurrent callers are
// serialized for the duration of fn.
func (s *CartStore) Atomic(ctx context.Context, fn func(context.Context, cart.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := s.state.clone()
	if err := fn(ctx, &cartTx{state: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

// Len returns the number of stored carts.
func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.carts)
}

// cartTx operates on a state without locking. Stored carts are never
// mutated in place, so a shallow map clone is a valid snapshot.
type cartTx struct {
	state *cartState
}

func (t *cartTx) Load(_ context.Context, owner cart.Owner) (*cart.Cart, error) {
	if c, ok := t.state.carts[owner.String()]; ok {
		return c.Clone(), nil
	}
	return cart.New(owner), nil
}

func (t *cartTx) Save(_ context.Context, c *cart.Cart) error {
	t.state.carts[c.Owner.String()] = c.Clone()
	return nil
}

func (t *cartTx) Delete(_ context.Context, owner cart.Owner) error {
	delete(t.state.carts, owner.String())
	return nil
}

func (t *cartTx) ClaimMerge(_ context.Context, owner cart.Owner, key string) (bool, error) {
	k := owner.String() + "\x00" + key
	if _, ok := t.state.merges[k]; ok {
		return false, nil
	}
	t.state.merges[k] = struct{}{}
	return true, nil
}

func (t *cartTx) Atomic(ctx context.Context, fn func(context.Context, cart.Repository) error) error {
	return fn(ctx, t)
}
