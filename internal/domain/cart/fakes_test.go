package cart

import (
	"context"
	"maps"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/pricing"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

// --- Mock implementations ---

type fakeState struct {
	carts  map[string]*Cart
	merges map[string]bool
}

func (s *fakeState) clone() *fakeState {
	return &fakeState{carts: maps.Clone(s.carts), merges: maps.Clone(s.merges)}
}

// fakeCarts is an in-memory cart Repository. failSave makes every Save fail;
// failDelete makes every Delete fail.
type fakeCarts struct {
	mu         sync.Mutex
	state      *fakeState
	failSave   error
	failDelete error
	saves      int
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{state: &fakeState{carts: map[string]*Cart{}, merges: map[string]bool{}}}
}

func (f *fakeCarts) Load(ctx context.Context, owner Owner) (*Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&fakeTx{f: f, state: f.state}).Load(ctx, owner)
}

func (f *fakeCarts) Save(ctx context.Context, c *Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&fakeTx{f: f, state: f.state}).Save(ctx, c)
}

func (f *fakeCarts) Delete(ctx context.Context, owner Owner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&fakeTx{f: f, state: f.state}).Delete(ctx, owner)
}

func (f *fakeCarts) ClaimMerge(ctx context.Context, owner Owner, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&fakeTx{f: f, state: f.state}).ClaimMerge(ctx, owner, key)
}

func (f *fakeCarts) Atomic(ctx context.Context, fn func(context.Context, Repository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	staged := f.state.clone()
	if err := fn(ctx, &fakeTx{f: f, state: staged}); err != nil {
		return err
	}
	f.state = staged
	return nil
}

// stored returns the persisted cart without get-or-create semantics.
func (f *fakeCarts) stored(owner Owner) (*Cart, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.state.carts[owner.String()]
	return c, ok
}

type fakeTx struct {
	f     *fakeCarts
	state *fakeState
}

func (t *fakeTx) Load(_ context.Context, owner Owner) (*Cart, error) {
	if c, ok := t.state.carts[owner.String()]; ok {
		return c.Clone(), nil
	}
	return New(owner), nil
}

func (t *fakeTx) Save(_ context.Context, c *Cart) error {
	if t.f.failSave != nil {
		return t.f.failSave
	}
	t.f.saves++
	t.state.carts[c.Owner.String()] = c.Clone()
	return nil
}

func (t *fakeTx) Delete(_ context.Context, owner Owner) error {
	if t.f.failDelete != nil {
		return t.f.failDelete
	}
	delete(t.state.carts, owner.String())
	return nil
}

func (t *fakeTx) ClaimMerge(_ context.Context, owner Owner, key string) (bool, error) {
	k := owner.String() + "/" + key
	if t.state.merges[k] {
		return false, nil
	}
	t.state.merges[k] = true
	return true, nil
}

func (t *fakeTx) Atomic(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, t)
}

type fakeProducts struct {
	mu   sync.Mutex
	byID map[string]product.Product
	err  error
}

func newFakeProducts(products ...product.Product) *fakeProducts {
	return &fakeProducts{byID: product.Index(products)}
}

func (f *fakeProducts) put(p product.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[p.ID] = p
}

func (f *fakeProducts) ListActive(context.Context) ([]product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []product.Product
	for _, p := range f.byID {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	added     int
	cleared   int
	merges    int
	duplicate int
}

func (r *fakeRecorder) ItemsAdded(_ context.Context, q int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added += q
}

func (r *fakeRecorder) CartCleared(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *fakeRecorder) CartMerged(_ context.Context, _ int, duplicate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merges++
	if duplicate {
		r.duplicate++
	}
}

// --- Helpers ---

var errBoom = errors.New("boom")

func newProduct(id string, price string, stock int) product.Product {
	return product.Product{
		ID:     id,
		Name:   "Product " + id,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
}

func newTestService(carts Repository, products product.Repository, opts ...Option) *Service {
	engine := pricing.NewEngine(discount.NewRegistry(discount.Defaults()...))
	return NewService(carts, products, engine, opts...)
}
