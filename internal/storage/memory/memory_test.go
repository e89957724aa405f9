package memory

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/pricing"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
)

func TestProductStore(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore(
		product.Product{ID: "b", Name: "B", Price: decimal.NewFromInt(2), Stock: 1, Active: true},
		product.Product{ID: "a", Name: "A", Price: decimal.NewFromInt(1), Stock: 1, Active: false},
		product.Product{ID: "c", Name: "C", Price: decimal.NewFromInt(3), Stock: 0, Active: true},
	)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].ID)
	assert.Equal(t, "c", active[1].ID)

	p, err := s.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, p.Active)

	_, err = s.GetByID(ctx, "zzz")
	require.ErrorIs(t, err, product.ErrNotFound)

	found, err := s.GetByIDs(ctx, []string{"c", "missing", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestCartStore_LoadMissingIsEmpty(t *testing.T) {
	s := NewCartStore()
	owner := cart.GuestOwner("s1")

	c, err := s.Load(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, owner, c.Owner)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, s.Len())
}

func TestCartStore_SaveIsolatesCallerCopy(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()
	c := cart.New(cart.UserOwner("u"))
	c.Lines = []cart.Line{{ProductID: "a", Quantity: 1}}
	require.NoError(t, s.Save(ctx, c))

	c.Lines[0].Quantity = 99

	got, err := s.Load(ctx, c.Owner)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Lines[0].Quantity)
}

func TestCartStore_AtomicRollback(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()
	owner := cart.UserOwner("u")
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(ctx context.Context, repo cart.Repository) error {
		ok, err := repo.ClaimMerge(ctx, owner, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, repo.Save(ctx, &cart.Cart{Owner: owner, Lines: []cart.Line{{ProductID: "a", Quantity: 1}}}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, s.Len())

	ok, err := s.ClaimMerge(ctx, owner, "k")
	require.NoError(t, err)
	assert.True(t, ok, "rolled back claim must be reusable")

	ok, err = s.ClaimMerge(ctx, owner, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ClaimMerge(ctx, cart.UserOwner("other"), "k")
	require.NoError(t, err)
	assert.True(t, ok, "keys are scoped per owner")
}

func TestCartStore_AtomicCommit(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()
	g, u := cart.GuestOwner("g"), cart.UserOwner("u")
	require.NoError(t, s.Save(ctx, &cart.Cart{Owner: g, Lines: []cart.Line{{ProductID: "a", Quantity: 2}}}))

	err := s.Atomic(ctx, func(ctx context.Context, repo cart.Repository) error {
		if err := repo.Save(ctx, &cart.Cart{Owner: u, Lines: []cart.Line{{ProductID: "a", Quantity: 2}}}); err != nil {
			return err
		}
		return repo.Delete(ctx, g)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	got, err := s.Load(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity("a"))
}

func TestDiscountStore(t *testing.T) {
	ctx := context.Background()
	s := NewDiscountStore(discount.Code{Code: "welcome5", Amount: decimal.NewFromInt(5)})
	require.NoError(t, s.Upsert(ctx, discount.Code{Code: "WELCOME5", Amount: decimal.NewFromInt(6)}))

	codes, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "WELCOME5", codes[0].Code)
	assert.True(t, decimal.NewFromInt(6).Equal(codes[0].Amount))

	reg, err := discount.Load(ctx, s)
	require.NoError(t, err)
	_, ok := reg.Lookup("WELCOME5")
	assert.True(t, ok)
	_, ok = reg.Lookup("SAVE10")
	assert.True(t, ok)
}

func TestOrderStore(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	alice := cart.UserOwner("alice")

	require.NoError(t, s.Create(ctx, &order.Order{ID: "o1", Owner: alice, CreatedAt: time.Unix(1, 0)}))
	require.NoError(t, s.Create(ctx, &order.Order{ID: "o2", Owner: alice, CreatedAt: time.Unix(2, 0)}))
	require.NoError(t, s.Create(ctx, &order.Order{ID: "o3", Owner: cart.UserOwner("bob")}))
	require.Error(t, s.Create(ctx, &order.Order{ID: "o1"}))

	got, err := s.GetByID(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, alice, got.Owner)

	_, err = s.GetByID(ctx, "nope")
	require.ErrorIs(t, err, order.ErrNotFound)

	list, err := s.ListByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID)
}

func TestAPIKeyStore(t *testing.T) {
	pepper := []byte("pepper")
	hash := auth.HashKey(pepper, "secret")
	s := NewAPIKeyStore(auth.APIKeyInfo{ID: "k1", KeyHash: hash, Scopes: []string{auth.ScopeActAsUser}})

	info, err := auth.NewAuthenticator(s, pepper).Authenticate(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "k1", info.ID)

	_, err = s.FindByHash(context.Background(), "nope")
	require.Error(t, err)
}

func TestCheckoutEndToEnd(t *testing.T) {
	ctx := context.Background()
	products := NewProductStore(product.Product{
		ID: "p1", Name: "Headphones", Price: decimal.RequireFromString("49.99"), Stock: 5, Active: true,
	})
	carts := NewCartStore()
	orders := NewOrderStore()
	cartSvc := cart.NewService(carts, products, pricing.NewEngine(discount.NewRegistry(discount.Defaults()...)))
	orderSvc := order.NewService(cartSvc, orders)
	alice := cart.UserOwner("alice")

	_, err := orderSvc.Checkout(ctx, alice)
	require.ErrorIs(t, err, order.ErrEmptyCart)

	_, err = cartSvc.Add(ctx, alice, "p1", 2)
	require.NoError(t, err)
	_, err = cartSvc.SetDiscountCode(ctx, alice, "SAVE10")
	require.NoError(t, err)

	o, err := orderSvc.Checkout(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "99.98", o.Total.StringFixed(2))
	assert.Equal(t, "SAVE10", o.DiscountCode)

	v, err := cartSvc.View(ctx, alice)
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())

	products.Put(product.Product{ID: "p1", Name: "Headphones", Price: decimal.RequireFromString("59.99"), Stock: 5, Active: true})
	stored, err := orderSvc.Get(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "49.99", stored.Lines[0].UnitPrice.StringFixed(2), "orders are snapshots")
}
