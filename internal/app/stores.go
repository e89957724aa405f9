package app

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/MONA100421/ShopFlow-sub000/db"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
	"github.com/MONA100421/ShopFlow-sub000/internal/storage/memory"
	"github.com/MONA100421/ShopFlow-sub000/internal/storage/postgres"
	"github.com/MONA100421/ShopFlow-sub000/pkg/health"
)

// stores groups the repositories of one storage backend.
type stores struct {
	kind      string
	products  product.Repository
	carts     cart.Repository
	discounts discount.Repository
	orders    order.Repository
	apiKeys   auth.Repository
	pinger    health.Pinger
	close     func()
}

func openPostgres(ctx context.Context, cfg *Config) (*stores, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &stores{
		kind:      "postgres",
		products:  postgres.NewProductRepository(pool),
		carts:     postgres.NewCartRepository(pool),
		discounts: postgres.NewDiscountRepository(pool),
		orders:    postgres.NewOrderRepository(pool),
		apiKeys:   postgres.NewAPIKeyRepository(pool),
		pinger:    pool,
		close:     pool.Close,
	}, nil
}

// openMemory builds in-memory stores seeded with the embedded catalog.
func openMemory(cfg *Config) (*stores, error) {
	products, err := db.ParseProducts(db.SeedProducts)
	if err != nil {
		return nil, errors.Wrap(err, "load seed catalog")
	}
	keys := memory.NewAPIKeyStore()
	if cfg.DevAPIKey != "" {
		keys.Put(auth.APIKeyInfo{
			ID:      "dev",
			KeyHash: auth.HashKey([]byte(cfg.APIKeyPepper), cfg.DevAPIKey),
			Name:    "Development gateway key",
			Scopes:  []string{auth.ScopeActAsUser},
		})
	}
	return &stores{
		kind:      "memory",
		products:  memory.NewProductStore(products...),
		carts:     memory.NewCartStore(),
		discounts: memory.NewDiscountStore(),
		orders:    memory.NewOrderStore(),
		apiKeys:   keys,
		close:     func() {},
	}, nil
}
