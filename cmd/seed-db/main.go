// Command seed-db loads the demo catalog, discount codes and a gateway API
// key into the database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/MONA100421/ShopFlow-sub000/db"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
	"github.com/MONA100421/ShopFlow-sub000/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (default: embedded catalog)")
	flag.StringVar(&apiKey, "api-key", "", "gateway API key to seed (or SHOPFLOW_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOPFLOW_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOPFLOW_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOPFLOW_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOPFLOW_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedDiscounts(ctx, postgres.NewDiscountRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discount codes")
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	data := db.SeedProducts
	if productsFile != "" {
		slog.Info("reading products file", slog.String("path", productsFile))
		var err error
		if data, err = os.ReadFile(productsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}

	products, err := db.ParseProducts(data)
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedDiscounts(ctx context.Context, repo *postgres.DiscountRepository) error {
	slog.Info("seeding canonical discount codes")

	for _, c := range discount.Defaults() {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert code %s", c.Code)
		}
		slog.Info("upserted discount code", slog.String("code", c.Code), slog.String("description", c.Description))
	}
	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding gateway API key")

	info := auth.APIKeyInfo{
		ID:      "gateway",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Storefront gateway",
		Scopes:  []string{auth.ScopeActAsUser},
	}
	if err := repo.Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert gateway API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
