// Command discount-import publishes partner discount codes that appear in at
// least N of the gzip files in a directory.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/MONA100421/ShopFlow-sub000/internal/ingest"
	"github.com/MONA100421/ShopFlow-sub000/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		minFiles    int
		capacity    uint
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz code files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&minFiles, "min-files", 2, "number of files a code must appear in")
	flag.UintVar(&capacity, "capacity", 10_000_000, "expected codes per file (bloom filter sizing)")
	flag.BoolVar(&dryRun, "dry-run", false, "report confirmed codes without writing them")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := ingest.Config{MinFiles: minFiles, Capacity: capacity}
	if err := run(ctx, dataDir, databaseURL, cfg, dryRun); err != nil {
		slog.Error("discount import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("discount import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, cfg ingest.Config, dryRun bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz files in %s", dataDir)
	}

	codes, stats, err := ingest.Confirm(ctx, files, cfg)
	if err != nil {
		return err
	}
	slog.Info("scan finished",
		slog.Int("files", len(files)),
		slog.Int("lines", stats.Lines),
		slog.Int("malformed", stats.Malformed),
		slog.Int("conflicts", stats.Conflicts),
		slog.Int("confirmed", stats.Confirmed),
	)

	if dryRun {
		for _, c := range codes {
			slog.Info("confirmed code", slog.String("code", c.Code), slog.String("amount", c.Amount.StringFixed(2)))
		}
		return nil
	}
	if len(codes) == 0 {
		slog.Info("no confirmed codes to write")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewDiscountRepository(pool)
	for i, c := range codes {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert code %s", c.Code)
		}
		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}
	return nil
}
