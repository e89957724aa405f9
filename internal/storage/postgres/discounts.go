package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
)

const (
	listActiveDiscountCodesSQL = `SELECT code, amount, description
		FROM discount_codes WHERE active ORDER BY code`

	upsertDiscountCodeSQL = `INSERT INTO discount_codes (code, amount, description, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			amount = EXCLUDED.amount, description = EXCLUDED.description, active = TRUE`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListActive returns every active code.
func (r *DiscountRepository) ListActive(ctx context.Context) ([]discount.Code, error) {
	rows, err := r.pool.Query(ctx, listActiveDiscountCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discount codes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (discount.Code, error) {
		var c discount.Code
		err := row.Scan(&c.Code, &c.Amount, &c.Description)
		return c, err
	})
}

// Upsert stores c under its normalized code and marks it active.
func (r *DiscountRepository) Upsert(ctx context.Context, c discount.Code) error {
	code := discount.Normalize(c.Code)
	if _, err := r.pool.Exec(ctx, upsertDiscountCodeSQL, code, c.Amount, c.Description); err != nil {
		return fmt.Errorf("upserting discount code %q: %w", code, err)
	}
	return nil
}
