package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT lines, discount_code, updated_at
		FROM carts WHERE owner_kind = $1 AND owner_id = $2`

	lockOwnerSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	saveCartSQL = `INSERT INTO carts (owner_kind, owner_id, lines, discount_code, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_kind, owner_id) DO UPDATE SET
			lines = EXCLUDED.lines, discount_code = EXCLUDED.discount_code, updated_at = EXCLUDED.updated_at`

	deleteCartSQL = `DELETE FROM carts WHERE owner_kind = $1 AND owner_id = $2`

	claimMergeSQL = `INSERT INTO cart_merges (owner_kind, owner_id, merge_key)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Lines are
// stored as a JSONB array in line order.
type CartRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool, q: pool}
}

// Load returns the owner's cart, or an empty cart when none is stored. Inside
// Atomic it also takes a transaction-scoped advisory lock on the owner.
func (r *CartRepository) Load(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	if r.inTx() {
		if _, err := r.q.Exec(ctx, lockOwnerSQL, owner.String()); err != nil {
			return nil, fmt.Errorf("locking cart %s: %w", owner, err)
		}
	}

	var (
		raw []byte
		c   = cart.New(owner)
	)
	err := r.q.QueryRow(ctx, loadCartSQL, string(owner.Kind), owner.ID).Scan(&raw, &c.DiscountCode, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.New(owner), nil
		}
		return nil, fmt.Errorf("loading cart %s: %w", owner, err)
	}
	if err := json.Unmarshal(raw, &c.Lines); err != nil {
		return nil, fmt.Errorf("decoding cart %s lines: %w", owner, err)
	}
	return c, nil
}

// Save upserts the cart.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshaling cart lines: %w", err)
	}

	_, err = r.q.Exec(ctx, saveCartSQL, string(c.Owner.Kind), c.Owner.ID, raw, c.DiscountCode, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving cart %s: %w", c.Owner, err)
	}
	return nil
}

// Delete removes the owner's cart. Deleting a missing cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, owner cart.Owner) error {
	if _, err := r.q.Exec(ctx, deleteCartSQL, string(owner.Kind), owner.ID); err != nil {
		return fmt.Errorf("deleting cart %s: %w", owner, err)
	}
	return nil
}

// ClaimMerge records a merge receipt. It returns false when the key was
// already recorded for owner.
func (r *CartRepository) ClaimMerge(ctx context.Context, owner cart.Owner, key string) (bool, error) {
	tag, err := r.q.Exec(ctx, claimMergeSQL, string(owner.Kind), owner.ID, key)
	if err != nil {
		return false, fmt.Errorf("claiming merge %q for %s: %w", key, owner, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Atomic runs fn inside a transaction. Nested calls reuse the outer
// transaction, and the context passed to fn carries it so other
// repositories (orders) commit or roll back together with the cart.
func (r *CartRepository) Atomic(ctx context.Context, fn func(context.Context, cart.Repository) error) error {
	if r.inTx() {
		return fn(ctx, r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(withTx(ctx, tx), &CartRepository{q: tx})
	})
}

func (r *CartRepository) inTx() bool {
	return r.pool == nil
}
