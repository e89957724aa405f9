package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
)

const (
	orderColumns = `id, owner_kind, owner_id, lines, subtotal, tax, discount, total, discount_code, status, created_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByOwnerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE owner_kind = $1 AND owner_id = $2 ORDER BY created_at DESC, id DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order lines are serialized to JSON for
// storage in the JSONB column. Inside CartRepository.Atomic the insert joins
// the cart transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, createOrderSQL,
		o.ID, string(o.Owner.Kind), o.Owner.ID, linesJSON,
		o.Subtotal, o.Tax, o.Discount, o.Total,
		o.DiscountCode, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a stored order or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, owner cart.Owner) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByOwnerSQL, string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %s: %w", owner, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		kind   string
		status string
		raw    []byte
	)
	err := row.Scan(
		&o.ID, &kind, &o.Owner.ID, &raw,
		&o.Subtotal, &o.Tax, &o.Discount, &o.Total,
		&o.DiscountCode, &status, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Owner.Kind = cart.OwnerKind(kind)
	o.Status = order.Status(status)
	if err := json.Unmarshal(raw, &o.Lines); err != nil {
		return o, fmt.Errorf("decoding order %q lines: %w", o.ID, err)
	}
	return o, nil
}
