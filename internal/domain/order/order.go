package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
)

// Status is the lifecycle state of an order.
type Status string

// StatusPending is the state of a freshly placed order.
const StatusPending Status = "pending"

// Order is a frozen snapshot of a cart at checkout. It is never re-priced.
type Order struct {
	ID           string
	Owner        cart.Owner
	Lines        []Line
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	DiscountCode string
	Status       Status
	CreatedAt    time.Time
}

// Line captures a product as it was priced at checkout.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// ItemCount returns the total number of units in the order.
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByOwner returns the owner's orders, newest first.
	ListByOwner(ctx context.Context, owner cart.Owner) ([]Order, error)
}
