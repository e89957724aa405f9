// Package cart implements the shopping cart aggregate and the reconciliation
// of guest carts into authenticated carts.
package cart

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/pricing"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/quantity"
)

// Sentinel errors for cart operations.
var (
	ErrInvalidQuantity    = quantity.ErrInvalidQuantity
	ErrProductUnavailable = errors.New("product unavailable")
	ErrLineNotFound       = errors.New("cart line not found")
	ErrInvalidOwner       = errors.New("invalid cart owner")
)

// ProductUnavailableError indicates a product that is missing, inactive or
// out of stock.
type ProductUnavailableError struct {
	ProductID string
	Reason    string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s unavailable: %s", e.ProductID, e.Reason)
}

// Is makes errors.Is(err, ErrProductUnavailable) match.
func (e *ProductUnavailableError) Is(target error) bool {
	return target == ErrProductUnavailable
}

// LineNotFoundError indicates an update targeting a product not in the cart.
type LineNotFoundError struct {
	ProductID string
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("product %s is not in the cart", e.ProductID)
}

// Is makes errors.Is(err, ErrLineNotFound) match.
func (e *LineNotFoundError) Is(target error) bool {
	return target == ErrLineNotFound
}

// OwnerKind distinguishes anonymous sessions from authenticated users.
type OwnerKind string

const (
	// Guest is an anonymous session.
	Guest OwnerKind = "guest"
	// User is an authenticated identity.
	User OwnerKind = "user"
)

// Owner identifies the single subject a cart belongs to.
type Owner struct {
	Kind OwnerKind
	ID   string
}

// GuestOwner returns the owner for an anonymous session.
func GuestOwner(sessionID string) Owner {
	return Owner{Kind: Guest, ID: sessionID}
}

// UserOwner returns the owner for an authenticated user.
func UserOwner(userID string) Owner {
	return Owner{Kind: User, ID: userID}
}

// Valid reports whether the owner has a known kind and a non-empty ID.
func (o Owner) Valid() bool {
	return (o.Kind == Guest || o.Kind == User) && o.ID != ""
}

func (o Owner) String() string {
	return string(o.Kind) + ":" + o.ID
}

// Line is one product-quantity pairing. Quantity is at least 1 while the
// line exists.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the persisted state of one owner's cart.
type Cart struct {
	Owner        Owner
	Lines        []Line
	DiscountCode string
	UpdatedAt    time.Time
}

// New returns an empty cart for owner.
func New(owner Owner) *Cart {
	return &Cart{Owner: owner}
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Lines = slices.Clone(c.Lines)
	return &out
}

// Quantity returns the quantity of productID, or 0 when absent.
func (c *Cart) Quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// Has reports whether a line for productID exists.
func (c *Cart) Has(productID string) bool {
	return c.index(productID) >= 0
}

// ProductIDs returns the product IDs of all lines in order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// set stores qty for productID, preserving line order. A non-positive qty
// removes the line.
func (c *Cart) set(productID string, qty int) {
	i := c.index(productID)
	switch {
	case qty <= 0 && i >= 0:
		c.Lines = slices.Delete(c.Lines, i, i+1)
	case qty <= 0:
	case i >= 0:
		c.Lines[i].Quantity = qty
	default:
		c.Lines = append(c.Lines, Line{ProductID: productID, Quantity: qty})
	}
}

func (c *Cart) index(productID string) int {
	return slices.IndexFunc(c.Lines, func(l Line) bool { return l.ProductID == productID })
}

// Repository persists carts. Load of an owner without a stored cart returns
// an empty cart rather than an error.
type Repository interface {
	Load(ctx context.Context, owner Owner) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, owner Owner) error
	// ClaimMerge records key as applied to owner. It returns false when the
	// key was already recorded.
	ClaimMerge(ctx context.Context, owner Owner, key string) (bool, error)
	// Atomic runs fn against a repository whose writes commit together, or
	// not at all when fn returns an error.
	Atomic(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Item is a cart line joined with current catalog data.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	ImageURL  string
	Quantity  int
	Stock     int
	Subtotal  decimal.Decimal
}

// View is the valued cart returned by every operation.
type View struct {
	Owner  Owner
	Items  []Item
	Totals pricing.Totals
}

// IsEmpty reports whether the view has no visible items.
func (v *View) IsEmpty() bool {
	return len(v.Items) == 0
}
