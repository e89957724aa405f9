package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/money"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/pricing"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/quantity"
)

const tracerName = "github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"

// Recorder receives cart events for instrumentation.
type Recorder interface {
	ItemsAdded(ctx context.Context, quantity int)
	CartCleared(ctx context.Context)
	CartMerged(ctx context.Context, lines int, duplicate bool)
}

type nopRecorder struct{}

func (nopRecorder) ItemsAdded(context.Context, int)       {}
func (nopRecorder) CartCleared(context.Context)           {}
func (nopRecorder) CartMerged(context.Context, int, bool) {}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.rec = r
		}
	}
}

// WithTracerProvider sets the tracer provider used for merge spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock overrides the time source for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service implements the cart operations. Mutations on the same owner are
// serialized.
type Service struct {
	carts    Repository
	products product.Repository
	pricing  *pricing.Engine
	locks    *ownerLocks
	rec      Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository, engine *pricing.Engine, opts ...Option) *Service {
	s := &Service{
		carts:    carts,
		products: products,
		pricing:  engine,
		locks:    newOwnerLocks(),
		rec:      nopRecorder{},
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View returns the visible items and totals of the owner's cart.
func (s *Service) View(ctx context.Context, owner Owner) (*View, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	c, err := s.carts.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return s.view(ctx, c)
}

// Items returns the visible items of the owner's cart. Lines whose product
// is missing or inactive are hidden but kept in storage.
func (s *Service) Items(ctx context.Context, owner Owner) ([]Item, error) {
	v, err := s.View(ctx, owner)
	if err != nil {
		return nil, err
	}
	return v.Items, nil
}

// Totals prices the owner's cart.
func (s *Service) Totals(ctx context.Context, owner Owner) (pricing.Totals, error) {
	v, err := s.View(ctx, owner)
	if err != nil {
		return pricing.Totals{}, err
	}
	return v.Totals, nil
}

// Add puts qty units of productID into the cart, combining with an existing
// line and clamping to stock.
func (s *Service) Add(ctx context.Context, owner Owner, productID string, qty int) (*View, error) {
	if err := quantity.ValidateAdd(qty); err != nil {
		return nil, err
	}
	v, err := s.mutate(ctx, owner, func(ctx context.Context, c *Cart) error {
		p, err := s.availableProduct(ctx, productID)
		if err != nil {
			return err
		}
		c.set(productID, quantity.ApplyDelta(c.Quantity(productID), qty, p.Stock))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.rec.ItemsAdded(ctx, qty)
	return v, nil
}

// UpdateQuantity moves an existing line by one unit and reclamps it to
// current stock. Reaching zero removes the line. Decrements are allowed even
// when the product is missing or inactive; the line then only shrinks.
func (s *Service) UpdateQuantity(ctx context.Context, owner Owner, productID string, delta int) (*View, error) {
	if err := quantity.ValidateStep(delta); err != nil {
		return nil, err
	}
	return s.mutate(ctx, owner, func(ctx context.Context, c *Cart) error {
		if !c.Has(productID) {
			return &LineNotFoundError{ProductID: productID}
		}
		current := c.Quantity(productID)
		if delta > 0 {
			p, err := s.availableProduct(ctx, productID)
			if err != nil {
				return err
			}
			c.set(productID, quantity.ApplyDelta(current, delta, p.Stock))
			return nil
		}

		stock := current
		p, err := s.products.GetByID(ctx, productID)
		switch {
		case errors.Is(err, product.ErrNotFound):
		case err != nil:
			return fmt.Errorf("get product: %w", err)
		case p.Active:
			stock = p.Stock
		}
		c.set(productID, quantity.ApplyDelta(current, delta, stock))
		return nil
	})
}

// SetQuantity sets the line to qty clamped to stock. Zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, owner Owner, productID string, qty int) (*View, error) {
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, owner, func(ctx context.Context, c *Cart) error {
		if qty == 0 {
			c.set(productID, 0)
			return nil
		}
		p, err := s.availableProduct(ctx, productID)
		if err != nil {
			return err
		}
		n, err := quantity.ApplyAbsolute(qty, p.Stock)
		if err != nil {
			return err
		}
		c.set(productID, n)
		return nil
	})
}

// Remove deletes the line for productID. Removing an absent line is a no-op.
func (s *Service) Remove(ctx context.Context, owner Owner, productID string) (*View, error) {
	return s.mutate(ctx, owner, func(_ context.Context, c *Cart) error {
		c.set(productID, 0)
		return nil
	})
}

// Clear removes every line and the discount code.
func (s *Service) Clear(ctx context.Context, owner Owner) (*View, error) {
	v, err := s.mutate(ctx, owner, func(_ context.Context, c *Cart) error {
		c.Lines = nil
		c.DiscountCode = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.rec.CartCleared(ctx)
	return v, nil
}

// SetDiscountCode stores a recognized code on the cart. An unrecognized code
// clears any stored code and the returned totals report DiscountInvalid.
// An empty code behaves like ClearDiscountCode.
func (s *Service) SetDiscountCode(ctx context.Context, owner Owner, code string) (*View, error) {
	normalized := discount.Normalize(code)
	_, validateErr := s.pricing.Validate(normalized)
	if normalized == "" {
		validateErr = nil
	}

	v, err := s.mutate(ctx, owner, func(_ context.Context, c *Cart) error {
		if validateErr != nil {
			c.DiscountCode = ""
			return nil
		}
		c.DiscountCode = normalized
		return nil
	})
	if err != nil {
		return nil, err
	}
	if validateErr != nil {
		v.Totals.DiscountCode = normalized
		v.Totals.DiscountStatus = pricing.DiscountInvalid
	}
	return v, nil
}

// ClearDiscountCode removes the stored discount code.
func (s *Service) ClearDiscountCode(ctx context.Context, owner Owner) (*View, error) {
	return s.mutate(ctx, owner, func(_ context.Context, c *Cart) error {
		c.DiscountCode = ""
		return nil
	})
}

// mutate loads the owner's cart under the owner lock, applies fn to a copy
// and persists the copy only when fn succeeds.
func (s *Service) mutate(ctx context.Context, owner Owner, fn func(ctx context.Context, c *Cart) error) (*View, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	unlock := s.locks.lock(owner.String())
	defer unlock()

	current, err := s.carts.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	next := current.Clone()
	if err := fn(ctx, next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return s.view(ctx, next)
}

// availableProduct returns the product when it can be placed in a cart.
func (s *Service) availableProduct(ctx context.Context, productID string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	switch {
	case errors.Is(err, product.ErrNotFound):
		return nil, &ProductUnavailableError{ProductID: productID, Reason: "not found"}
	case err != nil:
		return nil, fmt.Errorf("get product: %w", err)
	case !p.Active:
		return nil, &ProductUnavailableError{ProductID: productID, Reason: "inactive"}
	case p.Stock <= 0:
		return nil, &ProductUnavailableError{ProductID: productID, Reason: "out of stock"}
	}
	return p, nil
}

// view joins the cart lines with current catalog data and prices them.
func (s *Service) view(ctx context.Context, c *Cart) (*View, error) {
	v := &View{Owner: c.Owner, Items: []Item{}}
	if !c.IsEmpty() {
		found, err := s.products.GetByIDs(ctx, c.ProductIDs())
		if err != nil {
			return nil, fmt.Errorf("get products: %w", err)
		}
		byID := product.Index(found)
		for _, l := range c.Lines {
			p, ok := byID[l.ProductID]
			if !ok || !p.Active {
				continue
			}
			v.Items = append(v.Items, Item{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				ImageURL:  p.ImageURL,
				Quantity:  l.Quantity,
				Stock:     p.Stock,
				Subtotal:  money.Round2(money.Line(p.Price, l.Quantity)),
			})
		}
	}

	lines := make([]pricing.Line, len(v.Items))
	for i, it := range v.Items {
		lines[i] = pricing.Line{ProductID: it.ProductID, UnitPrice: it.Price, Quantity: it.Quantity}
	}
	v.Totals = s.pricing.ComputeTotals(lines, c.DiscountCode)
	return v, nil
}

func ownerAttr(o Owner) attribute.KeyValue {
	return attribute.String("cart.owner", o.String())
}

// Drain passes the current view to fn under the owner lock and clears the
// cart in the same Atomic unit. fn receives the unit's context, so writes it
// makes through repositories sharing the cart store commit or roll back with
// the cleared cart. A failing fn or clear leaves the cart untouched.
func (s *Service) Drain(ctx context.Context, owner Owner, fn func(ctx context.Context, v *View) error) error {
	if !owner.Valid() {
		return ErrInvalidOwner
	}
	unlock := s.locks.lock(owner.String())
	defer unlock()

	err := s.carts.Atomic(ctx, func(ctx context.Context, repo Repository) error {
		c, err := repo.Load(ctx, owner)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		v, err := s.view(ctx, c)
		if err != nil {
			return err
		}

		empty := New(owner)
		empty.UpdatedAt = s.now()
		if err := repo.Save(ctx, empty); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return fn(ctx, v)
	})
	if err != nil {
		return err
	}
	s.rec.CartCleared(ctx)
	return nil
}
