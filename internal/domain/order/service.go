package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/pricing"
)

// Sentinel errors for order operations.
var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotFound  = errors.New("order not found")
)

// Carts is the part of the cart service checkout depends on.
type Carts interface {
	Drain(ctx context.Context, owner cart.Owner, fn func(ctx context.Context, v *cart.View) error) error
}

// Recorder receives checkout events for instrumentation.
type Recorder interface {
	OrderPlaced(ctx context.Context, total decimal.Decimal, items int)
}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced(context.Context, decimal.Decimal, int) {}

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

// WithTracerProvider sets the tracer provider used for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer("github.com/MONA100421/ShopFlow-sub000/internal/domain/order")
		}
	}
}

// WithClock overrides the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service encapsulates checkout and order history.
type Service struct {
	carts  Carts
	orders Repository
	rec    Recorder
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// NewService creates an order Service.
func NewService(carts Carts, orders Repository, opts ...Option) *Service {
	s := &Service{
		carts:  carts,
		orders: orders,
		rec:    nopRecorder{},
		tracer: otel.GetTracerProvider().Tracer("github.com/MONA100421/ShopFlow-sub000/internal/domain/order"),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Checkout snapshots the owner's cart into a pending order and clears the
// cart. Carts without visible items fail with ErrEmptyCart.
func (s *Service) Checkout(ctx context.Context, owner cart.Owner) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout", trace.WithAttributes(
		attribute.String("cart.owner", owner.String()),
	))
	defer span.End()

	var placed *Order
	err := s.carts.Drain(ctx, owner, func(ctx context.Context, v *cart.View) error {
		if v.IsEmpty() {
			return ErrEmptyCart
		}
		o := snapshot(v)
		o.ID = s.newID()
		o.CreatedAt = s.now().UTC()
		if err := s.orders.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		placed = o
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEmptyCart) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkout failed")
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", placed.ID),
		attribute.String("order.total", placed.Total.StringFixed(2)),
	)
	s.rec.OrderPlaced(ctx, placed.Total, placed.ItemCount())
	return placed, nil
}

// Get returns a placed order. Orders belonging to another owner are
// reported as not found.
func (s *Service) Get(ctx context.Context, owner cart.Owner, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Owner != owner {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByOwner returns the owner's orders, newest first.
func (s *Service) ListByOwner(ctx context.Context, owner cart.Owner) ([]Order, error) {
	orders, err := s.orders.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func snapshot(v *cart.View) *Order {
	o := &Order{
		Owner:    v.Owner,
		Lines:    make([]Line, len(v.Items)),
		Subtotal: v.Totals.Subtotal,
		Tax:      v.Totals.Tax,
		Discount: v.Totals.Discount,
		Total:    v.Totals.Total,
		Status:   StatusPending,
	}
	if v.Totals.DiscountStatus == pricing.DiscountApplied {
		o.DiscountCode = v.Totals.DiscountCode
	}
	for i, it := range v.Items {
		o.Lines[i] = Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
			LineTotal: it.Subtotal,
		}
	}
	return o
}
