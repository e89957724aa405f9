// Package telemetry records cart and checkout metrics with OpenTelemetry.
package telemetry

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
)

// MeterName is the instrumentation scope of every instrument.
const MeterName = "github.com/MONA100421/ShopFlow-sub000"

var (
	_ cart.Recorder  = (*Metrics)(nil)
	_ order.Recorder = (*Metrics)(nil)
)

// Metrics holds the cart instruments.
type Metrics struct {
	itemsAdded   metric.Int64Counter
	cartsCleared metric.Int64Counter
	merges       metric.Int64Counter
	mergedLines  metric.Int64Histogram
	orders       metric.Int64Counter
	orderTotal   metric.Float64Histogram
	orderItems   metric.Int64Histogram
}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(MeterName)

	var (
		m   Metrics
		err error
	)
	if m.itemsAdded, err = meter.Int64Counter("shopflow.cart.items_added",
		metric.WithDescription("Units added to carts"),
		metric.WithUnit("{item}"),
	); err != nil {
		return nil, errors.Wrap(err, "items_added counter")
	}
	if m.cartsCleared, err = meter.Int64Counter("shopflow.cart.cleared",
		metric.WithDescription("Carts emptied by clear or checkout"),
	); err != nil {
		return nil, errors.Wrap(err, "cleared counter")
	}
	if m.merges, err = meter.Int64Counter("shopflow.cart.merges",
		metric.WithDescription("Guest to user cart reconciliations"),
	); err != nil {
		return nil, errors.Wrap(err, "merges counter")
	}
	if m.mergedLines, err = meter.Int64Histogram("shopflow.cart.merged_lines",
		metric.WithDescription("Lines in the user cart after a merge"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 20, 50),
	); err != nil {
		return nil, errors.Wrap(err, "merged_lines histogram")
	}
	if m.orders, err = meter.Int64Counter("shopflow.orders.placed",
		metric.WithDescription("Orders placed at checkout"),
	); err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	if m.orderTotal, err = meter.Float64Histogram("shopflow.orders.total",
		metric.WithDescription("Order grand total"),
		metric.WithUnit("{USD}"),
		metric.WithExplicitBucketBoundaries(0, 10, 25, 50, 100, 250, 500, 1000),
	); err != nil {
		return nil, errors.Wrap(err, "order total histogram")
	}
	if m.orderItems, err = meter.Int64Histogram("shopflow.orders.items",
		metric.WithDescription("Units per order"),
		metric.WithUnit("{item}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 50),
	); err != nil {
		return nil, errors.Wrap(err, "order items histogram")
	}
	return &m, nil
}

func (m *Metrics) ItemsAdded(ctx context.Context, quantity int) {
	m.itemsAdded.Add(ctx, int64(quantity))
}

func (m *Metrics) CartCleared(ctx context.Context) {
	m.cartsCleared.Add(ctx, 1)
}

func (m *Metrics) CartMerged(ctx context.Context, lines int, duplicate bool) {
	m.merges.Add(ctx, 1, metric.WithAttributes(attribute.Bool("duplicate", duplicate)))
	if !duplicate {
		m.mergedLines.Record(ctx, int64(lines))
	}
}

func (m *Metrics) OrderPlaced(ctx context.Context, total decimal.Decimal, items int) {
	m.orders.Add(ctx, 1)
	m.orderTotal.Record(ctx, total.InexactFloat64())
	m.orderItems.Record(ctx, int64(items))
}
