package telemetry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	m, err := New(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	m.ItemsAdded(ctx, 3)
	m.ItemsAdded(ctx, 2)
	m.CartCleared(ctx)
	m.CartMerged(ctx, 4, false)
	m.CartMerged(ctx, 4, true)
	m.OrderPlaced(ctx, decimal.RequireFromString("89.98"), 2)

	got := collect(t, reader)
	assert.Equal(t, int64(5), sumOf(t, got["shopflow.cart.items_added"]))
	assert.Equal(t, int64(1), sumOf(t, got["shopflow.cart.cleared"]))
	assert.Equal(t, int64(2), sumOf(t, got["shopflow.cart.merges"]))
	assert.Equal(t, int64(1), sumOf(t, got["shopflow.orders.placed"]))

	merges := got["shopflow.cart.merges"].Data.(metricdata.Sum[int64])
	for _, dp := range merges.DataPoints {
		v, ok := dp.Attributes.Value(attribute.Key("duplicate"))
		require.True(t, ok)
		assert.Equal(t, int64(1), dp.Value, "duplicate=%v", v.AsBool())
	}

	total, ok := got["shopflow.orders.total"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, total.DataPoints, 1)
	assert.InDelta(t, 89.98, total.DataPoints[0].Sum, 0.001)

	lines, ok := got["shopflow.cart.merged_lines"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Equal(t, uint64(1), lines.DataPoints[0].Count)
}

func TestMetrics_Noop(t *testing.T) {
	m, err := New(noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.ItemsAdded(ctx, 1)
	m.CartCleared(ctx)
	m.CartMerged(ctx, 1, false)
	m.OrderPlaced(ctx, decimal.NewFromInt(1), 1)
}
