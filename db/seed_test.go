package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProducts_Seed(t *testing.T) {
	products, err := ParseProducts(SeedProducts)
	require.NoError(t, err)
	require.NotEmpty(t, products)

	first := products[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "49.99", first.Price.StringFixed(2))
	assert.True(t, first.Active)
	assert.Positive(t, first.Stock)
}

func TestParseProducts(t *testing.T) {
	products, err := ParseProducts([]byte(`[
		{"id":"a","name":"A","price":12.5,"stock":3,"active":false,"extra":{"x":1}},
		{"id":"b","price":"0.99"}
	]`))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "12.50", products[0].Price.StringFixed(2))
	assert.False(t, products[0].Active)
	assert.Equal(t, "0.99", products[1].Price.String())
	assert.True(t, products[1].Active)
}

func TestParseProducts_Invalid(t *testing.T) {
	for name, input := range map[string]string{
		"not an array":   `{}`,
		"missing id":     `[{"name":"x"}]`,
		"negative price": `[{"id":"x","price":"-1"}]`,
		"bad price":      `[{"id":"x","price":"abc"}]`,
		"negative stock": `[{"id":"x","stock":-2}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProducts([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestSchema(t *testing.T) {
	for _, table := range []string{"products", "carts", "cart_merges", "discount_codes", "orders", "api_keys"} {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
