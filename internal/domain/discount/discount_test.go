package discount

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	codes []Code
	err   error
}

func (m *mockRepo) ListActive(_ context.Context) ([]Code, error) {
	return m.codes, m.err
}

func (m *mockRepo) Upsert(_ context.Context, c Code) error {
	m.codes = append(m.codes, c)
	return m.err
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "SAVE10", Normalize("  save10 "))
	assert.Equal(t, "", Normalize("   "))
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(Defaults()...)

	tests := []struct {
		name       string
		code       string
		wantOK     bool
		wantAmount decimal.Decimal
	}{
		{name: "exact", code: "SAVE10", wantOK: true, wantAmount: decimal.NewFromInt(10)},
		{name: "lower case", code: "save20", wantOK: true, wantAmount: decimal.NewFromInt(20)},
		{name: "padded", code: "  Save20\t", wantOK: true, wantAmount: decimal.NewFromInt(20)},
		{name: "unknown", code: "20DOLLAROFF", wantOK: false},
		{name: "empty", code: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := r.Lookup(tt.code)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.True(t, tt.wantAmount.Equal(c.Amount))
			}
		})
	}
}

func TestNewRegistry_SkipsInvalidAndOverrides(t *testing.T) {
	r := NewRegistry(
		Code{Code: "save10", Amount: decimal.NewFromInt(10)},
		Code{Code: "SAVE10", Amount: decimal.NewFromInt(15)},
		Code{Code: " ", Amount: decimal.NewFromInt(5)},
		Code{Code: "FREE", Amount: decimal.Zero},
		Code{Code: "NEG", Amount: decimal.NewFromInt(-5)},
	)

	assert.Equal(t, 1, r.Len())
	c, ok := r.Lookup("save10")
	require.True(t, ok)
	assert.Equal(t, "SAVE10", c.Code)
	assert.True(t, decimal.NewFromInt(15).Equal(c.Amount))
}

func TestRegistry_NilIsEmpty(t *testing.T) {
	var r *Registry
	_, ok := r.Lookup("SAVE10")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestLoad(t *testing.T) {
	repo := &mockRepo{codes: []Code{
		{Code: "WELCOME5", Amount: decimal.NewFromInt(5)},
		{Code: "SAVE20", Amount: decimal.NewFromInt(25)},
	}}

	r, err := Load(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	c, ok := r.Lookup("save20")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(25).Equal(c.Amount), "stored codes override defaults")
}

func TestLoad_Error(t *testing.T) {
	_, err := Load(context.Background(), &mockRepo{err: errors.New("db down")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list discount codes")
}
