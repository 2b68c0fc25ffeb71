package currency_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-checkout/internal/currency"
	"storefront-checkout/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already normalized", input: "USD", want: "USD"},
		{name: "lowercase", input: "usd", want: "USD"},
		{name: "mixed case with whitespace", input: "  eUr \n", want: "EUR"},
		{name: "unknown code", input: "ZZZ", wantErr: true},
		{name: "too short", input: "US", wantErr: true},
		{name: "too long", input: "USDT", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "dollar$", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := currency.Normalize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var invalidErr *currency.InvalidCurrencyError
				assert.True(t, errors.As(err, &invalidErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeWithFallback(t *testing.T) {
	assert.Equal(t, "NGN", currency.NormalizeWithFallback("ngn", "USD"))
	assert.Equal(t, "GBP", currency.NormalizeWithFallback("bogus", "gbp"))
	assert.Equal(t, "USD", currency.NormalizeWithFallback("bogus", "also-bogus"))
	assert.Equal(t, "USD", currency.NormalizeWithFallback("", ""))
}

func TestFromLineItems(t *testing.T) {
	items := func(codes ...string) []model.LineItem {
		out := make([]model.LineItem, len(codes))
		for i, c := range codes {
			out[i] = model.LineItem{Name: "item", Quantity: 1, Currency: c}
		}
		return out
	}

	t.Run("majority wins", func(t *testing.T) {
		got := currency.FromLineItems(items("usd", "USD", "eur"), "GBP")
		assert.Equal(t, "USD", got)
	})

	t.Run("tie broken by first seen", func(t *testing.T) {
		got := currency.FromLineItems(items("eur", "usd"), "GBP")
		assert.Equal(t, "EUR", got)
	})

	t.Run("invalid tags do not vote", func(t *testing.T) {
		got := currency.FromLineItems(items("???", "ngn", "???"), "GBP")
		assert.Equal(t, "NGN", got)
	})

	t.Run("no tagged items returns fallback", func(t *testing.T) {
		got := currency.FromLineItems(items("", ""), "gbp")
		assert.Equal(t, "GBP", got)
	})

	t.Run("empty slice returns fallback", func(t *testing.T) {
		got := currency.FromLineItems(nil, "CAD")
		assert.Equal(t, "CAD", got)
	})
}
