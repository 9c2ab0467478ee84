package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct{}

func (failingProvider) Rate(ctx context.Context, from, to string) (float64, error) {
	return 0, errors.New("feed is down")
}

func newTestConverter() *Converter {
	return NewConverter(DefaultCatalog(), NewStaticProvider(DefaultRateTable()))
}

func TestCatalogLookup(t *testing.T) {
	catalog := DefaultCatalog()

	cedi, err := catalog.Lookup("GHS")
	require.NoError(t, err)
	assert.Equal(t, "GH₵", cedi.Symbol)
	assert.Equal(t, "Ghanaian Cedi", cedi.Name)

	_, err = catalog.Lookup("XXX")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
	assert.False(t, catalog.Supports("XXX"))
	assert.True(t, catalog.Supports("USD"))
}

func TestCatalogPreservesRegistrationOrder(t *testing.T) {
	catalog := NewCatalog(
		Currency{Code: "USD", Name: "US Dollar", Symbol: "$"},
		Currency{Code: "GHS", Name: "Ghanaian Cedi", Symbol: "GH₵"},
		Currency{Code: "USD", Name: "Duplicate Dollar", Symbol: "$$"},
	)

	list := catalog.List()
	require.Len(t, list, 2)
	assert.Equal(t, "USD", list[0].Code)
	assert.Equal(t, "GHS", list[1].Code)

	// Duplicate registration keeps the first entry
	usd, err := catalog.Lookup("USD")
	require.NoError(t, err)
	assert.Equal(t, "US Dollar", usd.Name)
}

func TestRateIdentity(t *testing.T) {
	// rate(x, x) holds even when the provider cannot answer anything
	conv := NewConverter(DefaultCatalog(), failingProvider{})

	rate, err := conv.Rate(context.Background(), "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestRateReciprocal(t *testing.T) {
	conv := newTestConverter()
	ctx := context.Background()

	pairs := [][2]string{{"GHS", "USD"}, {"NGN", "EUR"}, {"KES", "ZAR"}}
	for _, pair := range pairs {
		forward, err := conv.Rate(ctx, pair[0], pair[1])
		require.NoError(t, err)
		backward, err := conv.Rate(ctx, pair[1], pair[0])
		require.NoError(t, err)
		assert.InDelta(t, 1.0, forward*backward, 1e-9, "%s/%s", pair[0], pair[1])
	}
}

func TestConvert(t *testing.T) {
	conv := newTestConverter()
	ctx := context.Background()

	got, err := conv.Convert(ctx, 100, "GHS", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, got, 1e-9)

	// Conversion is linear in the amount
	double, err := conv.Convert(ctx, 200, "GHS", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 2*got, double, 1e-9)

	zero, err := conv.Convert(ctx, 0, "GHS", "USD")
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)
}

func TestConvertUnsupportedCurrency(t *testing.T) {
	conv := newTestConverter()
	ctx := context.Background()

	_, err := conv.Convert(ctx, 100, "XXX", "USD")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	_, err = conv.Convert(ctx, 100, "USD", "XXX")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestConvertProviderFailure(t *testing.T) {
	conv := NewConverter(DefaultCatalog(), failingProvider{})

	_, err := conv.Convert(context.Background(), 100, "GHS", "USD")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConvertMissingRateEntry(t *testing.T) {
	// Provider only knows two currencies; the rest of the catalog must fail
	// loudly rather than silently convert 1:1
	conv := NewConverter(DefaultCatalog(), NewStaticProvider(map[string]float64{
		"GHS": 1,
		"USD": 0.08,
	}))

	_, err := conv.Convert(context.Background(), 100, "GHS", "EUR")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestStaticProviderDiscardsNonPositiveRates(t *testing.T) {
	provider := NewStaticProvider(map[string]float64{
		"GHS": 1,
		"USD": -0.08,
	})

	_, err := provider.Rate(context.Background(), "GHS", "USD")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	conv := newTestConverter()

	tests := []struct {
		name   string
		amount float64
		code   string
		locale string
		want   string
	}{
		{"usd two decimals", 8.0, "USD", "en", "$8.00"},
		{"usd ghana english", 8.0, "USD", "en-GH", "$8.00"},
		{"usd unknown locale falls back", 8.0, "USD", "zz-bogus", "$8.00"},
		{"cedi grouping", 1234.5, "GHS", "en", "GH₵1,234.50"},
		{"truncates to two decimals", 3.14159, "USD", "en", "$3.14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conv.Format(tt.amount, tt.code, tt.locale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := conv.Format(10, "XXX", "en")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestFormatIsPure(t *testing.T) {
	conv := newTestConverter()

	first, err := conv.Format(99.9, "EUR", "en")
	require.NoError(t, err)
	second, err := conv.Format(99.9, "EUR", "en")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
