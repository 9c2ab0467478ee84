package currency

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Converter converts and formats monetary amounts. Currency codes are checked
// against the catalog before the provider is consulted, and any provider
// failure surfaces as ErrRateUnavailable; the converter never falls back to a
// 1:1 rate.
type Converter struct {
	catalog  *Catalog
	provider RateProvider
}

// NewConverter creates a converter over the given catalog and rate source.
func NewConverter(catalog *Catalog, provider RateProvider) *Converter {
	return &Converter{catalog: catalog, provider: provider}
}

// Catalog exposes the converter's currency registry.
func (c *Converter) Catalog() *Catalog {
	return c.catalog
}

// Rate returns the conversion factor between two supported currencies.
// rate(x, x) is 1 by definition and never consults the provider.
func (c *Converter) Rate(ctx context.Context, from, to string) (float64, error) {
	if _, err := c.catalog.Lookup(from); err != nil {
		return 0, err
	}
	if _, err := c.catalog.Lookup(to); err != nil {
		return 0, err
	}
	if from == to {
		return 1, nil
	}
	rate, err := c.provider.Rate(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%w: %s/%s: %v", ErrRateUnavailable, from, to, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%w: %s/%s: non-positive rate %v", ErrRateUnavailable, from, to, rate)
	}
	return rate, nil
}

// Convert converts amount from one currency into another.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// Format renders amount with the currency's symbol and exactly two fraction
// digits, using the locale's digit grouping and decimal separator. Output
// depends only on the arguments. Unparseable locales fall back to English.
func (c *Converter) Format(amount float64, code, locale string) (string, error) {
	cur, err := c.catalog.Lookup(code)
	if err != nil {
		return "", err
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%s%v", cur.Symbol, number.Decimal(amount,
		number.MinFractionDigits(2), number.MaxFractionDigits(2))), nil
}
