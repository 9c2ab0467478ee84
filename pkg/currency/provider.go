package currency

import (
	"context"
	"fmt"
)

// RateProvider supplies a conversion factor between two currency codes. A
// provider may be a fixed table or a live feed; either way it must fail when
// it has no rate for a pair rather than guess.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// StaticProvider quotes every currency against a single implicit base, so
// cross rates are table[to]/table[from] and inverse pairs always multiply
// back to one.
type StaticProvider struct {
	perBase map[string]float64
}

// NewStaticProvider builds a provider from per-base rates. Non-positive
// entries are discarded.
func NewStaticProvider(perBase map[string]float64) *StaticProvider {
	table := make(map[string]float64, len(perBase))
	for code, rate := range perBase {
		if rate > 0 {
			table[code] = rate
		}
	}
	return &StaticProvider{perBase: table}
}

// DefaultRateTable is the built-in table used when no live feed is configured,
// quoted against the Ghanaian cedi.
func DefaultRateTable() map[string]float64 {
	return map[string]float64{
		"GHS": 1,
		"NGN": 105.0,
		"KES": 10.4,
		"ZAR": 1.45,
		"USD": 0.08,
		"EUR": 0.074,
		"GBP": 0.063,
	}
}

func (p *StaticProvider) Rate(_ context.Context, from, to string) (float64, error) {
	fromRate, ok := p.perBase[from]
	if !ok {
		return 0, fmt.Errorf("no rate entry for %q", from)
	}
	toRate, ok := p.perBase[to]
	if !ok {
		return 0, fmt.Errorf("no rate entry for %q", to)
	}
	return toRate / fromRate, nil
}
