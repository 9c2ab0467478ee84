// Package rates provides exchange rate providers backed by external feeds.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// feedResponse is the wire format of the rate feed: a base currency and the
// amount of each quoted currency one unit of the base buys.
type feedResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FeedProvider fetches exchange rates from an HTTP JSON feed and caches them
// for a TTL. It satisfies the currency.RateProvider interface.
type FeedProvider struct {
	url    string
	ttl    time.Duration
	client *http.Client
	logger *zap.Logger

	mu        sync.RWMutex
	base      string
	rates     map[string]float64
	fetchedAt time.Time
}

// NewFeedProvider creates a feed provider. A zero ttl disables caching.
func NewFeedProvider(url string, ttl time.Duration, logger *zap.Logger) *FeedProvider {
	return &FeedProvider{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Rate returns how many units of to one unit of from buys, refreshing the
// feed when the cached snapshot has gone stale.
func (p *FeedProvider) Rate(ctx context.Context, from, to string) (float64, error) {
	rates, base, err := p.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	fromRate, err := lookupRate(rates, base, from)
	if err != nil {
		return 0, err
	}
	toRate, err := lookupRate(rates, base, to)
	if err != nil {
		return 0, err
	}
	if fromRate <= 0 {
		return 0, fmt.Errorf("feed returned non-positive rate for %q", from)
	}

	return toRate / fromRate, nil
}

func lookupRate(rates map[string]float64, base, code string) (float64, error) {
	if code == base {
		return 1, nil
	}
	rate, ok := rates[code]
	if !ok {
		return 0, fmt.Errorf("no rate entry for %q", code)
	}
	return rate, nil
}

// snapshot returns the current rate table, fetching when the cache is stale.
func (p *FeedProvider) snapshot(ctx context.Context) (map[string]float64, string, error) {
	p.mu.RLock()
	if p.rates != nil && time.Since(p.fetchedAt) < p.ttl {
		rates, base := p.rates, p.base
		p.mu.RUnlock()
		return rates, base, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if p.rates != nil && time.Since(p.fetchedAt) < p.ttl {
		return p.rates, p.base, nil
	}

	rates, base, err := p.fetch(ctx)
	if err != nil {
		// A stale snapshot beats no snapshot; the caller still gets real
		// market data, just older than the TTL.
		if p.rates != nil {
			p.logger.Warn("rate feed refresh failed, serving stale rates",
				zap.Error(err),
				zap.Time("fetched_at", p.fetchedAt),
			)
			return p.rates, p.base, nil
		}
		return nil, "", err
	}

	p.rates = rates
	p.base = base
	p.fetchedAt = time.Now()

	p.logger.Info("rate feed refreshed",
		zap.String("base", base),
		zap.Int("currencies", len(rates)),
	)

	return p.rates, p.base, nil
}

func (p *FeedProvider) fetch(ctx context.Context) (map[string]float64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch rate feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("failed to decode rate feed: %w", err)
	}
	if body.Base == "" || len(body.Rates) == 0 {
		return nil, "", fmt.Errorf("rate feed returned empty table")
	}

	return body.Rates, body.Base, nil
}
