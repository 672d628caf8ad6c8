// Package pricing maintains the price cache feeding holdings valuation:
// TTL-based freshness, bounded retries per key, and a rate-limited batch
// scheduler over pluggable price sources.
package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// Entry is one cached price with its freshness and retry bookkeeping.
type Entry struct {
	Price      decimal.Decimal
	Timestamp  time.Time
	RetryCount int
	LastError  string
}

// Config tunes cache behavior.
type Config struct {
	TTL        time.Duration
	MaxRetries int
}

// Cache is the shared price cache. It is the single owner of its entry map;
// all access goes through the mutex.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	cfg     Config
	sources []domain.PriceSource
	log     zerolog.Logger
	now     func() time.Time
}

// NewCache creates a price cache resolving misses through sources in order.
func NewCache(cfg Config, sources []domain.PriceSource, log zerolog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Cache{
		entries: make(map[string]Entry),
		cfg:     cfg,
		sources: sources,
		log:     log.With().Str("component", "price_cache").Logger(),
		now:     time.Now,
	}
}

// Get returns the cached price for an instrument without fetching.
// The second return is false when no entry exists at all.
func (c *Cache) Get(inst Instrument) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[CacheKey(inst)]
	if !ok {
		return decimal.Zero, false
	}
	return e.Price, true
}

// Snapshot returns a copy of all entries, for inspection and tests.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Clear drops all entries, resetting retry exhaustion.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Resolve returns a current price for the instrument, fetching through the
// source chain on a stale or missing entry.
//
// Lifecycle per key: a fresh entry (age < TTL) is served as-is. On failure the
// retry counter increments; once it reaches MaxRetries the adapters are not
// called again and the last cached (or synthetic) price is served until an
// explicit Clear. A successful fetch resets the counter and refreshes the
// timestamp.
func (c *Cache) Resolve(ctx context.Context, inst Instrument) decimal.Decimal {
	key := CacheKey(inst)

	c.mu.Lock()
	e, exists := c.entries[key]
	if exists && c.now().Sub(e.Timestamp) < c.cfg.TTL {
		c.mu.Unlock()
		return e.Price
	}
	if exists && e.RetryCount >= c.cfg.MaxRetries {
		// Retries exhausted: serve whatever we last had, indefinitely
		c.mu.Unlock()
		return e.Price
	}
	c.mu.Unlock()

	price, err := c.fetch(ctx, inst)

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-read: a concurrent fetch may have landed first
	e = c.entries[key]

	if err != nil {
		e.RetryCount++
		e.LastError = err.Error()
		if e.Price.IsZero() {
			// Never successfully fetched: synthesize a mock so valuation
			// degrades instead of dropping the instrument
			e.Price = syntheticPrice(inst.InvestmentType)
			e.Timestamp = c.now()
		}
		c.entries[key] = e
		c.log.Warn().
			Str("key", key).
			Int("retries", e.RetryCount).
			Err(err).
			Msg("price fetch failed, serving cached value")
		return e.Price
	}

	e.Price = price
	e.Timestamp = c.now()
	e.RetryCount = 0
	e.LastError = ""
	c.entries[key] = e
	return price
}

// fetch walks the source chain until one resolves a positive price.
func (c *Cache) fetch(ctx context.Context, inst Instrument) (decimal.Decimal, error) {
	var lastErr error = domain.ErrPriceUnavailable

	for _, src := range c.sources {
		price, err := src.Resolve(ctx, inst.Identifier(), inst.InvestmentType)
		if err != nil {
			lastErr = err
			continue
		}
		if price.GreaterThan(decimal.Zero) {
			return price, nil
		}
	}

	return decimal.Zero, lastErr
}

// syntheticPrice generates a deterministic fallback price by asset type, used
// only when no source has ever resolved a real value for a key.
func syntheticPrice(t domain.InvestmentType) decimal.Decimal {
	switch t {
	case domain.InvestmentTypeMutualFund, domain.InvestmentTypeIndexFund:
		return decimal.NewFromInt(100)
	case domain.InvestmentTypeGold:
		return decimal.NewFromInt(6000)
	case domain.InvestmentTypeSilver:
		return decimal.NewFromInt(75)
	case domain.InvestmentTypeBond, domain.InvestmentTypeNPS:
		return decimal.NewFromInt(100)
	default:
		return decimal.NewFromInt(500)
	}
}
