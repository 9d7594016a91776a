// Package prices abstracts market-quote lookup behind a small interface
// so the delta aggregator and journal service never depend on where a
// price comes from. A Redis-backed decorator keeps quote lookups cheap
// across repeated aggregations.
package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when a source has no price for a symbol.
var ErrNoQuote = errors.New("prices: no quote for symbol")

// Source provides the current price for an underlying symbol.
type Source interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StaticSource serves prices from a fixed in-memory map. Symbols are
// case-insensitive. Used in development mode and tests.
type StaticSource struct {
	mu     sync.RWMutex
	quotes map[string]decimal.Decimal
}

// NewStaticSource creates a source seeded with the given quotes.
func NewStaticSource(quotes map[string]decimal.Decimal) *StaticSource {
	s := &StaticSource{quotes: make(map[string]decimal.Decimal, len(quotes))}
	for sym, price := range quotes {
		s.quotes[strings.ToUpper(sym)] = price
	}
	return s
}

func (s *StaticSource) Price(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.quotes[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoQuote, symbol)
	}
	return price, nil
}

// Set stores or replaces a quote.
func (s *StaticSource) Set(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[strings.ToUpper(symbol)] = price
}

// CachedSource wraps a primary Source with a Redis read-through cache.
// Lookups check Redis first then fall back to the primary; hits from the
// primary are written back with a TTL.
type CachedSource struct {
	primary Source
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedSource creates a cached wrapper around a primary source.
func NewCachedSource(primary Source, rdb *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := quoteKey(symbol)

	// Try cache.
	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		if price, perr := decimal.NewFromString(raw); perr == nil {
			return price, nil
		}
	}

	// Cache miss: read from primary.
	price, err := s.primary.Price(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	s.rdb.Set(ctx, key, price.String(), s.ttl)
	return price, nil
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", strings.ToUpper(symbol))
}
