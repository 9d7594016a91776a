package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreatePosition(ctx context.Context, p *model.Position) error {
	if err := s.primary.CreatePosition(ctx, p); err != nil {
		return err
	}
	s.cachePosition(ctx, p)
	return nil
}

func (s *CachedStore) UpdatePosition(ctx context.Context, p *model.Position) error {
	if err := s.primary.UpdatePosition(ctx, p); err != nil {
		return err
	}
	// Invalidate; next read will re-populate with legs included.
	s.rdb.Del(ctx, positionKey(p.ID))
	return nil
}

func (s *CachedStore) DeletePosition(ctx context.Context, id string) error {
	if err := s.primary.DeletePosition(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionKey(id))
	return nil
}

func (s *CachedStore) AddLegs(ctx context.Context, positionID string, legs []model.Leg) error {
	if err := s.primary.AddLegs(ctx, positionID, legs); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionKey(positionID))
	return nil
}

func (s *CachedStore) UpdateLeg(ctx context.Context, leg *model.Leg) error {
	if err := s.primary.UpdateLeg(ctx, leg); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionKey(leg.PositionID))
	return nil
}

func (s *CachedStore) SetCashBalance(ctx context.Context, balance decimal.Decimal) error {
	if err := s.primary.SetCashBalance(ctx, balance); err != nil {
		return err
	}
	s.rdb.Set(ctx, cashKey(), balance.String(), s.ttl)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetPosition(ctx context.Context, id string) (*model.Position, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, positionKey(id)).Bytes()
	if err == nil {
		var p model.Position
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	// Cache miss: read from primary.
	p, err := s.primary.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cachePosition(ctx, p)
	return p, nil
}

func (s *CachedStore) CashBalance(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.rdb.Get(ctx, cashKey()).Result()
	if err == nil {
		if balance, perr := decimal.NewFromString(raw); perr == nil {
			return balance, nil
		}
	}

	balance, err := s.primary.CashBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	s.rdb.Set(ctx, cashKey(), balance.String(), s.ttl)
	return balance, nil
}

// --- Passthrough (not cached) ---

// ListPositions bypasses the cache: list results change on every
// position mutation and are not worth invalidation bookkeeping.
func (s *CachedStore) ListPositions(ctx context.Context, status string) ([]model.Position, error) {
	return s.primary.ListPositions(ctx, status)
}

func (s *CachedStore) RealizedPnLs(ctx context.Context) ([]decimal.Decimal, error) {
	return s.primary.RealizedPnLs(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cachePosition(ctx context.Context, p *model.Position) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, positionKey(p.ID), data, s.ttl)
	}
}

func positionKey(id string) string { return fmt.Sprintf("position:%s", id) }
func cashKey() string              { return "cash:" + CashBalanceKey }
