package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]*model.Position
	cash      decimal.Decimal
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]*model.Position),
	}
}

func (s *MemoryStore) CreatePosition(_ context.Context, p *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.positions[p.ID]; exists {
		return fmt.Errorf("position %s already exists", p.ID)
	}

	// Store a copy to avoid external mutation.
	s.positions[p.ID] = copyPosition(p)
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, id string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %s: %w", id, ErrNotFound)
	}
	return copyPosition(p), nil
}

func (s *MemoryStore) ListPositions(_ context.Context, status string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]model.Position, 0, len(s.positions))
	for _, p := range s.positions {
		if status != "" && p.Status != status {
			continue
		}
		positions = append(positions, *copyPosition(p))
	}

	// Newest first, matching the SQL ordering.
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].EntryDate.Equal(positions[j].EntryDate) {
			return positions[i].ID > positions[j].ID
		}
		return positions[i].EntryDate.After(positions[j].EntryDate)
	})
	return positions, nil
}

func (s *MemoryStore) UpdatePosition(_ context.Context, p *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.positions[p.ID]
	if !ok {
		return fmt.Errorf("position %s: %w", p.ID, ErrNotFound)
	}

	// Position row only; legs are managed through AddLegs/UpdateLeg.
	updated := copyPosition(p)
	updated.Legs = existing.Legs
	s.positions[p.ID] = updated
	return nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("position %s: %w", id, ErrNotFound)
	}
	delete(s.positions, id)
	return nil
}

func (s *MemoryStore) AddLegs(_ context.Context, positionID string, legs []model.Leg) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[positionID]
	if !ok {
		return fmt.Errorf("position %s: %w", positionID, ErrNotFound)
	}
	for i := range legs {
		leg := legs[i]
		leg.PositionID = positionID
		p.Legs = append(p.Legs, *copyLeg(&leg))
	}
	return nil
}

func (s *MemoryStore) UpdateLeg(_ context.Context, leg *model.Leg) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[leg.PositionID]
	if !ok {
		return fmt.Errorf("position %s: %w", leg.PositionID, ErrNotFound)
	}
	for i := range p.Legs {
		if p.Legs[i].ID == leg.ID {
			p.Legs[i] = *copyLeg(leg)
			return nil
		}
	}
	return fmt.Errorf("leg %s: %w", leg.ID, ErrNotFound)
}

func (s *MemoryStore) CashBalance(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cash, nil
}

func (s *MemoryStore) SetCashBalance(_ context.Context, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cash = balance
	return nil
}

func (s *MemoryStore) RealizedPnLs(_ context.Context) ([]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pnls []decimal.Decimal
	for _, p := range s.positions {
		if p.Status == model.StatusClosed {
			pnls = append(pnls, p.RealizedPnL)
		}
	}
	return pnls, nil
}

// copyPosition deep-copies a position, including legs and the pointer
// price fields, so callers never share memory with the store.
func copyPosition(p *model.Position) *model.Position {
	cp := *p
	cp.ClosingPrice = copyDecimal(p.ClosingPrice)
	cp.Legs = make([]model.Leg, len(p.Legs))
	for i := range p.Legs {
		cp.Legs[i] = *copyLeg(&p.Legs[i])
	}
	return &cp
}

func copyLeg(l *model.Leg) *model.Leg {
	cl := *l
	cl.CurrentPrice = copyDecimal(l.CurrentPrice)
	cl.ClosingPrice = copyDecimal(l.ClosingPrice)
	return &cl
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
