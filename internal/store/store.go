// Package store defines the persistence interface for the trading
// journal. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

// ErrNotFound is returned when a position or leg does not exist.
var ErrNotFound = errors.New("store: not found")

// CashBalanceKey identifies the single cash ledger entry. There is
// exactly one balance per journal.
const CashBalanceKey = "cash_balance"

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Position operations ---

	// CreatePosition persists a new position together with its legs.
	CreatePosition(ctx context.Context, p *model.Position) error

	// GetPosition retrieves a position with its legs by ID.
	GetPosition(ctx context.Context, id string) (*model.Position, error)

	// ListPositions returns positions with their legs, optionally
	// filtered by status ("" returns all), newest first.
	ListPositions(ctx context.Context, status string) ([]model.Position, error)

	// UpdatePosition replaces the stored position row (not its legs).
	UpdatePosition(ctx context.Context, p *model.Position) error

	// DeletePosition removes a position and its legs.
	DeletePosition(ctx context.Context, id string) error

	// --- Leg operations ---

	// AddLegs appends legs to an existing position.
	AddLegs(ctx context.Context, positionID string, legs []model.Leg) error

	// UpdateLeg replaces the stored leg row.
	UpdateLeg(ctx context.Context, leg *model.Leg) error

	// --- Cash ledger ---

	// CashBalance returns the single cash balance, zero if never set.
	CashBalance(ctx context.Context) (decimal.Decimal, error)

	// SetCashBalance stores the new cash balance.
	SetCashBalance(ctx context.Context, balance decimal.Decimal) error

	// --- Analytics queries ---

	// RealizedPnLs returns the realized P&L of every CLOSED position.
	RealizedPnLs(ctx context.Context) ([]decimal.Decimal, error)
}
