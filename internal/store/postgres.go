package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const legColumns = `id, position_id, kind, strike::TEXT, expiry, quantity,
        entry_price::TEXT, current_price::TEXT, closing_price::TEXT, entry_date`

const positionColumns = `id, underlying_symbol, strategy, status, is_stock, stock_quantity,
        cost_basis::TEXT, closing_price::TEXT, realized_pnl::TEXT, unrealized_pnl::TEXT,
        notes, entry_date`

// CreatePosition inserts the position row and all of its legs in one
// transaction, so a position is never visible without its legs.
func (s *PostgresStore) CreatePosition(ctx context.Context, p *model.Position) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO positions (id, underlying_symbol, strategy, status, is_stock, stock_quantity,
		                        cost_basis, closing_price, realized_pnl, unrealized_pnl, notes, entry_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11, $12)`,
		p.ID, p.UnderlyingSymbol, p.Strategy, p.Status, p.IsStock, p.StockQuantity,
		p.CostBasis.String(), decimalArg(p.ClosingPrice),
		p.RealizedPnL.String(), p.UnrealizedPnL.String(),
		p.Notes, p.EntryDate,
	)
	if err != nil {
		return fmt.Errorf("insert position %s: %w", p.ID, err)
	}

	for i := range p.Legs {
		if err := insertLeg(ctx, tx, &p.Legs[i]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertLeg(ctx context.Context, tx pgx.Tx, leg *model.Leg) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO legs (id, position_id, kind, strike, expiry, quantity,
		                   entry_price, current_price, closing_price, entry_date)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)`,
		leg.ID, leg.PositionID, leg.Kind, leg.Strike.String(), leg.Expiry, leg.Quantity,
		leg.EntryPrice.String(), decimalArg(leg.CurrentPrice), decimalArg(leg.ClosingPrice),
		leg.EntryDate,
	)
	if err != nil {
		return fmt.Errorf("insert leg %s: %w", leg.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, id string) (*model.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("position %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get position %s: %w", id, err)
	}

	legs, err := s.legsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Legs = legs
	return p, nil
}

func (s *PostgresStore) ListPositions(ctx context.Context, status string) ([]model.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY entry_date DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range positions {
		legs, err := s.legsFor(ctx, positions[i].ID)
		if err != nil {
			return nil, err
		}
		positions[i].Legs = legs
	}
	return positions, nil
}

func (s *PostgresStore) UpdatePosition(ctx context.Context, p *model.Position) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions
		 SET underlying_symbol = $2, strategy = $3, status = $4,
		     is_stock = $5, stock_quantity = $6,
		     cost_basis = $7::NUMERIC, closing_price = $8::NUMERIC,
		     realized_pnl = $9::NUMERIC, unrealized_pnl = $10::NUMERIC,
		     notes = $11
		 WHERE id = $1`,
		p.ID, p.UnderlyingSymbol, p.Strategy, p.Status,
		p.IsStock, p.StockQuantity,
		p.CostBasis.String(), decimalArg(p.ClosingPrice),
		p.RealizedPnL.String(), p.UnrealizedPnL.String(),
		p.Notes,
	)
	if err != nil {
		return fmt.Errorf("update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeletePosition(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM legs WHERE position_id = $1`, id); err != nil {
		return fmt.Errorf("delete legs for %s: %w", id, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %s: %w", id, ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) AddLegs(ctx context.Context, positionID string, legs []model.Leg) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range legs {
		legs[i].PositionID = positionID
		if err := insertLeg(ctx, tx, &legs[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) UpdateLeg(ctx context.Context, leg *model.Leg) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE legs
		 SET kind = $2, strike = $3::NUMERIC, expiry = $4, quantity = $5,
		     entry_price = $6::NUMERIC, current_price = $7::NUMERIC, closing_price = $8::NUMERIC
		 WHERE id = $1`,
		leg.ID, leg.Kind, leg.Strike.String(), leg.Expiry, leg.Quantity,
		leg.EntryPrice.String(), decimalArg(leg.CurrentPrice), decimalArg(leg.ClosingPrice),
	)
	if err != nil {
		return fmt.Errorf("update leg %s: %w", leg.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leg %s: %w", leg.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CashBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance string
	err := s.pool.QueryRow(ctx,
		`SELECT balance::TEXT FROM cash_ledger WHERE key = $1`, CashBalanceKey).
		Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get cash balance: %w", err)
	}
	b, _ := decimal.NewFromString(balance)
	return b, nil
}

func (s *PostgresStore) SetCashBalance(ctx context.Context, balance decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cash_ledger (key, balance) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (key) DO UPDATE SET balance = EXCLUDED.balance`,
		CashBalanceKey, balance.String(),
	)
	return err
}

func (s *PostgresStore) RealizedPnLs(ctx context.Context) ([]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT realized_pnl::TEXT FROM positions WHERE status = $1`, model.StatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pnls []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		pnl, _ := decimal.NewFromString(raw)
		pnls = append(pnls, pnl)
	}
	return pnls, rows.Err()
}

func (s *PostgresStore) legsFor(ctx context.Context, positionID string) ([]model.Leg, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+legColumns+` FROM legs WHERE position_id = $1 ORDER BY entry_date, id`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []model.Leg
	for rows.Next() {
		var leg model.Leg
		var strike, entryPrice string
		var currentPrice, closingPrice *string

		if err := rows.Scan(&leg.ID, &leg.PositionID, &leg.Kind, &strike, &leg.Expiry,
			&leg.Quantity, &entryPrice, &currentPrice, &closingPrice, &leg.EntryDate); err != nil {
			return nil, err
		}

		leg.Strike, _ = decimal.NewFromString(strike)
		leg.EntryPrice, _ = decimal.NewFromString(entryPrice)
		leg.CurrentPrice = parseDecimal(currentPrice)
		leg.ClosingPrice = parseDecimal(closingPrice)

		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

// scanPosition reads one position row (without legs).
func scanPosition(row pgx.Row) (*model.Position, error) {
	var p model.Position
	var costBasis, realized, unrealized string
	var closingPrice *string

	if err := row.Scan(&p.ID, &p.UnderlyingSymbol, &p.Strategy, &p.Status,
		&p.IsStock, &p.StockQuantity,
		&costBasis, &closingPrice, &realized, &unrealized,
		&p.Notes, &p.EntryDate); err != nil {
		return nil, err
	}

	p.CostBasis, _ = decimal.NewFromString(costBasis)
	p.ClosingPrice = parseDecimal(closingPrice)
	p.RealizedPnL, _ = decimal.NewFromString(realized)
	p.UnrealizedPnL, _ = decimal.NewFromString(unrealized)

	return &p, nil
}

// decimalArg converts an optional decimal to a nullable SQL argument.
func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimal(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}
