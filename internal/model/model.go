// Package model defines the core domain types shared across the trading
// journal. All monetary values use shopspring/decimal — never float64 for
// money.
package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Leg instrument kinds.
const (
	KindCall  = "CALL"
	KindPut   = "PUT"
	KindStock = "STOCK"
)

// Position lifecycle statuses. Closed, rolled, and expired share the same
// closing semantics; only OPEN positions carry unrealized P&L.
const (
	StatusOpen    = "OPEN"
	StatusClosed  = "CLOSED"
	StatusRolled  = "ROLLED"
	StatusExpired = "EXPIRED"
)

// Contract multipliers: per-share price → per-contract notional.
const (
	OptionMultiplier = 100
	StockMultiplier  = 1
)

// Leg is one tradable component of a position: a single option contract
// line or the representative stock line. Quantity is signed — positive for
// long, negative for short. Strike is zero and Expiry is the entry date
// for STOCK legs.
type Leg struct {
	ID         string          `json:"id" db:"id"`
	PositionID string          `json:"position_id" db:"position_id"`
	Kind       string          `json:"kind" db:"kind"` // CALL, PUT, or STOCK
	Strike     decimal.Decimal `json:"strike" db:"strike"`
	Expiry     time.Time       `json:"expiry" db:"expiry"`
	Quantity   int64           `json:"quantity" db:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price" db:"entry_price"` // per unit

	// CurrentPrice and ClosingPrice are nil until a mark or a close is
	// recorded for this leg.
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty" db:"current_price"`
	ClosingPrice *decimal.Decimal `json:"closing_price,omitempty" db:"closing_price"`

	EntryDate time.Time `json:"entry_date" db:"entry_date"`
}

// Multiplier returns the contract multiplier for this leg's kind:
// 1 for stock, 100 for options.
func (l *Leg) Multiplier() decimal.Decimal {
	if l.Kind == KindStock {
		return decimal.NewFromInt(StockMultiplier)
	}
	return decimal.NewFromInt(OptionMultiplier)
}

// Position is an owning aggregate of one or more legs representing a
// single trade. CostBasis is signed: positive = net debit, negative = net
// credit. ClosingPrice follows the opposite sign convention (positive =
// credit received on close).
type Position struct {
	ID               string `json:"id" db:"id"`
	UnderlyingSymbol string `json:"underlying_symbol" db:"underlying_symbol"`
	Strategy         string `json:"strategy" db:"strategy"`
	Status           string `json:"status" db:"status"`

	IsStock       bool  `json:"is_stock" db:"is_stock"`
	StockQuantity int64 `json:"stock_quantity,omitempty" db:"stock_quantity"`

	CostBasis     decimal.Decimal  `json:"cost_basis" db:"cost_basis"`
	ClosingPrice  *decimal.Decimal `json:"closing_price,omitempty" db:"closing_price"`
	RealizedPnL   decimal.Decimal  `json:"realized_pnl" db:"realized_pnl"`
	UnrealizedPnL decimal.Decimal  `json:"unrealized_pnl" db:"unrealized_pnl"`

	Notes     string    `json:"notes,omitempty" db:"notes"`
	EntryDate time.Time `json:"entry_date" db:"entry_date"`

	Legs []Leg `json:"legs"`
}

// Terminal reports whether the position is in a closed-like status
// (CLOSED, ROLLED, or EXPIRED). Terminal positions carry zero unrealized
// P&L.
func (p *Position) Terminal() bool {
	switch p.Status {
	case StatusClosed, StatusRolled, StatusExpired:
		return true
	}
	return false
}

// Summary is the derived portfolio snapshot: cash plus the mark-to-market
// value of open positions. Never stored — recomputed on demand.
type Summary struct {
	CashBalance     decimal.Decimal `json:"cash_balance"`
	OpenMarketValue decimal.Decimal `json:"open_positions_market_value"`
	TotalValue      decimal.Decimal `json:"total_value"`
	OverallPnL      decimal.Decimal `json:"overall_pnl"`
}

// Report is the derived trade-statistics snapshot computed from the
// realized P&L of closed positions. ProfitFactor is a ratio, not money:
// it is +Inf when there are profits but no losses, hence float64.
type Report struct {
	TotalTrades   int             `json:"total_closed_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRate       decimal.Decimal `json:"win_rate_percent"`
	AveragePnL    decimal.Decimal `json:"average_pnl"`
	ProfitFactor  float64         `json:"profit_factor"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	GrossLoss     decimal.Decimal `json:"gross_loss"` // sum of negative P&Ls, ≤ 0
	AverageWin    decimal.Decimal `json:"average_win"`
	AverageLoss   decimal.Decimal `json:"average_loss"` // retains negative sign
}

// MarshalJSON renders an infinite profit factor as the string "inf",
// since JSON has no representation for it.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	out := struct {
		alias
		ProfitFactor any `json:"profit_factor"`
	}{alias: alias(r), ProfitFactor: r.ProfitFactor}
	if math.IsInf(r.ProfitFactor, 1) {
		out.ProfitFactor = "inf"
	}
	return json.Marshal(out)
}
