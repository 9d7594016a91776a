// Package pnl implements cost-basis and profit-and-loss arithmetic for
// positions and their legs. All values are shopspring/decimal — never
// float64 for money.
//
// Sign conventions, applied consistently:
//   - Leg quantity is signed (+long / -short), so the single formula
//     (market - entry) × quantity × multiplier prices both directions.
//   - Position cost basis is positive for a net debit, negative for a
//     net credit; a position-level closing price is positive for a
//     credit received on close.
//
// Missing market data is a silent-omission policy: a leg without a
// current (or closing) price contributes zero rather than failing. The
// realized calculation reports a completeness flag so callers can tell a
// full close from a partial one.
package pnl

import (
	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

// LegPnL computes (market - entry) × quantity × multiplier. The signed
// quantity makes the same formula correct for long and short legs.
func LegPnL(entry, market decimal.Decimal, quantity int64, multiplier decimal.Decimal) decimal.Decimal {
	if quantity == 0 {
		return decimal.Zero
	}
	return market.Sub(entry).Mul(decimal.NewFromInt(quantity)).Mul(multiplier)
}

// CostBasis computes the net entry cost of a leg set:
// Σ(quantity × entry price) × multiplier, with the multiplier selected
// per leg (100 for options, 1 for stock).
func CostBasis(legs []model.Leg) decimal.Decimal {
	total := decimal.Zero
	for i := range legs {
		leg := &legs[i]
		total = total.Add(
			leg.EntryPrice.Mul(decimal.NewFromInt(leg.Quantity)).Mul(leg.Multiplier()))
	}
	return total
}

// StockCostBasis computes the entry cost of a plain stock position:
// share count × entry price per share, no contract multiplier.
func StockCostBasis(shares int64, entryPrice decimal.Decimal) decimal.Decimal {
	return entryPrice.Mul(decimal.NewFromInt(shares))
}

// UnrealizedLeg computes the mark-to-market P&L of one leg using its
// current price, or the override when non-nil. A leg with no price
// contributes zero.
func UnrealizedLeg(leg *model.Leg, override *decimal.Decimal) decimal.Decimal {
	market := override
	if market == nil {
		market = leg.CurrentPrice
	}
	if market == nil {
		return decimal.Zero
	}
	return LegPnL(leg.EntryPrice, *market, leg.Quantity, leg.Multiplier())
}

// UnrealizedForPosition sums unrealized P&L across a position's legs.
// Terminal positions always carry zero unrealized P&L.
func UnrealizedForPosition(p *model.Position) decimal.Decimal {
	if p.Terminal() {
		return decimal.Zero
	}
	total := decimal.Zero
	for i := range p.Legs {
		total = total.Add(UnrealizedLeg(&p.Legs[i], nil))
	}
	return total
}

// RealizedForPosition computes the realized P&L booked when a position
// closes, using two mutually exclusive methods in order:
//
//  1. Position-level: when an overall closing price is set,
//     realized = closing price - cost basis.
//  2. Leg-level: otherwise sum per-leg P&L over the legs that have a
//     closing price recorded; legs without one are excluded.
//
// The boolean reports completeness: false when method 2 had to skip
// legs, so partial closes are visible to the caller instead of hiding
// behind a bare number. Status is not enforced here — callers decide
// when invoking this is appropriate.
func RealizedForPosition(p *model.Position) (decimal.Decimal, bool) {
	if p.ClosingPrice != nil {
		return p.ClosingPrice.Sub(p.CostBasis), true
	}

	total := decimal.Zero
	complete := true
	for i := range p.Legs {
		leg := &p.Legs[i]
		if leg.ClosingPrice == nil {
			complete = false
			continue
		}
		total = total.Add(LegPnL(leg.EntryPrice, *leg.ClosingPrice, leg.Quantity, leg.Multiplier()))
	}
	return total, complete
}
