// Package portfolio aggregates cash and positions into the derived
// portfolio snapshot, and holds the cash-mutation rules for the single
// cash ledger entry.
//
// The cash update is a read-modify-write over one stored scalar. This
// package only computes the new balance; the enclosing store transaction
// must provide serializable isolation or row-level locking around the
// read-then-write, or concurrent writers will lose updates.
package portfolio

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

var (
	// ErrNonPositiveAmount is returned when a deposit or withdrawal
	// amount is zero or negative.
	ErrNonPositiveAmount = errors.New("portfolio: cash amount must be positive")

	// ErrOverdraft is returned when a withdrawal would push the cash
	// balance below zero. The caller must abort its transaction.
	ErrOverdraft = errors.New("portfolio: withdrawal exceeds cash balance")
)

// Deposit returns the balance after adding amount.
func Deposit(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return balance, ErrNonPositiveAmount
	}
	return balance.Add(amount), nil
}

// Withdraw returns the balance after subtracting amount, rejecting any
// withdrawal that would overdraw the account.
func Withdraw(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return balance, ErrNonPositiveAmount
	}
	if amount.GreaterThan(balance) {
		return balance, ErrOverdraft
	}
	return balance.Sub(amount), nil
}

// OpenMarketValue sums current price × quantity × multiplier across the
// legs of OPEN positions. Legs without a current price contribute zero;
// short legs contribute negative value (a liability).
func OpenMarketValue(positions []model.Position) decimal.Decimal {
	total := decimal.Zero
	for i := range positions {
		p := &positions[i]
		if p.Status != model.StatusOpen {
			continue
		}
		for j := range p.Legs {
			leg := &p.Legs[j]
			if leg.CurrentPrice == nil {
				continue
			}
			total = total.Add(
				leg.CurrentPrice.Mul(decimal.NewFromInt(leg.Quantity)).Mul(leg.Multiplier()))
		}
	}
	return total
}

// OverallPnL sums realized P&L of CLOSED positions and unrealized P&L of
// OPEN positions.
func OverallPnL(positions []model.Position) decimal.Decimal {
	total := decimal.Zero
	for i := range positions {
		p := &positions[i]
		switch p.Status {
		case model.StatusClosed:
			total = total.Add(p.RealizedPnL)
		case model.StatusOpen:
			total = total.Add(p.UnrealizedPnL)
		}
	}
	return total
}

// Summarize builds the derived portfolio snapshot from positions and the
// current cash balance.
func Summarize(positions []model.Position, cash decimal.Decimal) model.Summary {
	marketValue := OpenMarketValue(positions)
	return model.Summary{
		CashBalance:     cash,
		OpenMarketValue: marketValue,
		TotalValue:      cash.Add(marketValue),
		OverallPnL:      OverallPnL(positions),
	}
}
