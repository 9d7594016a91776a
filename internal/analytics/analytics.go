// Package analytics computes trade statistics from the realized P&L of
// closed positions. Money stays in decimal; the profit factor is a pure
// ratio and is reported as float64 so the no-loss case can be +Inf.
package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

var hundred = decimal.NewFromInt(100)

// WinRate returns the percentage of P&Ls strictly greater than zero.
// Zero for empty input. Break-even trades count against the rate.
func WinRate(pnls []decimal.Decimal) decimal.Decimal {
	if len(pnls) == 0 {
		return decimal.Zero
	}
	wins := 0
	for _, p := range pnls {
		if p.IsPositive() {
			wins++
		}
	}
	return decimal.NewFromInt(int64(wins)).Mul(hundred).Div(decimal.NewFromInt(int64(len(pnls))))
}

// AveragePnL returns the mean P&L, zero for empty input.
func AveragePnL(pnls []decimal.Decimal) decimal.Decimal {
	if len(pnls) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, p := range pnls {
		total = total.Add(p)
	}
	return total.Div(decimal.NewFromInt(int64(len(pnls))))
}

// ProfitFactor returns gross profit / |gross loss|. With no losses it is
// +Inf when profits exist and 0 otherwise (including empty input).
func ProfitFactor(pnls []decimal.Decimal) float64 {
	grossProfit, grossLoss := grossSums(pnls)
	if grossLoss.IsZero() {
		if grossProfit.IsPositive() {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit.Div(grossLoss.Abs()).InexactFloat64()
}

// grossSums returns (sum of positive P&Ls, sum of negative P&Ls).
// The loss sum is ≤ 0.
func grossSums(pnls []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	profit, loss := decimal.Zero, decimal.Zero
	for _, p := range pnls {
		switch {
		case p.IsPositive():
			profit = profit.Add(p)
		case p.IsNegative():
			loss = loss.Add(p)
		}
	}
	return profit, loss
}

// Summarize computes the full performance report for a set of realized
// P&Ls. Empty input yields a zero report with profit factor 0, not +Inf.
func Summarize(pnls []decimal.Decimal) model.Report {
	wins, losses := 0, 0
	for _, p := range pnls {
		switch {
		case p.IsPositive():
			wins++
		case p.IsNegative():
			losses++
		}
	}

	grossProfit, grossLoss := grossSums(pnls)

	avgWin := decimal.Zero
	if wins > 0 {
		avgWin = grossProfit.Div(decimal.NewFromInt(int64(wins)))
	}
	avgLoss := decimal.Zero
	if losses > 0 {
		avgLoss = grossLoss.Div(decimal.NewFromInt(int64(losses)))
	}

	return model.Report{
		TotalTrades:   len(pnls),
		WinningTrades: wins,
		LosingTrades:  losses,
		WinRate:       WinRate(pnls),
		AveragePnL:    AveragePnL(pnls),
		ProfitFactor:  ProfitFactor(pnls),
		GrossProfit:   grossProfit,
		GrossLoss:     grossLoss,
		AverageWin:    avgWin,
		AverageLoss:   avgLoss,
	}
}
