package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func dp(f float64) *decimal.Decimal {
	v := decimal.NewFromFloat(f)
	return &v
}

var expiry = time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

func optionLeg(qty int64, entry float64) model.Leg {
	return model.Leg{
		Kind:       model.KindCall,
		Strike:     d(100),
		Expiry:     expiry,
		Quantity:   qty,
		EntryPrice: d(entry),
	}
}

// --- Leg P&L ---

func TestLegPnL(t *testing.T) {
	mult := decimal.NewFromInt(model.OptionMultiplier)
	tests := []struct {
		name          string
		entry, market float64
		qty           int64
		want          float64
	}{
		{"long profit", 2.00, 3.00, 1, 100},
		{"short profit when price falls", 2.00, 1.00, -1, 100},
		{"short loss when price rises", 1.50, 2.50, -1, -100},
		{"two short contracts", 3.00, 1.00, -2, 400},
		{"zero quantity", 2.00, 5.00, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := LegPnL(d(tc.entry), d(tc.market), tc.qty, mult)
			if !got.Equal(d(tc.want)) {
				t.Errorf("expected %.2f, got %s", tc.want, got)
			}
		})
	}
}

// --- Cost basis ---

func TestCostBasis_BullCallSpread(t *testing.T) {
	legs := []model.Leg{optionLeg(1, 5.50), optionLeg(-1, 2.50)}
	got := CostBasis(legs)
	if !got.Equal(d(300)) {
		t.Errorf("expected 300 (net debit), got %s", got)
	}
}

func TestCostBasis_IronCondorNetCredit(t *testing.T) {
	legs := []model.Leg{
		optionLeg(1, 1.50),
		optionLeg(-1, 3.50),
		optionLeg(-1, 3.00),
		optionLeg(1, 1.00),
	}
	got := CostBasis(legs)
	if !got.Equal(d(-400)) {
		t.Errorf("expected -400 (net credit), got %s", got)
	}
}

func TestCostBasis_StockLegNoMultiplier(t *testing.T) {
	legs := []model.Leg{{
		Kind:       model.KindStock,
		Quantity:   50,
		EntryPrice: d(10),
	}}
	got := CostBasis(legs)
	if !got.Equal(d(500)) {
		t.Errorf("expected 500 for 50 shares @ 10, got %s", got)
	}
}

func TestStockCostBasis(t *testing.T) {
	got := StockCostBasis(100, d(25.50))
	if !got.Equal(d(2550)) {
		t.Errorf("expected 2550, got %s", got)
	}
}

// --- Unrealized P&L ---

func TestUnrealizedLeg_UsesCurrentPrice(t *testing.T) {
	leg := optionLeg(1, 10.0)
	leg.CurrentPrice = dp(12.0)
	got := UnrealizedLeg(&leg, nil)
	if !got.Equal(d(200)) {
		t.Errorf("expected 200, got %s", got)
	}
}

func TestUnrealizedLeg_OverrideWins(t *testing.T) {
	leg := optionLeg(-1, 5.0)
	leg.CurrentPrice = dp(6.0)
	got := UnrealizedLeg(&leg, dp(4.0))
	if !got.Equal(d(100)) {
		t.Errorf("override should win over stored price: expected 100, got %s", got)
	}
}

func TestUnrealizedLeg_MissingPriceContributesZero(t *testing.T) {
	leg := optionLeg(-1, 5.0)
	got := UnrealizedLeg(&leg, nil)
	if !got.IsZero() {
		t.Errorf("leg without a price should contribute 0, got %s", got)
	}
}

func TestUnrealizedForPosition(t *testing.T) {
	long := optionLeg(1, 2.00)
	long.CurrentPrice = dp(2.50) // +50
	short := optionLeg(-1, 1.00)
	short.CurrentPrice = dp(0.80) // +20

	p := &model.Position{
		Status: model.StatusOpen,
		Legs:   []model.Leg{long, short},
	}
	got := UnrealizedForPosition(p)
	if !got.Equal(d(70)) {
		t.Errorf("expected 70, got %s", got)
	}
}

func TestUnrealizedForPosition_TerminalIsZero(t *testing.T) {
	leg := optionLeg(1, 2.00)
	leg.CurrentPrice = dp(9.99)
	for _, status := range []string{model.StatusClosed, model.StatusRolled, model.StatusExpired} {
		p := &model.Position{Status: status, Legs: []model.Leg{leg}}
		if got := UnrealizedForPosition(p); !got.IsZero() {
			t.Errorf("%s position should carry zero unrealized P&L, got %s", status, got)
		}
	}
}

// --- Realized P&L ---

func TestRealizedForPosition_PositionLevel(t *testing.T) {
	tests := []struct {
		name                 string
		costBasis, closing   float64
		want                 float64
	}{
		{"debit closed for credit", 100, 150, 50},
		{"credit closed for smaller debit", -200, -50, 150},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &model.Position{
				Status:       model.StatusClosed,
				CostBasis:    d(tc.costBasis),
				ClosingPrice: dp(tc.closing),
			}
			got, complete := RealizedForPosition(p)
			if !got.Equal(d(tc.want)) {
				t.Errorf("expected %.2f, got %s", tc.want, got)
			}
			if !complete {
				t.Error("position-level method is always complete")
			}
		})
	}
}

func TestRealizedForPosition_LegLevel(t *testing.T) {
	a := optionLeg(1, 2.0)
	a.ClosingPrice = dp(3.5) // +150
	b := optionLeg(-1, 1.0)
	b.ClosingPrice = dp(0.2) // +80

	p := &model.Position{
		Status:    model.StatusClosed,
		CostBasis: d(100),
		Legs:      []model.Leg{a, b},
	}
	got, complete := RealizedForPosition(p)
	if !got.Equal(d(230)) {
		t.Errorf("expected 230, got %s", got)
	}
	if !complete {
		t.Error("all legs priced, expected complete=true")
	}
}

func TestRealizedForPosition_PartialLegClosure(t *testing.T) {
	a := optionLeg(1, 2.0)
	a.ClosingPrice = dp(3.5) // +150
	b := optionLeg(1, 1.0)   // no closing price

	p := &model.Position{
		Status: model.StatusClosed,
		Legs:   []model.Leg{a, b},
	}
	got, complete := RealizedForPosition(p)
	if !got.Equal(d(150)) {
		t.Errorf("expected 150 from the priced leg only, got %s", got)
	}
	if complete {
		t.Error("expected complete=false when a leg lacks a closing price")
	}
}

func TestRealizedForPosition_StockLeg(t *testing.T) {
	leg := model.Leg{
		Kind:       model.KindStock,
		Quantity:   100,
		EntryPrice: d(20),
	}
	leg.ClosingPrice = dp(22)

	p := &model.Position{
		Status:  model.StatusClosed,
		IsStock: true,
		Legs:    []model.Leg{leg},
	}
	got, complete := RealizedForPosition(p)
	if !got.Equal(d(200)) {
		t.Errorf("expected 200 (multiplier 1), got %s", got)
	}
	if !complete {
		t.Error("expected complete=true")
	}
}

func TestRealizedForPosition_PositionLevelWinsOverLegs(t *testing.T) {
	leg := optionLeg(1, 2.0)
	leg.ClosingPrice = dp(9.0)

	p := &model.Position{
		Status:       model.StatusClosed,
		CostBasis:    d(100),
		ClosingPrice: dp(150),
		Legs:         []model.Leg{leg},
	}
	got, _ := RealizedForPosition(p)
	if !got.Equal(d(50)) {
		t.Errorf("position-level closing price should win, expected 50, got %s", got)
	}
}
