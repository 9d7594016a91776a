package risk

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
	"github.com/jsgonzalez9/options/internal/prices"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func testAggregator(quotes map[string]decimal.Decimal) *Aggregator {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewAggregator(prices.NewStaticSource(quotes), logger)
}

func TestYearsToExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	in365 := YearsToExpiry(now.AddDate(1, 0, 0), now)
	if math.Abs(in365-1.0) > 1e-9 {
		t.Errorf("one year out should be 1.0, got %f", in365)
	}

	in30 := YearsToExpiry(now.Add(30*24*time.Hour), now)
	if math.Abs(in30-30.0/365.0) > 1e-9 {
		t.Errorf("30 days out should be %f, got %f", 30.0/365.0, in30)
	}

	if got := YearsToExpiry(now.AddDate(0, 0, -5), now); got != 0 {
		t.Errorf("past expiry should clamp to 0, got %f", got)
	}
}

func TestPositionDelta_ExpiredLegsBinaryDelta(t *testing.T) {
	// Expired long ITM call contributes +1; expired short OTM call
	// contributes 0.
	past := time.Now().UTC().AddDate(0, 0, -1)
	p := &model.Position{
		ID:               "p1",
		UnderlyingSymbol: "XYZ",
		Status:           model.StatusOpen,
		Legs: []model.Leg{
			{Kind: model.KindCall, Strike: d(100), Expiry: past, Quantity: 1, EntryPrice: d(5)},
			{Kind: model.KindCall, Strike: d(110), Expiry: past, Quantity: -1, EntryPrice: d(2)},
		},
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(105)})
	got, err := agg.PositionDelta(context.Background(), p, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected delta 1.0, got %f", got)
	}
}

func TestPositionDelta_BullCallSpreadNetLong(t *testing.T) {
	// Long 100C / short 105C: both deltas in (0,1) with the long strike
	// lower, so the net is positive and below the long leg's delta.
	expiry := time.Now().UTC().AddDate(0, 3, 0)
	p := &model.Position{
		ID:               "p2",
		UnderlyingSymbol: "XYZ",
		Status:           model.StatusOpen,
		Legs: []model.Leg{
			{Kind: model.KindCall, Strike: d(100), Expiry: expiry, Quantity: 1, EntryPrice: d(5.50)},
			{Kind: model.KindCall, Strike: d(105), Expiry: expiry, Quantity: -1, EntryPrice: d(2.50)},
		},
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(100)})
	got, err := agg.PositionDelta(context.Background(), p, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got <= 0 || got >= 0.6 {
		t.Errorf("expected a small positive net delta, got %f", got)
	}
}

func TestPositionDelta_ShortPutIsPositive(t *testing.T) {
	expiry := time.Now().UTC().AddDate(0, 3, 0)
	p := &model.Position{
		ID:               "p3",
		UnderlyingSymbol: "XYZ",
		Status:           model.StatusOpen,
		Legs: []model.Leg{
			{Kind: model.KindPut, Strike: d(100), Expiry: expiry, Quantity: -1, EntryPrice: d(3)},
		},
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(100)})
	got, err := agg.PositionDelta(context.Background(), p, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got <= 0 || got >= 1 {
		t.Errorf("short put should carry positive delta in (0,1), got %f", got)
	}
}

func TestPositionDelta_PriceOverrideWins(t *testing.T) {
	// Source says 50 (deep OTM), override says 200 (deep ITM). With the
	// override a near-expiry long call should be close to delta 1.
	expiry := time.Now().UTC().AddDate(0, 0, 7)
	p := &model.Position{
		ID:               "p4",
		UnderlyingSymbol: "XYZ",
		Status:           model.StatusOpen,
		Legs: []model.Leg{
			{Kind: model.KindCall, Strike: d(100), Expiry: expiry, Quantity: 1, EntryPrice: d(5)},
		},
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(50)})
	got, err := agg.PositionDelta(context.Background(), p, Params{
		Prices: map[string]float64{"XYZ": 200},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got < 0.95 {
		t.Errorf("deep ITM call should be near delta 1, got %f", got)
	}
}

func TestPositionDelta_UnresolvablePriceIsZero(t *testing.T) {
	expiry := time.Now().UTC().AddDate(0, 1, 0)
	p := &model.Position{
		ID:               "p5",
		UnderlyingSymbol: "NOPE",
		Status:           model.StatusOpen,
		Legs: []model.Leg{
			{Kind: model.KindCall, Strike: d(100), Expiry: expiry, Quantity: 1, EntryPrice: d(5)},
		},
	}

	agg := testAggregator(nil)
	got, err := agg.PositionDelta(context.Background(), p, Params{})
	if err != nil {
		t.Fatalf("price lookup failure must not be an error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 when price cannot be resolved, got %f", got)
	}
}

func TestPositionDelta_MissingSymbolIsZero(t *testing.T) {
	p := &model.Position{
		ID:     "p6",
		Status: model.StatusOpen,
		Legs: []model.Leg{
			{Kind: model.KindCall, Strike: d(100), Expiry: time.Now().AddDate(0, 1, 0), Quantity: 1},
		},
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(100)})
	got, err := agg.PositionDelta(context.Background(), p, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 without an underlying symbol, got %f", got)
	}
}

func TestPositionDelta_StockPositionSkipped(t *testing.T) {
	p := &model.Position{
		ID:               "p7",
		UnderlyingSymbol: "XYZ",
		Status:           model.StatusOpen,
		IsStock:          true,
		StockQuantity:    100,
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(100)})
	got, err := agg.PositionDelta(context.Background(), p, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("stock positions are skipped, expected 0, got %f", got)
	}
}

func TestPositionDelta_StockLegContributesQuantity(t *testing.T) {
	// Covered call: 100 shares plus a short expired OTM call.
	past := time.Now().UTC().AddDate(0, 0, -1)
	p := &model.Position{
		ID:               "p8",
		UnderlyingSymbol: "XYZ",
		Status:           model.StatusOpen,
		Legs: []model.Leg{
			{Kind: model.KindStock, Quantity: 100, EntryPrice: d(90)},
			{Kind: model.KindCall, Strike: d(110), Expiry: past, Quantity: -1, EntryPrice: d(2)},
		},
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(100)})
	got, err := agg.PositionDelta(context.Background(), p, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-100) > 1e-9 {
		t.Errorf("expected delta 100 from the share leg, got %f", got)
	}
}

func TestPositionDelta_UnknownKindErrors(t *testing.T) {
	p := &model.Position{
		ID:               "p9",
		UnderlyingSymbol: "XYZ",
		Status:           model.StatusOpen,
		Legs: []model.Leg{
			{Kind: "SWAPTION", Strike: d(100), Expiry: time.Now().AddDate(0, 1, 0), Quantity: 1},
		},
	}

	agg := testAggregator(map[string]decimal.Decimal{"XYZ": d(100)})
	if _, err := agg.PositionDelta(context.Background(), p, Params{}); err == nil {
		t.Fatal("expected an error for an unknown leg kind")
	}
}
