// Package risk aggregates option-model exposure across a position's
// legs. Delta is per share, so the position delta is Σ(leg delta ×
// signed quantity) with no contract multiplier.
package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/jsgonzalez9/options/internal/bsm"
	"github.com/jsgonzalez9/options/internal/model"
	"github.com/jsgonzalez9/options/internal/prices"
)

// Model defaults applied when the caller supplies no override.
const (
	DefaultVolatility   = 0.20
	DefaultRiskFreeRate = 0.01
)

// Params carries the optional inputs of a delta aggregation. Zero-value
// Params means: defaults for volatility and rate, prices resolved
// through the Source only.
type Params struct {
	// Volatility and RiskFreeRate override the model defaults when
	// non-nil. Applied uniformly to every leg.
	Volatility   *float64
	RiskFreeRate *float64

	// Prices maps underlying symbol to a spot price. Entries here win
	// over the Source.
	Prices map[string]float64
}

func (p Params) volatility() float64 {
	if p.Volatility != nil {
		return *p.Volatility
	}
	return DefaultVolatility
}

func (p Params) riskFreeRate() float64 {
	if p.RiskFreeRate != nil {
		return *p.RiskFreeRate
	}
	return DefaultRiskFreeRate
}

// YearsToExpiry converts an expiry date to year-fraction time using an
// ACT/365 day count, clamped at zero for expired contracts.
func YearsToExpiry(expiry, now time.Time) float64 {
	days := expiry.Sub(now).Hours() / 24
	if days < 0 {
		return 0
	}
	return days / 365
}

// Aggregator computes position-level deltas, resolving underlying spot
// prices through a quote source.
type Aggregator struct {
	source prices.Source
	logger *slog.Logger
}

// NewAggregator creates a delta aggregator backed by the given quote
// source.
func NewAggregator(source prices.Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{source: source, logger: logger}
}

// PositionDelta computes the total share-equivalent delta of a position
// by summing leg delta × signed quantity over its option legs.
//
// The underlying spot price comes from params.Prices when the position's
// symbol is present there, otherwise from the quote source. A position
// whose price cannot be resolved contributes zero delta; the failure is
// logged, not returned, so one bad symbol does not sink a portfolio-wide
// aggregation. Stock positions are skipped. An unknown leg kind is a
// data error and is returned.
func (a *Aggregator) PositionDelta(ctx context.Context, p *model.Position, params Params) (float64, error) {
	if p.IsStock || len(p.Legs) == 0 {
		return 0, nil
	}
	if p.UnderlyingSymbol == "" {
		a.logger.Warn("position has no underlying symbol, delta unavailable",
			"position_id", p.ID)
		return 0, nil
	}

	spot, ok := a.resolvePrice(ctx, p.UnderlyingSymbol, params)
	if !ok {
		a.logger.Warn("could not resolve underlying price, delta unavailable",
			"position_id", p.ID,
			"symbol", p.UnderlyingSymbol)
		return 0, nil
	}

	vol := params.volatility()
	rate := params.riskFreeRate()
	now := time.Now().UTC()

	total := 0.0
	for i := range p.Legs {
		leg := &p.Legs[i]
		if leg.Kind == model.KindStock {
			// A share is its own delta.
			total += float64(leg.Quantity)
			continue
		}

		t := YearsToExpiry(leg.Expiry, now)
		delta, err := bsm.Delta(leg.Kind, spot, leg.Strike.InexactFloat64(), t, rate, vol)
		if err != nil {
			return 0, err
		}
		total += delta * float64(leg.Quantity)
	}
	return total, nil
}

func (a *Aggregator) resolvePrice(ctx context.Context, symbol string, params Params) (float64, bool) {
	if price, ok := params.Prices[symbol]; ok {
		return price, true
	}
	if a.source == nil {
		return 0, false
	}
	price, err := a.source.Price(ctx, symbol)
	if err != nil {
		return 0, false
	}
	return price.InexactFloat64(), true
}
