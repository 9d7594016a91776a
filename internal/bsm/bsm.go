// Package bsm implements the Black-Scholes-Merton closed-form model for
// European option prices and sensitivities (Greeks).
//
// Inputs are the five scalars of the model: underlying price S, strike K,
// time to expiry T in years, risk-free rate r, and annualized volatility
// sigma. All math here is transcendental and therefore float64; monetary
// aggregation elsewhere in the journal uses shopspring/decimal and
// converts at the boundary.
//
// Conventions:
//   - At T <= 0 prices collapse to intrinsic value and d1/d2 become
//     ±Inf (or 0 at the money) to signal the expiry discontinuity.
//   - At sigma <= 0 with T > 0 prices degrade to a discounted-intrinsic
//     approximation. This is a documented simplification, not a rigorous
//     zero-volatility limit.
//   - Vega is scaled per 1-point volatility change (÷100), theta per day
//     (÷365), rho per 1-point rate change (÷100).
//
// Reference: Black, F. and Scholes, M. (1973) "The Pricing of Options
// and Corporate Liabilities"
package bsm

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownKind is returned when an option kind is neither CALL nor PUT.
var ErrUnknownKind = errors.New("bsm: unknown option kind")

// Greeks holds the five first-order sensitivities of an option price.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`  // per 1-point vol change
	Theta float64 `json:"theta"` // per day
	Rho   float64 `json:"rho"`   // per 1-point rate change
}

// normCDF is the cumulative distribution function of the standard normal
// distribution, via the complementary error function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the density of the standard normal distribution.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// D1 computes the d1 term. At T <= 0 it returns +Inf when S > K, -Inf
// when S < K, and 0 at the money — callers must special-case expiry.
func D1(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return expiryD(s, k)
	}
	return (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
}

// D2 computes d2 = d1 - sigma*sqrt(T), with the same T <= 0 handling as D1.
func D2(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return expiryD(s, k)
	}
	return D1(s, k, t, r, sigma) - sigma*math.Sqrt(t)
}

func expiryD(s, k float64) float64 {
	switch {
	case s > k:
		return math.Inf(1)
	case s < k:
		return math.Inf(-1)
	}
	return 0
}

// CallPrice returns the Black-Scholes price of a European call.
// At T <= 0 it returns intrinsic value; at sigma <= 0 it returns the
// discounted-intrinsic approximation.
func CallPrice(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return math.Max(0, s-k)
	}
	if sigma <= 0 {
		return math.Max(0, (s-k)*math.Exp(-r*t))
	}
	d1 := D1(s, k, t, r, sigma)
	d2 := D2(s, k, t, r, sigma)
	return s*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2)
}

// PutPrice returns the Black-Scholes price of a European put, with the
// same expiry and zero-volatility handling as CallPrice.
func PutPrice(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return math.Max(0, k-s)
	}
	if sigma <= 0 {
		return math.Max(0, (k-s)*math.Exp(-r*t))
	}
	d1 := D1(s, k, t, r, sigma)
	d2 := D2(s, k, t, r, sigma)
	return k*math.Exp(-r*t)*normCDF(-d2) - s*normCDF(-d1)
}

// Price dispatches on the option kind (case-insensitive CALL or PUT).
func Price(kind string, s, k, t, r, sigma float64) (float64, error) {
	switch strings.ToUpper(kind) {
	case "CALL":
		return CallPrice(s, k, t, r, sigma), nil
	case "PUT":
		return PutPrice(s, k, t, r, sigma), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// DeltaCall returns N(d1). At expiry or zero volatility it falls back to
// the binary intrinsic sensitivity: 1 in the money, 0 out, 0.5 at the
// money.
func DeltaCall(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 {
		switch {
		case s > k:
			return 1
		case s < k:
			return 0
		}
		return 0.5
	}
	return normCDF(D1(s, k, t, r, sigma))
}

// DeltaPut returns N(d1) - 1, with the mirrored binary fallback
// (-1 in the money, 0 out, -0.5 at the money).
func DeltaPut(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 {
		switch {
		case s < k:
			return -1
		case s > k:
			return 0
		}
		return -0.5
	}
	return normCDF(D1(s, k, t, r, sigma)) - 1
}

// Gamma is identical for calls and puts: n(d1) / (S * sigma * sqrt(T)).
// Zero at expiry, zero volatility, or non-positive underlying.
func Gamma(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 || s <= 0 {
		return 0
	}
	return normPDF(D1(s, k, t, r, sigma)) / (s * sigma * math.Sqrt(t))
}

// Vega is identical for calls and puts, scaled per 1-point vol change.
func Vega(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 || s <= 0 {
		return 0
	}
	return s * normPDF(D1(s, k, t, r, sigma)) * math.Sqrt(t) / 100
}

// ThetaCall returns the daily time decay of a call.
func ThetaCall(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 || s <= 0 {
		return 0
	}
	d1 := D1(s, k, t, r, sigma)
	d2 := D2(s, k, t, r, sigma)
	annual := -(s*normPDF(d1)*sigma)/(2*math.Sqrt(t)) - r*k*math.Exp(-r*t)*normCDF(d2)
	return annual / 365
}

// ThetaPut returns the daily time decay of a put.
func ThetaPut(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 || s <= 0 {
		return 0
	}
	d1 := D1(s, k, t, r, sigma)
	d2 := D2(s, k, t, r, sigma)
	annual := -(s*normPDF(d1)*sigma)/(2*math.Sqrt(t)) + r*k*math.Exp(-r*t)*normCDF(-d2)
	return annual / 365
}

// RhoCall returns the call rate sensitivity per 1-point rate change.
func RhoCall(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 || s <= 0 {
		return 0
	}
	return k * t * math.Exp(-r*t) * normCDF(D2(s, k, t, r, sigma)) / 100
}

// RhoPut returns the put rate sensitivity per 1-point rate change.
func RhoPut(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 || s <= 0 {
		return 0
	}
	return -k * t * math.Exp(-r*t) * normCDF(-D2(s, k, t, r, sigma)) / 100
}

// Delta dispatches on the option kind (case-insensitive CALL or PUT).
func Delta(kind string, s, k, t, r, sigma float64) (float64, error) {
	switch strings.ToUpper(kind) {
	case "CALL":
		return DeltaCall(s, k, t, r, sigma), nil
	case "PUT":
		return DeltaPut(s, k, t, r, sigma), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Compute returns all five Greeks for the given option kind.
func Compute(kind string, s, k, t, r, sigma float64) (Greeks, error) {
	var g Greeks
	switch strings.ToUpper(kind) {
	case "CALL":
		g.Delta = DeltaCall(s, k, t, r, sigma)
		g.Theta = ThetaCall(s, k, t, r, sigma)
		g.Rho = RhoCall(s, k, t, r, sigma)
	case "PUT":
		g.Delta = DeltaPut(s, k, t, r, sigma)
		g.Theta = ThetaPut(s, k, t, r, sigma)
		g.Rho = RhoPut(s, k, t, r, sigma)
	default:
		return Greeks{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	g.Gamma = Gamma(s, k, t, r, sigma)
	g.Vega = Vega(s, k, t, r, sigma)
	return g, nil
}
