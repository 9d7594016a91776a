package bsm

import (
	"errors"
	"math"
	"testing"
)

// Reference scenario used throughout: S=100, K=100, T=1y, r=5%, sigma=20%.
const (
	refS     = 100.0
	refK     = 100.0
	refT     = 1.0
	refR     = 0.05
	refSigma = 0.20
)

func within(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol %.0e)", name, got, want, tol)
	}
}

// --- Price tests ---

func TestCallPrice_Reference(t *testing.T) {
	within(t, "call", CallPrice(refS, refK, refT, refR, refSigma), 10.4506, 1e-3)
}

func TestPutPrice_Reference(t *testing.T) {
	within(t, "put", PutPrice(refS, refK, refT, refR, refSigma), 5.5735, 1e-3)
}

func TestPutCallParity(t *testing.T) {
	// call - put == S - K*e^(-rT) for any valid inputs.
	tests := []struct {
		s, k, tt, r, sigma float64
	}{
		{100, 100, 1, 0.05, 0.20},
		{100, 110, 0.5, 0.01, 0.35},
		{50, 45, 2, 0.03, 0.15},
		{250, 200, 0.25, 0.02, 0.60},
	}
	for _, tc := range tests {
		call := CallPrice(tc.s, tc.k, tc.tt, tc.r, tc.sigma)
		put := PutPrice(tc.s, tc.k, tc.tt, tc.r, tc.sigma)
		parity := tc.s - tc.k*math.Exp(-tc.r*tc.tt)
		if math.Abs((call-put)-parity) > 1e-9 {
			t.Errorf("parity violated for S=%.0f K=%.0f: call-put=%.9f want %.9f",
				tc.s, tc.k, call-put, parity)
		}
	}
}

func TestPrice_AtExpiry_IntrinsicOnly(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		s, k, want float64
	}{
		{"ITM call", "CALL", 105, 100, 5},
		{"OTM call", "CALL", 95, 100, 0},
		{"ITM put", "PUT", 95, 100, 5},
		{"OTM put", "PUT", 105, 100, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Price(tc.kind, tc.s, tc.k, 0, refR, refSigma)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			within(t, tc.name, got, tc.want, 1e-12)
		})
	}
}

func TestPrice_ZeroVol_DiscountedIntrinsic(t *testing.T) {
	// sigma <= 0 with T > 0 degrades to max(0, (S-K)*e^(-rT)).
	want := (105.0 - 100.0) * math.Exp(-0.05)
	within(t, "zero-vol call", CallPrice(105, 100, 1, 0.05, 0), want, 1e-9)
	within(t, "zero-vol call OTM", CallPrice(95, 100, 1, 0.05, 0), 0, 1e-12)

	wantPut := (100.0 - 95.0) * math.Exp(-0.05)
	within(t, "zero-vol put", PutPrice(95, 100, 1, 0.05, 0), wantPut, 1e-9)
	within(t, "zero-vol put OTM", PutPrice(105, 100, 1, 0.05, 0), 0, 1e-12)
}

func TestPrice_UnknownKind(t *testing.T) {
	_, err := Price("STRADDLE", refS, refK, refT, refR, refSigma)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestPrice_KindCaseInsensitive(t *testing.T) {
	upper, err := Price("CALL", refS, refK, refT, refR, refSigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lower, err := Price("call", refS, refK, refT, refR, refSigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upper != lower {
		t.Errorf("case sensitivity in kind dispatch: %.6f vs %.6f", upper, lower)
	}
}

// --- d1/d2 tests ---

func TestD1D2_ExpiryDiscontinuity(t *testing.T) {
	if !math.IsInf(D1(105, 100, 0, refR, refSigma), 1) {
		t.Error("expected d1=+Inf for ITM at expiry")
	}
	if !math.IsInf(D1(95, 100, 0, refR, refSigma), -1) {
		t.Error("expected d1=-Inf for OTM at expiry")
	}
	if D1(100, 100, 0, refR, refSigma) != 0 {
		t.Error("expected d1=0 at the money at expiry")
	}
	if !math.IsInf(D2(105, 100, -0.5, refR, refSigma), 1) {
		t.Error("expected d2=+Inf for ITM past expiry")
	}
}

func TestD2_IsD1MinusSigmaRootT(t *testing.T) {
	d1 := D1(refS, refK, refT, refR, refSigma)
	d2 := D2(refS, refK, refT, refR, refSigma)
	within(t, "d2", d2, d1-refSigma*math.Sqrt(refT), 1e-12)
}

// --- Greek tests ---

func TestGreeks_Reference(t *testing.T) {
	call, err := Compute("CALL", refS, refK, refT, refR, refSigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	put, err := Compute("PUT", refS, refK, refT, refR, refSigma)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	within(t, "call delta", call.Delta, 0.6368, 1e-3)
	within(t, "put delta", put.Delta, -0.3632, 1e-3)
	within(t, "gamma", call.Gamma, 0.01876, 1e-4)
	within(t, "vega", call.Vega, 0.3752, 1e-3)
	within(t, "call theta", call.Theta, -0.01757, 1e-4)
	within(t, "put theta", put.Theta, -0.00454, 1e-4)
	within(t, "call rho", call.Rho, 0.5323, 1e-3)
	within(t, "put rho", put.Rho, -0.4189, 1e-3)

	// Gamma and vega are kind-independent.
	if call.Gamma != put.Gamma {
		t.Errorf("gamma should match across kinds: %.6f vs %.6f", call.Gamma, put.Gamma)
	}
	if call.Vega != put.Vega {
		t.Errorf("vega should match across kinds: %.6f vs %.6f", call.Vega, put.Vega)
	}
}

func TestDelta_BinaryFallbackAtExpiry(t *testing.T) {
	tests := []struct {
		name string
		kind string
		s    float64
		want float64
	}{
		{"ITM call", "CALL", 105, 1},
		{"OTM call", "CALL", 95, 0},
		{"ATM call", "CALL", 100, 0.5},
		{"ITM put", "PUT", 95, -1},
		{"OTM put", "PUT", 105, 0},
		{"ATM put", "PUT", 100, -0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Delta(tc.kind, tc.s, 100, 0, refR, refSigma)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected delta %.1f, got %.4f", tc.want, got)
			}
		})
	}
}

func TestGreeks_ZeroAtDegenerateInputs(t *testing.T) {
	cases := []struct {
		name            string
		s, tt, sigmaArg float64
	}{
		{"expired", 100, 0, 0.2},
		{"zero vol", 100, 1, 0},
		{"non-positive underlying", -1, 1, 0.2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if g := Gamma(tc.s, 100, tc.tt, refR, tc.sigmaArg); g != 0 {
				t.Errorf("gamma should be 0, got %.6f", g)
			}
			if v := Vega(tc.s, 100, tc.tt, refR, tc.sigmaArg); v != 0 {
				t.Errorf("vega should be 0, got %.6f", v)
			}
			if th := ThetaCall(tc.s, 100, tc.tt, refR, tc.sigmaArg); th != 0 {
				t.Errorf("theta should be 0, got %.6f", th)
			}
			if rh := RhoPut(tc.s, 100, tc.tt, refR, tc.sigmaArg); rh != 0 {
				t.Errorf("rho should be 0, got %.6f", rh)
			}
		})
	}
}

func TestCompute_UnknownKind(t *testing.T) {
	_, err := Compute("STOCK", refS, refK, refT, refR, refSigma)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

// Pure functions: identical inputs always yield identical outputs.
func TestIdempotence(t *testing.T) {
	first := CallPrice(refS, refK, refT, refR, refSigma)
	for i := 0; i < 10; i++ {
		if got := CallPrice(refS, refK, refT, refR, refSigma); got != first {
			t.Fatalf("call price drifted across calls: %.12f vs %.12f", got, first)
		}
	}
	g1, _ := Compute("PUT", refS, refK, refT, refR, refSigma)
	g2, _ := Compute("PUT", refS, refK, refT, refR, refSigma)
	if g1 != g2 {
		t.Errorf("greeks drifted across calls: %+v vs %+v", g1, g2)
	}
}
