// Package spread validates that a set of legs forms a structurally
// correct instance of a named option strategy.
//
// Validation is dispatched through a registry of checkers keyed by the
// normalized strategy label. Labels without a registered checker are
// accepted by default ("unchecked") — the journal records free-form
// strategies, it only enforces shape for the templates it knows.
//
// Failures are reported as a (false, message) pair, never as an error:
// the caller translates a false result into a rejected-creation error.
package spread

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jsgonzalez9/options/internal/model"
)

// checkFunc validates one strategy template against an ordered leg list.
type checkFunc func(legs []model.Leg) (bool, string)

// checkers is the strategy registry. Adding a template means adding one
// entry here; dispatch is case-insensitive on the label.
var checkers = map[string]checkFunc{
	"BULL CALL SPREAD": checkBullCallSpread,
	"IRON CONDOR":      checkIronCondor,
}

// Validate decides whether legs form a valid instance of the named
// strategy. Unknown strategy labels pass unchecked.
func Validate(strategy string, legs []model.Leg) (bool, string) {
	checker, ok := checkers[strings.ToUpper(strings.TrimSpace(strategy))]
	if !ok {
		return true, fmt.Sprintf("no validator for strategy %q; allowed by default", strategy)
	}

	for i, leg := range legs {
		if leg.Kind == "" || leg.Strike.IsZero() || leg.Quantity == 0 || leg.Expiry.IsZero() {
			return false, fmt.Sprintf(
				"leg %d is missing one or more required fields (kind, strike, expiry, quantity)", i+1)
		}
	}

	return checker(legs)
}

// Known reports whether a strategy label has a registered checker.
func Known(strategy string) bool {
	_, ok := checkers[strings.ToUpper(strings.TrimSpace(strategy))]
	return ok
}

// checkBullCallSpread: exactly two CALL legs, one long and one short,
// same expiry, long strike strictly below short strike.
func checkBullCallSpread(legs []model.Leg) (bool, string) {
	if len(legs) != 2 {
		return false, "bull call spread must have exactly two legs"
	}

	a, b := legs[0], legs[1]
	if kind(a) != model.KindCall || kind(b) != model.KindCall {
		return false, "both legs of a bull call spread must be CALL options"
	}
	if a.Quantity*b.Quantity >= 0 {
		return false, "bull call spread requires one long call and one short call"
	}

	long, short := a, b
	if b.Quantity > 0 {
		long, short = b, a
	}

	if !sameDate(long.Expiry, short.Expiry) {
		return false, "both legs of a bull call spread must share the same expiry date"
	}
	if !long.Strike.LessThan(short.Strike) {
		return false, "bull call spread requires the long call strike below the short call strike"
	}

	return true, "valid bull call spread"
}

// checkIronCondor: four legs with one expiry, a long/short put pair below
// a short/long call pair, uniform absolute quantity, and strikes ordered
// long put < short put < short call < long call.
func checkIronCondor(legs []model.Leg) (bool, string) {
	if len(legs) != 4 {
		return false, "iron condor must have exactly four legs"
	}

	for _, leg := range legs[1:] {
		if !sameDate(leg.Expiry, legs[0].Expiry) {
			return false, "all legs of an iron condor must share the same expiry date"
		}
	}

	var puts, calls []model.Leg
	for _, leg := range legs {
		switch kind(leg) {
		case model.KindPut:
			puts = append(puts, leg)
		case model.KindCall:
			calls = append(calls, leg)
		}
	}
	if len(puts) != 2 || len(calls) != 2 {
		return false, "iron condor must consist of two PUTs and two CALLs"
	}

	byStrike := func(ls []model.Leg) {
		sort.Slice(ls, func(i, j int) bool { return ls[i].Strike.LessThan(ls[j].Strike) })
	}
	byStrike(puts)
	byStrike(calls)

	longPut, shortPut := puts[0], puts[1]
	shortCall, longCall := calls[0], calls[1]

	if longPut.Quantity <= 0 || shortPut.Quantity >= 0 || shortCall.Quantity >= 0 || longCall.Quantity <= 0 {
		return false, "iron condor requires one long put, one short put, one short call, and one long call"
	}

	absQty := abs(longPut.Quantity)
	if abs(shortPut.Quantity) != absQty || abs(shortCall.Quantity) != absQty || abs(longCall.Quantity) != absQty {
		return false, "all legs of an iron condor must have the same absolute quantity"
	}

	if !(longPut.Strike.LessThan(shortPut.Strike) &&
		shortPut.Strike.LessThan(shortCall.Strike) &&
		shortCall.Strike.LessThan(longCall.Strike)) {
		return false, "iron condor strikes must satisfy long put < short put < short call < long call"
	}

	return true, "valid iron condor"
}

func kind(l model.Leg) string {
	return strings.ToUpper(l.Kind)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
