// Package occ handles OCC option symbol parsing and formatting, the
// compact form used on broker statements: root + YYMMDD + C/P + strike
// in thousandths of a dollar, zero-padded to eight digits.
package occ

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/model"
)

// symbolRegex matches: {root}{YYMMDD}{C|P}{strike×1000, 8 digits}
// Example: XYZ260115C00100000 = XYZ 2026-01-15 100.00 call
var symbolRegex = regexp.MustCompile(
	`^([A-Z]{1,6})(\d{6})([CP])(\d{8})$`,
)

var (
	ErrInvalidSymbol = errors.New("occ: invalid option symbol format")
	ErrNotAnOption   = errors.New("occ: kind has no option symbol")
)

// Option represents a parsed OCC option symbol.
type Option struct {
	Symbol     string          `json:"symbol"`
	Underlying string          `json:"underlying"`
	Kind       string          `json:"kind"` // CALL or PUT
	Strike     decimal.Decimal `json:"strike"`
	Expiry     time.Time       `json:"expiry"`
}

// Parse parses and validates a compact OCC option symbol.
// Format: {root}{YYMMDD}{C|P}{strike×1000 padded to 8 digits}
func Parse(symbol string) (*Option, error) {
	matches := symbolRegex.FindStringSubmatch(symbol)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected {root}{YYMMDD}{C|P}{strike×1000})",
			ErrInvalidSymbol, symbol)
	}

	root := matches[1]
	dateStr := matches[2]
	kindChar := matches[3]
	strikeStr := matches[4]

	expiry, err := time.Parse("060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidSymbol, dateStr)
	}

	kind := model.KindCall
	if kindChar == "P" {
		kind = model.KindPut
	}

	// Strike is an integer count of thousandths of a dollar.
	milli, err := strconv.ParseInt(strikeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid strike %s", ErrInvalidSymbol, strikeStr)
	}

	return &Option{
		Symbol:     symbol,
		Underlying: root,
		Kind:       kind,
		Strike:     decimal.New(milli, -3),
		Expiry:     expiry,
	}, nil
}

// Format builds the compact OCC symbol for an option leg.
func Format(underlying, kind string, strike decimal.Decimal, expiry time.Time) (string, error) {
	var kindChar string
	switch kind {
	case model.KindCall:
		kindChar = "C"
	case model.KindPut:
		kindChar = "P"
	default:
		return "", fmt.Errorf("%w: %s", ErrNotAnOption, kind)
	}

	if len(underlying) == 0 || len(underlying) > 6 {
		return "", fmt.Errorf("%w: underlying %q", ErrInvalidSymbol, underlying)
	}

	milli := strike.Mul(decimal.NewFromInt(1000))
	if !milli.Equal(milli.Truncate(0)) || milli.IsNegative() {
		return "", fmt.Errorf("%w: strike %s", ErrInvalidSymbol, strike)
	}

	return fmt.Sprintf("%s%s%s%08d",
		underlying, expiry.Format("060102"), kindChar, milli.IntPart()), nil
}
