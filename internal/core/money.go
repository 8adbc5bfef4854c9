// Package core holds the domain types shared by the client packages.
//
// Amounts travel as decimal strings on the wire. They are parsed with
// shopspring/decimal so that sums never go through binary floating point.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a decimal amount string such as "100.00".
//
// A comma decimal separator is accepted ("12,34"). Empty or non-numeric
// strings return ErrInvalidAmount; the caller decides what to do with them.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatAmount renders an amount with two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// SignedAmount returns the amount of t as a signed contribution to a
// balance: positive for income, negative for outcome and zero for any other
// type.
func (t Transaction) SignedAmount() (decimal.Decimal, error) {
	amount, err := ParseAmount(t.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	switch t.Type {
	case Income:
		return amount, nil
	case Outcome:
		return amount.Neg(), nil
	default:
		return decimal.Zero, nil
	}
}
