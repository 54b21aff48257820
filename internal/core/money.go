// Package core provides the event budget domain types and money handling.
//
// Amounts are shopspring decimals. Rounding to cents uses banker's rounding
// (half to even) so that derived figures match what the planner has always
// reported.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than 0 and less than 1,000,000,000")
	ErrInvalidBudget = errors.New("budget must be greater than 0 and less than 1,000,000,000")
)

// MaxAmount is the exclusive upper bound for budgets and expense amounts.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds d to two decimal places, half to even.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// Percentage returns part/whole*100 rounded to two places, or zero unless whole is positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return RoundMoney(part.Div(whole).Mul(hundred))
}

func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() || d.GreaterThanOrEqual(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

func ValidateBudget(d decimal.Decimal) error {
	if !d.IsPositive() || d.GreaterThanOrEqual(MaxAmount) {
		return ErrInvalidBudget
	}
	return nil
}

// ParseAmount parses a user supplied amount. It accepts both dot (12.34) and
// comma (12,34) decimal separators and rejects negative values.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
