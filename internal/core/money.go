// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents caps a single amount at one trillion major units, leaving room
// to sum millions of them in int64 cents.
const MaxCents = 100_000_000_000_000

var centsLimit = decimal.NewFromInt(MaxCents)

// ParseAmount converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount. Returns ErrInvalidAmount for malformed input, negative values,
// or values above MaxCents.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235 (rounds up)
//	ParseAmount("12.344") -> 1234
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return moneyFromDecimal(d, false)
}

// MoneyFromFloat converts a float into cents. Negative values are kept so
// that callers can report them through their own validation.
func MoneyFromFloat(f float64) Money {
	return Money{Cents: decimal.NewFromFloat(f).Shift(2).Round(0).IntPart()}
}

func moneyFromDecimal(d decimal.Decimal, allowNegative bool) (Money, error) {
	if d.IsNegative() && !allowNegative {
		return Money{}, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, d.String())
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(centsLimit) {
		return Money{}, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the value as a float64 for display and ratio purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Scale multiplies the amount by f, rounding half-up to whole cents.
func (m Money) Scale(f float64) Money {
	return Money{Cents: m.Decimal().Mul(decimal.NewFromFloat(f)).Shift(2).Round(0).IntPart()}
}

// MarshalJSON writes the amount as a plain JSON number (12.5, 100).
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, string(b))
		}
		parsed, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(b))
	}
	parsed, err := moneyFromDecimal(d, false)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
