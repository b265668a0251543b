// Package core provides money parsing and handling utilities.
//
// This file contains functions for converting between decimal major-unit
// input (dollars) and the integer minor-unit (cents) representation used
// everywhere inside the ledger.
package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount of currency expressed in minor units (cents).
type Money struct {
	Cents int64
}

var (
	hundred = decimal.NewFromInt(100)

	// Largest major-unit value whose cent count still fits in an int64.
	maxMajorUnits = decimal.NewFromInt(1<<63 - 1).Div(hundred)
)

// Inputs are capped before any arithmetic: rescaling a decimal to an
// exponent such as 1e-99999999 allocates a power of ten of that size.
const (
	maxAmountLen   = 40
	maxAmountScale = 20
)

// parseAmount parses a dot or comma separated decimal, rejecting inputs
// whose length or exponent is outside what a currency amount can need.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountLen {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if exp := d.Exponent(); exp < -maxAmountScale || exp > maxAmountScale {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if d.Abs().GreaterThan(maxMajorUnits) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// ToMinorUnits converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place. The parse never goes
// through binary floating point, so "19.99" is always 1999 cents.
// Returns ErrInvalidAmount for invalid formats, non-positive values, values
// that round to zero cents, or values too large to represent.
//
// Examples:
//
//	ToMinorUnits("12.34")  -> 1234, nil
//	ToMinorUnits("12,345") -> 1235, nil (rounds up)
//	ToMinorUnits("0.004")  -> 0, ErrInvalidAmount
func ToMinorUnits(s string) (Money, error) {
	d, err := parseAmount(s)
	if err != nil || !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}

	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseAmountJSON converts a JSON number or numeric JSON string to Money.
// The raw token is handed to ToMinorUnits as text, so JSON numbers are never
// decoded into a float64 first.
func ParseAmountJSON(raw json.RawMessage) (Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Money{}, ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Money{}, ErrInvalidAmount
		}
		return ToMinorUnits(s)
	}
	return ToMinorUnits(string(raw))
}

// ToMajorUnits returns the amount in major units with two decimal places.
func ToMajorUnits(m Money) decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount as a plain two-decimal number, e.g. "150.00".
func (m Money) String() string {
	return ToMajorUnits(m).StringFixed(2)
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m minus o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON emits the major-unit value as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts the same shapes and bounds ParseAmountJSON does,
// plus zero and negative values, which appear in report output (variance).
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return ErrInvalidAmount
		}
		data = []byte(s)
	}
	d, err := parseAmount(string(data))
	if err != nil {
		return err
	}
	m.Cents = d.Mul(hundred).Round(0).IntPart()
	return nil
}
