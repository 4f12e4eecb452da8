// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals end to end. Values that are already rounded to
// the cent travel to storage as integer minor units.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CentPlaces is the number of fractional digits every computed amount is rounded to.
const CentPlaces = 2

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a user-entered decimal string to a decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and keeps the
// full scale of the input (10.005 stays 10.005). Negative values, signs and
// anything but digits and one separator are rejected. Zero is allowed.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.345, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(parts) == 2 && parts[1] == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RoundCents rounds to two fractional digits, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// ToCents converts an amount to integer minor units, rounding first.
func ToCents(d decimal.Decimal) int64 {
	return RoundCents(d).Shift(CentPlaces).IntPart()
}

// FromCents converts integer minor units back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -CentPlaces)
}

// FormatAmount renders an amount with two fixed decimals and the currency code,
// e.g. "1234.50 PLN".
func FormatAmount(d decimal.Decimal, currency string) string {
	s := d.StringFixed(CentPlaces)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
