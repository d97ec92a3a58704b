// Package core provides money parsing and handling utilities.
//
// The ledger service reports whole currency units, rendered with thousands
// separators for display ("1,234"). Amounts submitted by users may carry
// either separator.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a server or user supplied amount to whole units.
//
// Grouping separators (comma, dot, space) are dropped unless the value is a
// plain decimal number such as a JSON float, in which case the fraction is
// truncated. A leading minus sign is kept.
//
// Examples:
//
//	ParseAmount("1,234")   -> 1234, nil
//	ParseAmount("-5,000")  -> -5000, nil
//	ParseAmount("150.000") -> 150000, nil
//	ParseAmount("1234.0")  -> 1234, nil
//	ParseAmount("Rp 20.000") -> 20000, nil
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if d, ok := plainDecimal(s); ok {
		return d.IntPart(), nil
	}

	neg := false
	var digits strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == '-' && digits.Len() == 0 && !neg:
			neg = true
		case r == ',' || r == '.' || r == ' ' || r == '_':
		case unicode.IsLetter(r) && digits.Len() == 0:
			// currency prefix such as "Rp"
		default:
			return 0, ErrInvalidAmount
		}
	}
	if digits.Len() == 0 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(digits.String())
	if err != nil || !d.IsInteger() {
		return 0, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d.IntPart(), nil
}

// ParsePositiveAmount is ParseAmount restricted to amounts greater than zero.
func ParsePositiveAmount(s string) (int64, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// plainDecimal accepts "1234", "-12.5" style values with at most one dot
// followed by anything other than exactly three digits.
func plainDecimal(s string) (decimal.Decimal, bool) {
	if strings.ContainsAny(s, ", _") {
		return decimal.Decimal{}, false
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		frac := s[i+1:]
		if strings.Contains(frac, ".") || len(frac) == 3 {
			return decimal.Decimal{}, false
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
