// Package core holds the domain model and the pure aggregation functions.
//
// This file contains money parsing and formatting. Amounts are whole VND in
// an int64; the đồng has no sub-unit, so there is no cents arithmetic.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in Vietnamese đồng.
type Money struct {
	Amount int64
}

func (m Money) Validate() error {
	if m.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// VND creates a Money from a whole đồng amount.
func VND(amount int64) Money {
	return Money{Amount: amount}
}

// ParseVND converts user input into đồng. It accepts plain digits
// ("50000"), dot or comma thousand separators ("50.000", "1,250,000"), a
// trailing đ/₫ sign, and the colloquial k/K suffix for thousands ("20k").
// Negative and zero amounts are rejected; expense entry never records those.
func ParseVND(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "₫")
	s = strings.TrimSuffix(s, "đ")
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}

	multiplier := int64(1)
	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
		multiplier = 1000
		s = s[:len(s)-1]
	}

	// Thousand separators only; VND has no decimal part.
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 1000
	if multiplier == 1000 && v > maxSafe {
		return Money{}, ErrInvalidAmount
	}
	v *= multiplier
	if v <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: v}, nil
}

// Format renders the amount with dot thousand separators and the đ sign,
// the way the app displays all money ("1.250.000đ").
func (m Money) Format() string {
	n := m.Amount
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte('.')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte('.')
		}
	}
	b.WriteString("đ")
	return b.String()
}

// Add returns m+n. Money is a value type; callers keep the originals.
func (m Money) Add(n Money) Money {
	return Money{Amount: m.Amount + n.Amount}
}
