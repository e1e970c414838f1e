// Package core defines the ledger entities and money handling for the
// public-works budget tracker. Amounts are BRL centavos held as int64; the
// only fractional arithmetic (user input parsing and the remaining-budget
// percentage) goes through shopspring/decimal to avoid float drift.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a BRL amount in centavos. Derived figures (period results,
// remaining budgets) may be negative; validation of sign happens on the
// entities that carry the amount.
type Money struct {
	Cents int64
}

var oneHundred = decimal.NewFromInt(100)

// ParseBRL converts a user-entered amount to centavos. Both decimal comma
// ("1234,56") and decimal dot ("1234.56") are accepted; thousands separators
// are not. Negative amounts are rejected.
func ParseBRL(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Cents: d.Mul(oneHundred).Round(0).IntPart()}, nil
}

// BRL returns the amount in reais as a float64 for chart payloads and
// spreadsheet cells. Keep calculations in cents.
func (m Money) BRL() float64 {
	return float64(m.Cents) / 100.0
}

// FormatBRL renders the amount in the Brazilian currency format, e.g.
// "R$ 1.234,56".
func FormatBRL(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	intPart := cents / 100
	frac := cents % 100

	digits := decimal.NewFromInt(intPart).String()
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	out := "R$ " + b.String() + "," + twoDigits(frac)
	if neg {
		out = "-" + out
	}
	return out
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

// Percentage returns part/total*100 rounded to two decimals, and 0 when total
// is zero. Used for the remaining-budget percentage, which is meaningless
// before any budget exists.
func Percentage(part, total Money) float64 {
	if total.Cents == 0 {
		return 0
	}
	p := decimal.NewFromInt(part.Cents).
		Div(decimal.NewFromInt(total.Cents)).
		Mul(oneHundred).
		Round(2)
	f, _ := p.Float64()
	return f
}
