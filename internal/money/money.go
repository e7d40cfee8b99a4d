// Package money centralizes the monetary rounding policy: every amount is
// held at 2 decimal places and re-rounded immediately after each arithmetic
// step, so drift can never accumulate between operations.
package money

import "github.com/shopspring/decimal"

// Round2 rounds to 2 decimal places, half up (0.005 -> 0.01).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Add returns round2(a + b).
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Add(b))
}

// Sub returns round2(a - b).
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Sub(b))
}

// Mul returns round2(a * b).
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return Round2(a.Mul(b))
}

// Inverse returns round2(1 / d).
func Inverse(d decimal.Decimal) decimal.Decimal {
	return Round2(decimal.NewFromInt(1).Div(d))
}

// WithinTolerance reports whether |d| < 0.01, the slack allowed when
// checking that a transaction's ledger entries sum to zero.
func WithinTolerance(d decimal.Decimal) bool {
	return d.Abs().LessThan(decimal.New(1, -2))
}
