// Package money holds the decimal helpers shared by pricing, commission and
// wallet code. All persisted amounts carry two decimal places.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns round2(base * rate / 100).
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(rate).Div(hundred))
}

// Max returns the larger amount.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller amount.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	return Max(d, decimal.Zero)
}

// FromString parses a decimal and rounds it to cents.
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return Round2(d), nil
}
