// Package types holds the numeric types of quotations.
package types

import "github.com/shopspring/decimal"

// Money is a monetary amount kept at full precision. Calculations never
// round; Round2 is applied where values are shown or exported.
type Money = decimal.Decimal

// Quantity is a purchased quantity. Lines may be fractional (kg, m, l).
type Quantity = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// MustMoney parses s and panics on malformed input. For constants and
// fixtures.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

func Zero() Money {
	return decimal.Zero
}

// Percent returns pct percent of v.
func Percent(v Money, pct decimal.Decimal) Money {
	return v.Mul(pct).Div(hundred)
}

// ClampZero floors v at zero. Discounts larger than the offer yield a
// free line, not a credit.
func ClampZero(v Money) Money {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func Round2(v Money) Money {
	return v.Round(2)
}
