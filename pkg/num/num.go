// Package num holds the decimal helpers used for quantities, prices and
// percentages. Values are converted through shopspring/decimal so flooring and
// precision detection are not skewed by binary float representation.
package num

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision returns the number of decimal places needed to represent v,
// e.g. Precision(0.0010) == 3. Non-finite input yields 0.
func Precision(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	exp := decimal.NewFromFloat(v).Exponent()
	if exp >= 0 {
		return 0
	}
	return int(-exp)
}

// Floor truncates v down to the given number of decimals, e.g. Floor(1.2399, 2) == 1.23.
func Floor(v float64, decimals int) float64 {
	f, _ := decimal.NewFromFloat(v).RoundFloor(int32(decimals)).Float64()
	return f
}

// F2 rounds to two decimals.
func F2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// AbsPercentageChange returns |100 * (v2 - v1) / |v1||, rounded to two decimals.
func AbsPercentageChange(v1, v2 float64) float64 {
	if v1 == 0 {
		return 0
	}
	return F2(math.Abs(100 * (v2 - v1) / math.Abs(v1)))
}

// SumWithMaxPrecision adds a and b and rounds the result to the larger precision
// of the two operands, dropping float noise like 0.1+0.2.
func SumWithMaxPrecision(a, b float64) float64 {
	p := max(Precision(a), Precision(b))
	f, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(int32(p)).Float64()
	return f
}

// ParseDecimal parses a venue-formatted number, returning zero for empty or malformed input.
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders v without exponent and without trailing zeros, suitable for query strings.
func Format(v float64) string {
	return decimal.NewFromFloat(v).String()
}
