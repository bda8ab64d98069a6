// Package format renders metric values for display using engineering notation.
package format

import "math"

// Tier bounds of the metric prefixes. Values below MinTier render as zero and values
// above MaxTier as infinity.
const (
	MinTier = -6
	MaxTier = 6
)

var prefixes = [...]string{"a", "f", "p", "n", "µ", "m", "", "k", "M", "G", "T", "P", "E"}

// PrefixSymbol returns the metric prefix of a base-1000 tier, such as "k" for 1 or "m" for -1.
func PrefixSymbol(tier int) (string, bool) {
	if tier < MinTier || tier > MaxTier {
		return "", false
	}
	return prefixes[tier-MinTier], true
}

// ToBase10 splits v into a mantissa with magnitude in [1, 10) and a power of ten.
// Zero, NaN and infinities are returned unchanged with exponent 0.
func ToBase10(v float64) (mantissa float64, exponent int) {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v, 0
	}
	exponent = int(math.Floor(math.Log10(math.Abs(v))))
	mantissa = v / math.Pow10(exponent)
	// Log10 can land one off near exact powers of ten.
	switch a := math.Abs(mantissa); {
	case a >= 10:
		mantissa /= 10
		exponent++
	case a < 1:
		mantissa *= 10
		exponent--
	}
	return mantissa, exponent
}

// ToBase1000 splits v into a mantissa with magnitude in [1, 1000) and a base-1000 tier.
func ToBase1000(v float64) (mantissa float64, tier int) {
	m, exp := ToBase10(v)
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return m, 0
	}
	tier = floorDiv(exp, 3)
	return m * math.Pow10(exp-tier*3), tier
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// DigitsAboveDecimal returns how many digits the integer part of v has.
// Magnitudes below one have none.
func DigitsAboveDecimal(v float64) int {
	_, exp := ToBase10(v)
	if v == 0 || exp < 0 {
		return 0
	}
	return exp + 1
}

// RoundToSignificantDigits rounds v to sig significant digits given that its integer part
// has digitsAbove digits.
func RoundToSignificantDigits(v float64, sig, digitsAbove int) float64 {
	decimals := sig - digitsAbove
	if decimals >= 0 {
		scale := math.Pow10(decimals)
		return math.Round(v*scale) / scale
	}
	scale := math.Pow10(-decimals)
	return math.Round(v/scale) * scale
}
