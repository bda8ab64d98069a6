package format

import (
	"math"
	"strconv"
	"strings"
)

// Limits applied to the requested number of significant digits.
const (
	MinSignificantDigits = 1
	MaxSignificantDigits = 7
)

const maxDecimals = 15

func clampDigits(sig int) int {
	return min(max(sig, MinSignificantDigits), MaxSignificantDigits)
}

// Engineering renders v with sig significant digits, a metric prefix and the unit symbol,
// for example "145 ms" or "1.2 kB/s".
func Engineering(v float64, units string, sig int) string {
	number, prefix := engineeringNumber(v, clampDigits(sig))
	return join(number, prefix, units)
}

func engineeringNumber(v float64, sig int) (number, prefix string) {
	switch {
	case math.IsNaN(v):
		return "NaN", ""
	case math.IsInf(v, 1):
		return "∞", ""
	case math.IsInf(v, -1):
		return "-∞", ""
	case v == 0:
		return "0", ""
	}

	mantissa, tier := ToBase1000(v)
	rounded := RoundToSignificantDigits(mantissa, sig, DigitsAboveDecimal(mantissa))
	if math.Abs(rounded) >= 1000 {
		tier++
		mantissa = rounded / 1000
		rounded = RoundToSignificantDigits(mantissa, sig, DigitsAboveDecimal(mantissa))
	}

	switch {
	case tier < MinTier:
		return "0", ""
	case tier > MaxTier && v > 0:
		return "∞", ""
	case tier > MaxTier:
		return "-∞", ""
	}
	symbol, _ := PrefixSymbol(tier)
	decimals := max(sig-DigitsAboveDecimal(rounded), 0)
	return trimZeros(strconv.FormatFloat(rounded, 'f', decimals, 64)), symbol
}

// Percentage renders a ratio as a percentage with sig significant digits, so 0.253 becomes "25.3%".
func Percentage(v float64, sig int) string {
	return percentageNumber(v, clampDigits(sig)) + "%"
}

func percentageNumber(v float64, sig int) string {
	pct := v * 100
	switch {
	case math.IsNaN(pct):
		return "NaN"
	case math.IsInf(pct, 1):
		return "∞"
	case math.IsInf(pct, -1):
		return "-∞"
	case pct == 0:
		return "0"
	}

	rounded := RoundToSignificantDigits(pct, sig, magnitude(pct))
	decimals := min(max(sig-magnitude(rounded), 0), maxDecimals)
	return trimZeros(strconv.FormatFloat(rounded, 'f', decimals, 64))
}

// magnitude is the position of the leading digit relative to the decimal point:
// 2 for 25.3, 0 for 0.12, -1 for 0.012.
func magnitude(v float64) int {
	_, exp := ToBase10(v)
	return exp + 1
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func join(number, prefix, units string) string {
	suffix := prefix + units
	if suffix == "" {
		return number
	}
	return number + " " + suffix
}
