package netstats

import (
	"strconv"
	"strings"
)

// BaseUnits expresses a dimensional unit as a pair of exponents over bytes and seconds.
type BaseUnits struct {
	BytesExponent   int8
	SecondsExponent int8
}

// Common units.
var (
	Dimensionless  = BaseUnits{}
	Bytes          = BaseUnits{BytesExponent: 1}
	Seconds        = BaseUnits{SecondsExponent: 1}
	PerSecond      = BaseUnits{SecondsExponent: -1}
	BytesPerSecond = BaseUnits{BytesExponent: 1, SecondsExponent: -1}
)

// IsDimensionless reports whether both exponents are zero.
func (u BaseUnits) IsDimensionless() bool {
	return u.BytesExponent == 0 && u.SecondsExponent == 0
}

// PerSecond returns the units divided by one second.
func (u BaseUnits) PerSecond() BaseUnits {
	return BaseUnits{BytesExponent: u.BytesExponent, SecondsExponent: u.SecondsExponent - 1}
}

// String renders the units as a compact symbol such as "B", "s", "B/s" or "/s".
func (u BaseUnits) String() string {
	var num, den strings.Builder
	writeUnit(&num, &den, "B", u.BytesExponent)
	writeUnit(&num, &den, "s", u.SecondsExponent)
	if den.Len() == 0 {
		return num.String()
	}
	return num.String() + "/" + den.String()
}

func writeUnit(num, den *strings.Builder, symbol string, exp int8) {
	switch {
	case exp == 0:
		return
	case exp > 0:
		appendSymbol(num, symbol, int(exp))
	default:
		appendSymbol(den, symbol, -int(exp))
	}
}

func appendSymbol(sb *strings.Builder, symbol string, exp int) {
	if sb.Len() > 0 {
		sb.WriteByte('*')
	}
	sb.WriteString(symbol)
	if exp > 1 {
		sb.WriteByte('^')
		sb.WriteString(strconv.Itoa(exp))
	}
}
