package format

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders values with the decimal separator of a locale.
// Only the separator is localized; digit grouping is never applied.
type Formatter struct {
	tag       language.Tag
	separator string
}

// NewFormatter returns a formatter for tag.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{tag: tag, separator: decimalSeparator(tag)}
}

// ParseLocale builds a formatter from a BCP 47 tag such as "de-DE". An empty or
// invalid tag falls back to English.
func ParseLocale(locale string) *Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return NewFormatter(tag)
}

func decimalSeparator(tag language.Tag) string {
	s := message.NewPrinter(tag).Sprintf("%.1f", 1.5)
	sep := strings.Trim(s, "15")
	if sep == "" {
		return "."
	}
	return sep
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() language.Tag { return f.tag }

// Separator returns the decimal separator.
func (f *Formatter) Separator() string { return f.separator }

// Format renders v either as a percentage or in engineering notation with units.
func (f *Formatter) Format(v float64, units string, sig int, percentage bool) string {
	var s string
	if percentage {
		s = Percentage(v, sig)
	} else {
		s = Engineering(v, units, sig)
	}
	if f == nil || f.separator == "." {
		return s
	}
	return strings.Replace(s, ".", f.separator, 1)
}
