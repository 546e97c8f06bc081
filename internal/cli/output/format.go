package output

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NumberFormatter renders metric values with locale-aware grouping and
// a bounded fraction, e.g. 1234567.891 as "1,234,567.89" under "en".
func NumberFormatter(locale string) func(float64) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return func(v float64) string {
		return p.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
	}
}
