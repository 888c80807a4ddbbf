package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyFormat renders amounts for people. The engines never format money;
// only the boundary layers do, with a format taken from configuration.
type MoneyFormat struct {
	Symbol            string
	DecimalSeparator  string
	ThousandSeparator string
}

// DefaultMoneyFormat renders Brazilian Real, e.g. "R$ 1.234,56".
var DefaultMoneyFormat = MoneyFormat{Symbol: "R$", DecimalSeparator: ",", ThousandSeparator: "."}

// Format rounds to cents and applies the separators.
func (f MoneyFormat) Format(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.Round(2).IsNegative() {
		b.WriteByte('-')
	}
	if f.Symbol != "" {
		b.WriteString(f.Symbol)
		b.WriteByte(' ')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(f.ThousandSeparator)
		}
		b.WriteRune(c)
	}
	b.WriteString(f.DecimalSeparator)
	b.WriteString(frac)
	return b.String()
}
