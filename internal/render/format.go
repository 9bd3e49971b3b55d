// Package render prints ledger reports for a terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"budget/internal/core"
)

var symbols = map[core.Currency]string{
	core.USD: "$",
	core.JPY: "¥",
}

// Money formats amounts with grouped digits and the currency's minor units.
type Money struct {
	printer *message.Printer
}

func NewMoney(tag language.Tag) Money {
	return Money{printer: message.NewPrinter(tag)}
}

// Format renders amount as e.g. $1,234.50 or ¥151,670.
func (m Money) Format(amount decimal.Decimal, c core.Currency) string {
	digits := c.FractionDigits()
	rounded := amount.Round(digits)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	whole := rounded.Truncate(0)
	var b strings.Builder
	b.WriteString(sign)
	if sym, ok := symbols[c]; ok {
		b.WriteString(sym)
	}
	b.WriteString(m.printer.Sprintf("%d", whole.IntPart()))
	if digits > 0 {
		frac := rounded.Sub(whole).Shift(digits).IntPart()
		fmt.Fprintf(&b, ".%0*d", int(digits), frac)
	}
	if _, ok := symbols[c]; !ok && c != "" {
		b.WriteString(" " + string(c))
	}
	return b.String()
}
