// Package render turns valuation output into terminal text: the holdings
// table, the allocation chart and the full-screen frame.
package render

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Formatter prints amounts in one currency.
type Formatter struct {
	cur money.Currency
}

func NewFormatter(code string) Formatter {
	// money.New never returns a nil currency, unknown codes get a bare template
	return Formatter{cur: *money.New(0, code).Currency()}
}

// Money formats an amount, rounded half away from zero to the currency's
// minor unit.
func (f Formatter) Money(amount decimal.Decimal) string {
	minor := amount.Round(int32(f.cur.Fraction)).Shift(int32(f.cur.Fraction))
	return f.cur.Formatter().Format(minor.IntPart())
}

// SignedMoney prefixes gains with "+".
func (f Formatter) SignedMoney(amount decimal.Decimal) string {
	if amount.IsPositive() {
		return "+" + f.Money(amount)
	}
	return f.Money(amount)
}

// Percent prints one decimal place with an explicit sign on gains.
func Percent(pct decimal.Decimal) string {
	s := pct.StringFixed(1) + "%"
	if pct.Round(1).IsPositive() {
		return "+" + s
	}
	return s
}

// Quantity trims trailing zeros.
func Quantity(q decimal.Decimal) string {
	return q.String()
}
