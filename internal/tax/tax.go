// Package tax splits invoice totals into a subtotal and two flat sales
// taxes (federal TPS and provincial TVQ).
package tax

import (
	"github.com/shopspring/decimal"
)

// Calculator extracts the tax portion from a tax-inclusive total.
// Implementations: TwoRateCalculator, NoTaxCalculator.
type Calculator interface {
	Extract(total decimal.Decimal) Breakdown
}

// Rates is the pair of flat rates applied to every charge.
type Rates struct {
	TPS decimal.Decimal // e.g. 0.05
	TVQ decimal.Decimal // e.g. 0.09975
}

// IsZero reports whether no tax applies.
func (r Rates) IsZero() bool {
	return r.TPS.IsZero() && r.TVQ.IsZero()
}

// Breakdown always satisfies Subtotal + TPS + TVQ == Total.
type Breakdown struct {
	Subtotal decimal.Decimal
	TPS      decimal.Decimal
	TVQ      decimal.Decimal
	Total    decimal.Decimal
}

// Tax returns TPS + TVQ.
func (b Breakdown) Tax() decimal.Decimal {
	return b.TPS.Add(b.TVQ)
}

// ForRates returns the calculator for an account's configured rates.
func ForRates(rates Rates) (Calculator, error) {
	if rates.IsZero() {
		return NewNoTaxCalculator(), nil
	}
	return NewTwoRateCalculator(rates)
}
