package tax

import "github.com/shopspring/decimal"

// NoTaxCalculator reports the whole total as subtotal.
// Used for accounts without configured rates.
type NoTaxCalculator struct{}

func NewNoTaxCalculator() *NoTaxCalculator {
	return &NoTaxCalculator{}
}

func (c *NoTaxCalculator) Extract(total decimal.Decimal) Breakdown {
	return Breakdown{
		Subtotal: total,
		TPS:      decimal.Zero,
		TVQ:      decimal.Zero,
		Total:    total,
	}
}
