package tax

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// TwoRateCalculator treats totals as tax-inclusive and backs out both
// rates, rounding to cents. Rounding residue lands on TVQ so the parts
// always add up to the total.
type TwoRateCalculator struct {
	rates Rates
}

// NewTwoRateCalculator validates that each rate is in [0, 1).
func NewTwoRateCalculator(rates Rates) (*TwoRateCalculator, error) {
	for _, r := range []decimal.Decimal{rates.TPS, rates.TVQ} {
		if r.IsNegative() || r.GreaterThanOrEqual(one) {
			return nil, ErrInvalidTaxRate
		}
	}
	return &TwoRateCalculator{rates: rates}, nil
}

func (c *TwoRateCalculator) Extract(total decimal.Decimal) Breakdown {
	divisor := one.Add(c.rates.TPS).Add(c.rates.TVQ)
	subtotal := total.Div(divisor).Round(2)
	tps := subtotal.Mul(c.rates.TPS).Round(2)
	tvq := total.Sub(subtotal).Sub(tps)

	return Breakdown{
		Subtotal: subtotal,
		TPS:      tps,
		TVQ:      tvq,
		Total:    total,
	}
}
