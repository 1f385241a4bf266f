package tax_test

import (
	"testing"

	"github.com/dukerupert/tally/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quebecRates() tax.Rates {
	return tax.Rates{TPS: d("0.05"), TVQ: d("0.09975")}
}

func Test_TwoRateCalculator_Extract(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		subtotal string
		tps      string
		tvq      string
	}{
		{
			name:     "round total",
			total:    "114.98",
			subtotal: "100.00",
			tps:      "5.00",
			tvq:      "9.98",
		},
		{
			name:     "three hundred",
			total:    "300.00",
			subtotal: "260.93",
			tps:      "13.05",
			tvq:      "26.02",
		},
		{
			name:     "one cent",
			total:    "0.01",
			subtotal: "0.01",
			tps:      "0.00",
			tvq:      "0.00",
		},
	}

	calc, err := tax.NewTwoRateCalculator(quebecRates())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := calc.Extract(d(tt.total))

			assert.True(t, d(tt.subtotal).Equal(b.Subtotal), "subtotal: got %s", b.Subtotal)
			assert.True(t, d(tt.tps).Equal(b.TPS), "tps: got %s", b.TPS)
			assert.True(t, d(tt.tvq).Equal(b.TVQ), "tvq: got %s", b.TVQ)
			assert.True(t, d(tt.total).Equal(b.Total))
		})
	}
}

func Test_TwoRateCalculator_PartsAlwaysSumToTotal(t *testing.T) {
	calc, err := tax.NewTwoRateCalculator(quebecRates())
	require.NoError(t, err)

	for cents := int64(1); cents <= 5000; cents += 37 {
		total := decimal.New(cents, -2)
		b := calc.Extract(total)

		sum := b.Subtotal.Add(b.TPS).Add(b.TVQ)
		assert.True(t, total.Equal(sum), "total %s split into %s + %s + %s", total, b.Subtotal, b.TPS, b.TVQ)
		assert.True(t, b.Tax().Equal(b.TPS.Add(b.TVQ)))
	}
}

func Test_NewTwoRateCalculator_RejectsInvalidRates(t *testing.T) {
	tests := []struct {
		name  string
		rates tax.Rates
	}{
		{"negative tps", tax.Rates{TPS: d("-0.01"), TVQ: d("0.05")}},
		{"tvq of one", tax.Rates{TPS: d("0.05"), TVQ: d("1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tax.NewTwoRateCalculator(tt.rates)
			assert.ErrorIs(t, err, tax.ErrInvalidTaxRate)
		})
	}
}

func Test_ForRates(t *testing.T) {
	calc, err := tax.ForRates(tax.Rates{})
	require.NoError(t, err)
	assert.IsType(t, &tax.NoTaxCalculator{}, calc)

	b := calc.Extract(d("42.50"))
	assert.True(t, d("42.50").Equal(b.Subtotal))
	assert.True(t, b.Tax().IsZero())

	calc, err = tax.ForRates(quebecRates())
	require.NoError(t, err)
	assert.IsType(t, &tax.TwoRateCalculator{}, calc)
}
