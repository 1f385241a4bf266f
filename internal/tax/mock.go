package tax

import "github.com/shopspring/decimal"

// MockCalculator is a test implementation of Calculator.
type MockCalculator struct {
	ExtractFunc func(total decimal.Decimal) Breakdown
	Calls       []decimal.Decimal
}

func NewMockCalculator() *MockCalculator {
	return &MockCalculator{}
}

// Extract delegates to ExtractFunc or falls back to no tax.
func (m *MockCalculator) Extract(total decimal.Decimal) Breakdown {
	m.Calls = append(m.Calls, total)
	if m.ExtractFunc != nil {
		return m.ExtractFunc(total)
	}
	return NewNoTaxCalculator().Extract(total)
}
