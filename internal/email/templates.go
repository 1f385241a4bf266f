package email

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceEmail carries everything the invoice template renders.
type InvoiceEmail struct {
	To         string
	ClientName string
	SenderName string
	ReplyTo    string
	Number     string
	IssuedAt   time.Time
	DueDate    *time.Time
	Items      []InvoiceLine
	Subtotal   decimal.Decimal
	TPS        decimal.Decimal
	TVQ        decimal.Decimal
	Total      decimal.Decimal
	Currency   string
}

func (e InvoiceEmail) Subject() string {
	if e.SenderName == "" {
		return "Invoice " + e.Number
	}
	return "Invoice " + e.Number + " from " + e.SenderName
}

// HasTax reports whether the tax rows should be shown.
func (e InvoiceEmail) HasTax() bool {
	return !e.TPS.IsZero() || !e.TVQ.IsZero()
}

// InvoiceLine is one item row.
type InvoiceLine struct {
	Description string
	Date        time.Time
	Amount      decimal.Decimal
}
