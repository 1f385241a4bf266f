// Package billing talks to the payment providers: Stripe for signed
// webhooks and hosted checkout, PayPal for redirect links.
package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is the card-payment provider used to collect invoices.
type Provider interface {
	// VerifyWebhookSignature checks the signature header against the raw
	// payload. It must run before the payload is parsed.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error

	// CreateCheckoutSession creates a hosted payment page for an invoice.
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
}

// CheckoutSessionParams describes a one-off payment of an invoice total.
type CheckoutSessionParams struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// AmountCents converts Amount to the provider's minor unit.
func (p CheckoutSessionParams) AmountCents() int64 {
	return p.Amount.Shift(2).Round(0).IntPart()
}

// CheckoutSession is a created hosted payment page.
type CheckoutSession struct {
	ID  string
	URL string
}

// MetadataInvoiceID is the metadata key that ties provider objects back to
// an invoice.
const MetadataInvoiceID = "invoice_id"
