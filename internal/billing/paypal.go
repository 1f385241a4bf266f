package billing

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPayPalURL is the live Payments Standard endpoint.
const DefaultPayPalURL = "https://www.paypal.com/cgi-bin/webscr"

// ErrPayPalReceiverRequired is returned when no business email is supplied.
var ErrPayPalReceiverRequired = errors.New("billing: paypal receiver email is required")

// PayPalConfig holds the settings shared by every PayPal payment link.
type PayPalConfig struct {
	// BaseURL is the webscr endpoint. Use the sandbox URL in development.
	BaseURL string

	// Currency is the ISO code sent as currency_code. Default: CAD
	Currency string

	// NotifyURL receives IPN messages.
	NotifyURL string
	ReturnURL string
	CancelURL string
}

// PayPalLinkParams describes one invoice payment.
type PayPalLinkParams struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Amount        decimal.Decimal

	// Business is the invoice owner's PayPal receiving address.
	Business string
}

// PaymentURL builds a Buy Now redirect. The invoice id travels in both
// "invoice" and "custom" so the IPN can be matched either way.
func (c PayPalConfig) PaymentURL(params PayPalLinkParams) (string, error) {
	if strings.TrimSpace(params.Business) == "" {
		return "", ErrPayPalReceiverRequired
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultPayPalURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	currency := c.Currency
	if currency == "" {
		currency = "CAD"
	}

	q := url.Values{}
	q.Set("cmd", "_xclick")
	q.Set("business", params.Business)
	q.Set("amount", params.Amount.StringFixed(2))
	q.Set("currency_code", strings.ToUpper(currency))
	q.Set("item_name", "Invoice "+params.InvoiceNumber)
	q.Set("invoice", params.InvoiceID.String())
	q.Set("custom", params.InvoiceID.String())
	q.Set("no_shipping", "1")
	if c.NotifyURL != "" {
		q.Set("notify_url", c.NotifyURL)
	}
	if c.ReturnURL != "" {
		q.Set("return", c.ReturnURL)
	}
	if c.CancelURL != "" {
		q.Set("cancel_return", c.CancelURL)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
