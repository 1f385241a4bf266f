package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// minimumChargeCents is Stripe's smallest accepted charge for CAD/USD.
const minimumChargeCents = 50

// StripeProvider implements Provider using the Stripe API.
type StripeProvider struct {
	config   StripeConfig
	sessions *session.Client
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a Stripe provider with its own backend, so
// no package-level stripe.Key is needed.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if config.APIKey == "" {
		return nil, ErrInvalidAPIKey
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := int64(config.MaxRetries)
	if retries <= 0 {
		retries = 3
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(retries),
	})

	return &StripeProvider{
		config:   config,
		sessions: &session.Client{B: backend, Key: config.APIKey},
	}, nil
}

// VerifyWebhookSignature validates the Stripe-Signature header, including
// the default timestamp tolerance.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	if len(payload) == 0 || signature == "" || secret == "" {
		return ErrInvalidWebhookSignature
	}
	if err := webhook.ValidatePayload(payload, signature, secret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}
	return nil
}

// CreateCheckoutSession creates a payment-mode Checkout Session for the
// invoice total. The invoice id is stored on both the session and the
// payment intent so either webhook can be reconciled.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	cents := params.AmountCents()
	if cents < minimumChargeCents {
		return nil, ErrAmountTooSmall
	}

	currency := params.Currency
	if currency == "" {
		currency = s.config.currency()
	}
	invoiceID := params.InvoiceID.String()

	sp := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
		ClientReferenceID: stripe.String(invoiceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(cents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Invoice " + params.InvoiceNumber),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{MetadataInvoiceID: invoiceID},
		},
	}
	if params.CustomerEmail != "" {
		sp.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	sp.Context = ctx
	sp.AddMetadata(MetadataInvoiceID, invoiceID)
	sp.SetIdempotencyKey("checkout-" + invoiceID + "-" + params.InvoiceNumber)

	cs, err := s.sessions.New(sp)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

func wrapStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("stripe: %w", err)
	}
	return &StripeError{
		Message:       se.Msg,
		Code:          string(se.Code),
		DeclineCode:   string(se.DeclineCode),
		StatusCode:    se.HTTPStatusCode,
		RequestID:     se.RequestID,
		OriginalError: err,
	}
}
