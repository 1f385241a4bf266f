package billing

import (
	"encoding/json"
	"fmt"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

// Stripe event types that settle an invoice.
const (
	EventCheckoutSessionCompleted      = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventPaymentIntentSucceeded        = "payment_intent.succeeded"
)

// PaymentFromEvent reduces a verified event to a domain.StripePayment.
// ok is false for event types that do not settle an invoice, and for
// completed checkouts whose payment is still pending.
func PaymentFromEvent(event stripe.Event) (payment *domain.StripePayment, ok bool, err error) {
	if event.Data == nil {
		return nil, false, domain.Errorf(domain.EINVALID, "", "Stripe event %s has no data", event.ID)
	}

	var metadata map[string]string
	var transactionID string

	switch string(event.Type) {
	case EventCheckoutSessionCompleted, EventCheckoutAsyncPaymentSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, false, fmt.Errorf("billing: parse checkout session: %w", err)
		}
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil, false, nil
		}
		metadata = cs.Metadata
		if metadata[MetadataInvoiceID] == "" && cs.ClientReferenceID != "" {
			metadata = map[string]string{MetadataInvoiceID: cs.ClientReferenceID}
		}
		transactionID = cs.ID
		if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
			transactionID = cs.PaymentIntent.ID
		}

	case EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, false, fmt.Errorf("billing: parse payment intent: %w", err)
		}
		metadata = pi.Metadata
		transactionID = pi.ID

	default:
		return nil, false, nil
	}

	raw := metadata[MetadataInvoiceID]
	if raw == "" {
		return nil, false, domain.ErrMissingInvoiceReference
	}
	invoiceID, err := uuid.Parse(raw)
	if err != nil {
		return nil, false, domain.ErrMissingInvoiceReference
	}

	return &domain.StripePayment{
		EventID:         event.ID,
		EventType:       string(event.Type),
		InvoiceID:       invoiceID,
		PaymentIntentID: transactionID,
	}, true, nil
}
