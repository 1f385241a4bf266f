package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentProvider tags how an invoice was settled.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderPayPal PaymentProvider = "paypal"
	PaymentProviderManual PaymentProvider = "manual"
)

// Reconciliation errors. Mismatches are authenticity failures for the
// unsigned PayPal path and are never applied.
var (
	ErrPayPalReceiverMismatch = &Error{Code: EINVALID, Message: "PayPal receiver email does not match the invoice owner"}
	ErrPayPalAmountMismatch   = &Error{Code: EINVALID, Message: "PayPal gross amount does not match the invoice total"}
	ErrPayPalNotConfigured    = &Error{Code: EINVALID, Message: "Invoice owner has no PayPal receiving address"}
	ErrPayPalCurrencyMismatch = &Error{Code: EINVALID, Message: "PayPal currency does not match the invoice currency"}
)

// PaymentEvent records a provider notification that was applied, keyed by
// (Provider, EventID) so redeliveries are recognised.
type PaymentEvent struct {
	ID         uuid.UUID
	Provider   PaymentProvider
	EventID    string
	EventType  string
	InvoiceID  uuid.UUID
	ReceivedAt time.Time
}

// Payment is the provider-independent effect applied to an invoice.
type Payment struct {
	InvoiceID     uuid.UUID
	Provider      PaymentProvider
	TransactionID string
	PaidAt        time.Time
}

// StripePayment is a verified Stripe event reduced to what reconciliation
// needs.
type StripePayment struct {
	EventID         string
	EventType       string
	InvoiceID       uuid.UUID
	PaymentIntentID string
}

// PayPalNotification is a parsed IPN message. Gross is kept as received so
// the comparison against the invoice total happens in one place.
type PayPalNotification struct {
	TxnID         string
	InvoiceID     uuid.UUID
	PaymentStatus string
	ReceiverEmail string
	Gross         string
	Currency      string
}

// PayPalStatusCompleted is the only IPN status that settles an invoice.
const PayPalStatusCompleted = "Completed"

// ReconcileOutcome says what a notification did to the ledger.
type ReconcileOutcome string

const (
	ReconcileApplied     ReconcileOutcome = "applied"
	ReconcileAlreadyPaid ReconcileOutcome = "already_paid"
	ReconcileDuplicate   ReconcileOutcome = "duplicate_event"
	ReconcileIgnored     ReconcileOutcome = "ignored"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome
	Invoice *Invoice

	// CascadedCharges is the number of unpaid amounts moved to paid.
	CascadedCharges int64
}

// PaymentService reconciles provider notifications into the ledger.
// Each invoice transitions to paid at most once no matter how often or in
// which order notifications arrive.
type PaymentService interface {
	ReconcileStripe(ctx context.Context, payment StripePayment) (*ReconcileResult, error)
	ReconcilePayPal(ctx context.Context, notification PayPalNotification) (*ReconcileResult, error)
}

// PaymentLink is a provider URL the client can pay an invoice through.
type PaymentLink struct {
	Provider  PaymentProvider
	URL       string
	SessionID string
}

// CheckoutService builds payment links for invoices.
type CheckoutService interface {
	// CreatePaymentLink refuses paid invoices and providers the owner has
	// not configured.
	CreatePaymentLink(ctx context.Context, userID, invoiceID uuid.UUID, provider PaymentProvider) (*PaymentLink, error)
}
