package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/tally/internal/billing"
	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/telemetry"
	"github.com/google/uuid"
)

// CheckoutService is re-exported from domain for handler wiring.
type CheckoutService = domain.CheckoutService

// CheckoutConfig holds the URLs and currency used for payment links.
type CheckoutConfig struct {
	// BaseURL is the public origin clients return to after paying.
	BaseURL string

	// Currency is the ISO code Stripe sessions are created in.
	Currency string

	PayPal billing.PayPalConfig
}

type checkoutService struct {
	store  domain.LedgerReader
	stripe billing.Provider
	logger *slog.Logger
	config CheckoutConfig
}

// NewCheckoutService creates a CheckoutService. A nil stripe provider
// disables Stripe links for every account.
func NewCheckoutService(store domain.LedgerReader, stripe billing.Provider, logger *slog.Logger, config CheckoutConfig) CheckoutService {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.PayPal.NotifyURL == "" && config.BaseURL != "" {
		config.PayPal.NotifyURL = config.BaseURL + "/webhooks/paypal"
	}
	return &checkoutService{
		store:  store,
		stripe: stripe,
		logger: logger,
		config: config,
	}
}

// CreatePaymentLink returns a URL the client can pay the invoice through.
func (s *checkoutService) CreatePaymentLink(ctx context.Context, userID, invoiceID uuid.UUID, provider domain.PaymentProvider) (*domain.PaymentLink, error) {
	inv, err := ownedInvoice(ctx, s.store, userID, invoiceID)
	if err != nil {
		return nil, domain.WithOp(err, opPaymentLink)
	}
	if inv.IsPaid() {
		return nil, domain.WithOp(domain.ErrInvoiceAlreadyPaid, opPaymentLink)
	}

	owner, err := s.store.GetUser(ctx, inv.UserID)
	if err != nil {
		return nil, domain.WithOp(err, opPaymentLink)
	}

	switch provider {
	case domain.PaymentProviderStripe:
		return s.stripeLink(ctx, inv, owner)
	case domain.PaymentProviderPayPal:
		return s.paypalLink(inv, owner)
	default:
		return nil, domain.WithOp(domain.ErrUnsupportedPaymentMethod, opPaymentLink)
	}
}

func (s *checkoutService) stripeLink(ctx context.Context, inv *domain.Invoice, owner *domain.User) (*domain.PaymentLink, error) {
	if s.stripe == nil || !owner.StripeEnabled {
		return nil, domain.WithOp(domain.ErrProviderNotConfigured, opPaymentLink)
	}

	var customerEmail string
	if client, err := s.store.GetClient(ctx, inv.ClientID); err == nil {
		customerEmail = client.Email
	}

	start := time.Now()
	session, err := s.stripe.CreateCheckoutSession(ctx, billing.CheckoutSessionParams{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Amount:        inv.Total,
		Currency:      s.config.Currency,
		CustomerEmail: customerEmail,
		SuccessURL:    s.returnURL(inv.ID, "paid"),
		CancelURL:     s.returnURL(inv.ID, "cancelled"),
	})
	if telemetry.Business != nil {
		telemetry.Business.StripeAPILatency.WithLabelValues("checkout_session").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, billing.ErrAmountTooSmall) {
			return nil, domain.WrapError(err, domain.EINVALID, opPaymentLink, "Invoice total is below the card payment minimum")
		}
		s.logger.ErrorContext(ctx, "stripe checkout session failed",
			"invoice_id", inv.ID,
			"error", err,
		)
		return nil, domain.WrapError(err, domain.EINTERNAL, opPaymentLink, "Failed to create Stripe checkout session")
	}

	return &domain.PaymentLink{
		Provider:  domain.PaymentProviderStripe,
		URL:       session.URL,
		SessionID: session.ID,
	}, nil
}

func (s *checkoutService) paypalLink(inv *domain.Invoice, owner *domain.User) (*domain.PaymentLink, error) {
	if !owner.HasPayPal() {
		return nil, domain.WithOp(domain.ErrProviderNotConfigured, opPaymentLink)
	}

	config := s.config.PayPal
	if config.ReturnURL == "" {
		config.ReturnURL = s.returnURL(inv.ID, "paid")
	}
	if config.CancelURL == "" {
		config.CancelURL = s.returnURL(inv.ID, "cancelled")
	}

	link, err := config.PaymentURL(billing.PayPalLinkParams{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		Amount:        inv.Total,
		Business:      strings.TrimSpace(owner.PayPalEmail),
	})
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, opPaymentLink, "Failed to build PayPal link")
	}

	return &domain.PaymentLink{Provider: domain.PaymentProviderPayPal, URL: link}, nil
}

func (s *checkoutService) returnURL(invoiceID uuid.UUID, outcome string) string {
	if s.config.BaseURL == "" {
		return ""
	}
	return s.config.BaseURL + "/invoices/" + invoiceID.String() + "/" + outcome
}
