package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/events"
	"github.com/dukerupert/tally/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentService is re-exported from domain for handler wiring.
type PaymentService = domain.PaymentService

// PaymentConfig holds reconciliation settings.
type PaymentConfig struct {
	// Currency is the ledger currency. PayPal notifications in another
	// currency are rejected. Empty disables the check.
	Currency string
}

type paymentService struct {
	store     domain.LedgerStore
	publisher events.Publisher
	logger    *slog.Logger
	config    PaymentConfig
	now       func() time.Time
}

// NewPaymentService creates the reconciler for provider notifications.
func NewPaymentService(store domain.LedgerStore, publisher events.Publisher, logger *slog.Logger, config PaymentConfig) PaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &paymentService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// ReconcileStripe applies a verified Stripe payment event.
func (s *paymentService) ReconcileStripe(ctx context.Context, p domain.StripePayment) (*domain.ReconcileResult, error) {
	if p.InvoiceID == uuid.Nil {
		return nil, domain.WithOp(domain.ErrMissingInvoiceReference, opReconcileStripe)
	}
	if p.EventID == "" {
		return nil, domain.Errorf(domain.EINVALID, opReconcileStripe, "Stripe event id is required")
	}

	payment := domain.Payment{
		InvoiceID:     p.InvoiceID,
		Provider:      domain.PaymentProviderStripe,
		TransactionID: p.PaymentIntentID,
		PaidAt:        s.now().UTC(),
	}
	event := &domain.PaymentEvent{
		ID:         uuid.New(),
		Provider:   domain.PaymentProviderStripe,
		EventID:    p.EventID,
		EventType:  p.EventType,
		InvoiceID:  p.InvoiceID,
		ReceivedAt: payment.PaidAt,
	}

	var result *domain.ReconcileResult
	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		inv, err := tx.LockInvoice(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		result, err = applyPayment(ctx, tx, inv, payment, event)
		return err
	})
	if err != nil {
		return nil, domain.WithOp(err, opReconcileStripe)
	}

	s.settled(ctx, domain.PaymentProviderStripe, result)
	return result, nil
}

// ReconcilePayPal applies an IPN notification. PayPal IPN carries no
// signature, so the receiver address and gross amount must both match
// the invoice before anything is written.
func (s *paymentService) ReconcilePayPal(ctx context.Context, n domain.PayPalNotification) (*domain.ReconcileResult, error) {
	if n.PaymentStatus != domain.PayPalStatusCompleted {
		s.outcome(domain.PaymentProviderPayPal, domain.ReconcileIgnored)
		return &domain.ReconcileResult{Outcome: domain.ReconcileIgnored}, nil
	}
	if n.InvoiceID == uuid.Nil {
		return nil, domain.WithOp(domain.ErrMissingInvoiceReference, opReconcilePayPal)
	}
	if n.TxnID == "" {
		return nil, domain.Errorf(domain.EINVALID, opReconcilePayPal, "PayPal txn_id is required")
	}

	payment := domain.Payment{
		InvoiceID:     n.InvoiceID,
		Provider:      domain.PaymentProviderPayPal,
		TransactionID: n.TxnID,
		PaidAt:        s.now().UTC(),
	}
	event := &domain.PaymentEvent{
		ID:         uuid.New(),
		Provider:   domain.PaymentProviderPayPal,
		EventID:    n.TxnID,
		EventType:  "ipn." + strings.ToLower(n.PaymentStatus),
		InvoiceID:  n.InvoiceID,
		ReceivedAt: payment.PaidAt,
	}

	var result *domain.ReconcileResult
	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		inv, err := tx.LockInvoice(ctx, n.InvoiceID)
		if err != nil {
			return err
		}

		if !inv.IsPaid() {
			owner, err := tx.GetUser(ctx, inv.UserID)
			if err != nil {
				return err
			}
			if err := s.verifyPayPal(n, owner, inv); err != nil {
				return err
			}
		}

		result, err = applyPayment(ctx, tx, inv, payment, event)
		return err
	})
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			s.logger.WarnContext(ctx, "paypal notification rejected",
				"invoice_id", n.InvoiceID,
				"txn_id", n.TxnID,
				"reason", reason,
				"receiver_email", n.ReceiverEmail,
				"gross", n.Gross,
			)
			if telemetry.Business != nil {
				telemetry.Business.ReconcileRejected.WithLabelValues(string(domain.PaymentProviderPayPal), reason).Inc()
			}
		}
		return nil, domain.WithOp(err, opReconcilePayPal)
	}

	s.settled(ctx, domain.PaymentProviderPayPal, result)
	return result, nil
}

func (s *paymentService) verifyPayPal(n domain.PayPalNotification, owner *domain.User, inv *domain.Invoice) error {
	if !owner.HasPayPal() {
		return domain.ErrPayPalNotConfigured
	}
	if !strings.EqualFold(strings.TrimSpace(n.ReceiverEmail), strings.TrimSpace(owner.PayPalEmail)) {
		return domain.ErrPayPalReceiverMismatch
	}

	gross, err := decimal.NewFromString(strings.TrimSpace(n.Gross))
	if err != nil || gross.StringFixed(2) != inv.Total.StringFixed(2) {
		return domain.ErrPayPalAmountMismatch
	}

	if n.Currency != "" && s.config.Currency != "" && !strings.EqualFold(n.Currency, s.config.Currency) {
		return domain.ErrPayPalCurrencyMismatch
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPayPalReceiverMismatch):
		return "receiver_mismatch"
	case errors.Is(err, domain.ErrPayPalAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, domain.ErrPayPalCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, domain.ErrPayPalNotConfigured):
		return "not_configured"
	}
	return ""
}

// settled records metrics and publishes invoice.paid once the
// transaction has committed.
func (s *paymentService) settled(ctx context.Context, provider domain.PaymentProvider, result *domain.ReconcileResult) {
	s.outcome(provider, result.Outcome)
	publishPaid(ctx, s.publisher, s.logger, result)
}

func (s *paymentService) outcome(provider domain.PaymentProvider, outcome domain.ReconcileOutcome) {
	if telemetry.Business != nil {
		telemetry.Business.ReconcileOutcomes.WithLabelValues(string(provider), string(outcome)).Inc()
	}
}

// applyPayment settles a locked invoice. It records the provider event
// first so a replay is recognised even after the invoice is paid, then
// flips the invoice with a conditional update and cascades to every
// charge it was built from. A nil event skips deduplication.
func applyPayment(ctx context.Context, tx domain.LedgerTx, inv *domain.Invoice, payment domain.Payment, event *domain.PaymentEvent) (*domain.ReconcileResult, error) {
	if event != nil {
		fresh, err := tx.InsertPaymentEvent(ctx, event)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return &domain.ReconcileResult{Outcome: domain.ReconcileDuplicate, Invoice: inv}, nil
		}
	}

	if inv.IsPaid() {
		return &domain.ReconcileResult{Outcome: domain.ReconcileAlreadyPaid, Invoice: inv}, nil
	}

	changed, err := tx.MarkInvoicePaid(ctx, payment)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &domain.ReconcileResult{Outcome: domain.ReconcileAlreadyPaid, Invoice: inv}, nil
	}

	cascaded, err := tx.MarkInvoiceChargesPaid(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	paid := *inv
	paid.Status = domain.InvoiceStatusPaid
	paid.PaidAt = &payment.PaidAt
	provider := payment.Provider
	paid.PaymentProvider = &provider
	if payment.TransactionID != "" {
		txn := payment.TransactionID
		paid.PaymentTransactionID = &txn
	}

	return &domain.ReconcileResult{
		Outcome:         domain.ReconcileApplied,
		Invoice:         &paid,
		CascadedCharges: cascaded,
	}, nil
}

// publishPaid emits invoice.paid and revenue metrics for an applied
// payment. Other outcomes change nothing and emit nothing.
func publishPaid(ctx context.Context, publisher events.Publisher, logger *slog.Logger, result *domain.ReconcileResult) {
	if result == nil || result.Outcome != domain.ReconcileApplied {
		return
	}
	inv := result.Invoice

	provider := string(domain.PaymentProviderManual)
	if inv.PaymentProvider != nil {
		provider = string(*inv.PaymentProvider)
	}
	if telemetry.Business != nil {
		telemetry.Business.InvoicesPaid.WithLabelValues(provider).Inc()
		telemetry.Business.RevenueCollected.WithLabelValues(provider).Add(telemetry.Cents(inv.Total))
	}

	logger.InfoContext(ctx, "invoice paid",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"provider", provider,
		"cascaded_charges", result.CascadedCharges,
	)

	if err := publisher.Publish(ctx, events.NewInvoiceEvent(events.SubjectInvoicePaid, inv)); err != nil {
		logger.WarnContext(ctx, "failed to publish invoice event",
			"subject", events.SubjectInvoicePaid,
			"invoice_id", inv.ID,
			"error", err,
		)
	}
}
