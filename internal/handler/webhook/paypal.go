package webhook

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/handler"
	"github.com/dukerupert/tally/internal/telemetry"
	"github.com/google/uuid"
)

// payPalIPN is the subset of IPN variables reconciliation reads.
type payPalIPN struct {
	PaymentStatus string `form:"payment_status" validate:"required"`
	TxnID         string `form:"txn_id" validate:"required"`
	ReceiverEmail string `form:"receiver_email" validate:"required,email"`
	Gross         string `form:"mc_gross" validate:"required,numeric"`
	Currency      string `form:"mc_currency" validate:"omitempty,len=3"`

	// Custom carries the invoice id. Invoice is the fallback.
	Custom  string `form:"custom"`
	Invoice string `form:"invoice"`
}

// PayPalHandler receives PayPal IPN notifications. IPN is unsigned, so
// the reconciler checks receiver and amount against the ledger.
type PayPalHandler struct {
	payments domain.PaymentService
	logger   *slog.Logger
}

// NewPayPalHandler creates a new PayPal IPN handler
func NewPayPalHandler(payments domain.PaymentService, logger *slog.Logger) *PayPalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayPalHandler{payments: payments, logger: logger}
}

// HandleIPN processes POST /webhooks/paypal (form encoded).
//
// Responses:
//   - 200: applied, already paid, duplicate, or a status other than Completed
//   - 400: malformed message, missing invoice id, receiver/amount mismatch
//   - 404: unknown invoice
//   - 500: ledger failure
func (h *PayPalHandler) HandleIPN(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	provider := string(domain.PaymentProviderPayPal)

	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "paypal ipn: unreadable form", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Malformed IPN message"))
		return
	}

	ipn := payPalIPN{
		PaymentStatus: strings.TrimSpace(r.PostForm.Get("payment_status")),
		TxnID:         strings.TrimSpace(r.PostForm.Get("txn_id")),
		ReceiverEmail: strings.TrimSpace(r.PostForm.Get("receiver_email")),
		Gross:         strings.TrimSpace(r.PostForm.Get("mc_gross")),
		Currency:      strings.TrimSpace(r.PostForm.Get("mc_currency")),
		Custom:        strings.TrimSpace(r.PostForm.Get("custom")),
		Invoice:       strings.TrimSpace(r.PostForm.Get("invoice")),
	}

	eventType := "ipn." + strings.ToLower(ipn.PaymentStatus)
	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(provider, eventType).Inc()
		defer func() {
			telemetry.Business.WebhookLatency.WithLabelValues(provider, eventType).Observe(time.Since(start).Seconds())
		}()
	}

	logger := h.logger.With("txn_id", ipn.TxnID, "payment_status", ipn.PaymentStatus)

	// Pending, Refunded and friends are acknowledged without validation so
	// PayPal stops redelivering them.
	if ipn.PaymentStatus != "" && ipn.PaymentStatus != domain.PayPalStatusCompleted {
		logger.InfoContext(ctx, "paypal ipn: status ignored")
		if _, err := h.payments.ReconcilePayPal(ctx, domain.PayPalNotification{PaymentStatus: ipn.PaymentStatus}); err != nil {
			logger.WarnContext(ctx, "paypal ipn: ignore failed", "error", err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := handler.Validate(ipn); err != nil {
		logger.WarnContext(ctx, "paypal ipn: invalid message", "error", err)
		failed(provider, eventType, "invalid_message")
		handler.ErrorResponse(w, r, err)
		return
	}

	ref := ipn.Custom
	if ref == "" {
		ref = ipn.Invoice
	}
	invoiceID, err := uuid.Parse(ref)
	if err != nil {
		logger.WarnContext(ctx, "paypal ipn: no invoice reference", "custom", ipn.Custom, "invoice", ipn.Invoice)
		failed(provider, eventType, "missing_reference")
		handler.ErrorResponse(w, r, domain.ErrMissingInvoiceReference)
		return
	}

	result, err := h.payments.ReconcilePayPal(ctx, domain.PayPalNotification{
		TxnID:         ipn.TxnID,
		InvoiceID:     invoiceID,
		PaymentStatus: ipn.PaymentStatus,
		ReceiverEmail: ipn.ReceiverEmail,
		Gross:         ipn.Gross,
		Currency:      ipn.Currency,
	})
	if err != nil {
		code := domain.ErrorCode(err)
		failed(provider, eventType, code)
		if code == domain.EINTERNAL {
			logger.ErrorContext(ctx, "paypal ipn: reconcile failed", "invoice_id", invoiceID, "error", err)
			telemetry.CaptureError(ctx, err, map[string]any{
				"txn_id":     ipn.TxnID,
				"invoice_id": invoiceID.String(),
			})
		} else {
			logger.WarnContext(ctx, "paypal ipn: rejected", "invoice_id", invoiceID, "error", err)
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	logger.InfoContext(ctx, "paypal ipn: processed", "invoice_id", invoiceID, "outcome", result.Outcome)
	if telemetry.Business != nil {
		telemetry.Business.WebhookProcessed.WithLabelValues(provider, eventType).Inc()
	}
	w.WriteHeader(http.StatusOK)
}
