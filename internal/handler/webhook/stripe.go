package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/tally/internal/billing"
	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/handler"
	"github.com/dukerupert/tally/internal/telemetry"
	"github.com/stripe/stripe-go/v82"
)

// maxPayloadBytes caps webhook bodies. Stripe events are well under this.
const maxPayloadBytes = 64 << 10

// StripeHandler receives Stripe webhook events and hands settling ones
// to the payment reconciler.
type StripeHandler struct {
	provider billing.Provider
	payments domain.PaymentService
	logger   *slog.Logger
	config   StripeWebhookConfig
}

// StripeWebhookConfig contains configuration for Stripe webhook handling
type StripeWebhookConfig struct {
	// WebhookSecret is the endpoint signing secret from the Stripe dashboard
	WebhookSecret string
}

// NewStripeHandler creates a new Stripe webhook handler
func NewStripeHandler(provider billing.Provider, payments domain.PaymentService, logger *slog.Logger, config StripeWebhookConfig) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		provider: provider,
		payments: payments,
		logger:   logger,
		config:   config,
	}
}

// HandleWebhook processes POST /webhooks/stripe.
//
// Responses:
//   - 200 {"received":true}: applied, already paid, duplicate or ignored
//   - 400: bad signature, unreadable event, missing invoice_id
//   - 404: invoice_id does not name an invoice
//   - 500: ledger failure; Stripe retries
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
//	stripe trigger checkout.session.completed
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "stripe webhook: error reading payload", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.logger.WarnContext(ctx, "stripe webhook: missing Stripe-Signature header")
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Missing signature"))
		return
	}

	// Verify before parsing anything.
	if err := h.provider.VerifyWebhookSignature(payload, signature, h.config.WebhookSecret); err != nil {
		h.logger.WarnContext(ctx, "stripe webhook: signature verification failed", "error", err)
		failed(string(domain.PaymentProviderStripe), "unknown", "invalid_signature")
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Invalid signature"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.WarnContext(ctx, "stripe webhook: invalid JSON", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Invalid JSON"))
		return
	}

	eventType := string(event.Type)
	provider := string(domain.PaymentProviderStripe)
	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(provider, eventType).Inc()
		defer func() {
			telemetry.Business.WebhookLatency.WithLabelValues(provider, eventType).Observe(time.Since(start).Seconds())
		}()
	}

	logger := h.logger.With("event_id", event.ID, "event_type", eventType)

	payment, ok, err := billing.PaymentFromEvent(event)
	if err != nil {
		logger.WarnContext(ctx, "stripe webhook: unusable event", "error", err)
		failed(provider, eventType, "bad_event")
		if domain.ErrorCode(err) == domain.EINTERNAL {
			err = domain.WrapError(err, domain.EINVALID, "", "Invalid event payload")
		}
		handler.ErrorResponse(w, r, err)
		return
	}
	if !ok {
		logger.DebugContext(ctx, "stripe webhook: event ignored")
		received(w)
		return
	}

	result, err := h.payments.ReconcileStripe(ctx, *payment)
	if err != nil {
		code := domain.ErrorCode(err)
		failed(provider, eventType, code)
		if code == domain.EINTERNAL {
			logger.ErrorContext(ctx, "stripe webhook: reconcile failed", "invoice_id", payment.InvoiceID, "error", err)
			telemetry.CaptureError(ctx, err, map[string]any{
				"event_id":   event.ID,
				"event_type": eventType,
				"invoice_id": payment.InvoiceID.String(),
			})
		} else {
			logger.WarnContext(ctx, "stripe webhook: rejected", "invoice_id", payment.InvoiceID, "error", err)
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	logger.InfoContext(ctx, "stripe webhook: processed",
		"invoice_id", payment.InvoiceID,
		"outcome", result.Outcome,
	)
	if telemetry.Business != nil {
		telemetry.Business.WebhookProcessed.WithLabelValues(provider, eventType).Inc()
	}
	received(w)
}

// received acknowledges a delivery so the provider stops retrying.
func received(w http.ResponseWriter) {
	handler.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func failed(provider, eventType, reason string) {
	if telemetry.Business != nil {
		telemetry.Business.WebhookFailed.WithLabelValues(provider, eventType, reason).Inc()
	}
}
