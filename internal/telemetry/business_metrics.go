package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// BusinessMetrics holds Prometheus metrics for the invoice ledger.
type BusinessMetrics struct {
	InvoicesCreated *prometheus.CounterVec
	InvoiceValue    *prometheus.HistogramVec
	InvoicesSent    *prometheus.CounterVec
	InvoicesPaid    *prometheus.CounterVec

	// Stripe and PayPal ingress, labelled by provider and event type.
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	ReconcileOutcomes *prometheus.CounterVec
	ReconcileRejected *prometheus.CounterVec

	// RevenueCollected is kept in cents per provider.
	RevenueCollected *prometheus.CounterVec

	EmailSent   *prometheus.CounterVec
	EmailFailed *prometheus.CounterVec

	StripeAPILatency *prometheus.HistogramVec
}

var (
	invoiceValueBuckets = []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000, 1000000}
	webhookBuckets      = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	stripeAPIBuckets    = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30}
)

// NewBusinessMetrics creates all business metrics under
// {namespace}_business_ and registers them with reg. A nil reg uses the
// default registry.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "tally"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "business",
			Name:      name,
			Help:      help,
		}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "business",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	}

	return &BusinessMetrics{
		InvoicesCreated: counter("invoices_created_total", "Invoices built from unpaid amounts", "user_id"),
		InvoiceValue:    histogram("invoice_value_cents", "Invoice totals at creation", invoiceValueBuckets, "user_id"),
		InvoicesSent:    counter("invoices_sent_total", "Invoices moved from draft to sent", "user_id"),
		InvoicesPaid:    counter("invoices_paid_total", "Invoices moved to paid", "provider"),

		WebhookReceived:  counter("webhook_received_total", "Payment notifications received", "provider", "event_type"),
		WebhookProcessed: counter("webhook_processed_total", "Payment notifications acknowledged", "provider", "event_type"),
		WebhookFailed:    counter("webhook_failed_total", "Payment notifications that failed", "provider", "event_type", "error_type"),
		WebhookLatency:   histogram("webhook_processing_seconds", "Payment notification handling time", webhookBuckets, "provider", "event_type"),

		ReconcileOutcomes: counter("reconcile_outcomes_total", "Payment notifications by outcome", "provider", "outcome"),
		ReconcileRejected: counter("reconcile_rejected_total", "Payment notifications rejected before any state change", "provider", "reason"),

		RevenueCollected: counter("revenue_collected_cents", "Revenue collected in cents", "provider"),

		EmailSent:   counter("emails_sent_total", "Emails handed to the sender", "email_type"),
		EmailFailed: counter("emails_failed_total", "Emails the sender rejected", "email_type"),

		StripeAPILatency: histogram("stripe_api_duration_seconds", "Stripe API call duration", stripeAPIBuckets, "operation"),
	}
}

// Business is set by InitBusinessMetrics. Callers check for nil so tests
// can run without registering metrics.
var Business *BusinessMetrics

// InitBusinessMetrics registers the business metrics on the default
// registry and stores them in Business.
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace, nil)
	return Business
}

// Cents converts a money amount to the unit revenue metrics are kept in.
func Cents(amount decimal.Decimal) float64 {
	return amount.Shift(2).Round(0).InexactFloat64()
}
