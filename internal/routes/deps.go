package routes

import (
	"net/http"

	"github.com/dukerupert/tally/internal/handler/api"
	"github.com/dukerupert/tally/internal/handler/webhook"
	"github.com/dukerupert/tally/internal/router"
)

// APIDeps contains dependencies for the authenticated JSON API
type APIDeps struct {
	InvoiceHandler      *api.InvoiceHandler
	UnpaidAmountHandler *api.UnpaidAmountHandler
	ReminderHandler     *api.ReminderHandler

	// Middleware applied to every API route, in order (auth, rate limit).
	Middleware []router.Middleware
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler *webhook.StripeHandler
	PayPalHandler *webhook.PayPalHandler

	Middleware []router.Middleware
}

// OpsDeps contains the operational endpoints.
type OpsDeps struct {
	Health  http.Handler
	Metrics http.Handler
}
