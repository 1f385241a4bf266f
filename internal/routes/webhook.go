package routes

import (
	"github.com/dukerupert/tally/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
//
// The Stripe route is only registered when Stripe is configured.
//
// Webhook routes do NOT have authentication middleware. The Stripe
// handler verifies the request signature; PayPal IPN is unsigned and is
// checked against the ledger by the reconciler.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	g := r.Group(deps.Middleware...)
	if deps.StripeHandler != nil {
		g.Post("/webhooks/stripe", deps.StripeHandler.HandleWebhook)
	}
	g.Post("/webhooks/paypal", deps.PayPalHandler.HandleIPN)
}
