package routes

import (
	"github.com/dukerupert/tally/internal/router"
)

// RegisterAPIRoutes registers the JSON API. Every route requires an
// authenticated user.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	g := r.Group(deps.Middleware...)

	// Invoices
	g.Post("/api/invoices", deps.InvoiceHandler.Create)
	g.Get("/api/invoices/{id}", deps.InvoiceHandler.Get)
	g.Post("/api/invoices/{id}/send", deps.InvoiceHandler.Send)
	g.Post("/api/invoices/{id}/mark-paid", deps.InvoiceHandler.MarkPaid)
	g.Post("/api/invoices/{id}/checkout", deps.InvoiceHandler.Checkout)
	g.Get("/api/clients/{id}/invoices", deps.InvoiceHandler.ListForClient)

	// Reminder history
	g.Get("/api/invoices/{id}/reminders", deps.ReminderHandler.List)
	g.Post("/api/invoices/{id}/reminders", deps.ReminderHandler.Record)

	// Charges
	g.Post("/api/unpaid-amounts", deps.UnpaidAmountHandler.Create)
	g.Patch("/api/unpaid-amounts/{id}", deps.UnpaidAmountHandler.Update)
	g.Delete("/api/unpaid-amounts/{id}", deps.UnpaidAmountHandler.Delete)
	g.Get("/api/clients/{id}/unpaid-amounts", deps.UnpaidAmountHandler.ListForClient)
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Handle("", "/healthz", deps.Health)
	if deps.Metrics != nil {
		r.Handle("", "/metrics", deps.Metrics)
	}
}
