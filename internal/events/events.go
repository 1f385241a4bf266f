// Package events publishes invoice lifecycle events after their
// transaction commits. Delivery is best effort.
package events

import (
	"context"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

// Subjects published by the ledger.
const (
	SubjectInvoiceCreated = "invoice.created"
	SubjectInvoiceSent    = "invoice.sent"
	SubjectInvoicePaid    = "invoice.paid"
)

// InvoiceEvent is the JSON payload of every invoice subject.
type InvoiceEvent struct {
	ID            uuid.UUID `json:"id"`
	Subject       string    `json:"subject"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	UserID        uuid.UUID `json:"user_id"`
	ClientID      uuid.UUID `json:"client_id"`
	Number        string    `json:"number"`
	Status        string    `json:"status"`
	Total         string    `json:"total"`
	Provider      string    `json:"provider,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewInvoiceEvent snapshots inv for subject.
func NewInvoiceEvent(subject string, inv *domain.Invoice) InvoiceEvent {
	ev := InvoiceEvent{
		ID:         uuid.New(),
		Subject:    subject,
		InvoiceID:  inv.ID,
		UserID:     inv.UserID,
		ClientID:   inv.ClientID,
		Number:     inv.Number,
		Status:     string(inv.Status),
		Total:      inv.Total.StringFixed(2),
		OccurredAt: time.Now().UTC(),
	}
	if inv.PaymentProvider != nil {
		ev.Provider = string(*inv.PaymentProvider)
	}
	if inv.PaymentTransactionID != nil {
		ev.TransactionID = *inv.PaymentTransactionID
	}
	return ev
}

// Publisher sends invoice events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event InvoiceEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, InvoiceEvent) error { return nil }
