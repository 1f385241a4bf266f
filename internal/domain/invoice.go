package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)

// CanTransitionTo reports whether moving from s to next is a forward step.
// A draft may be paid directly when the invoice was delivered out of band.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return next == InvoiceStatusSent || next == InvoiceStatusPaid
	case InvoiceStatusSent:
		return next == InvoiceStatusPaid
	default:
		return false
	}
}

// Invoice-related domain errors.
var (
	ErrInvoiceNotFound          = &Error{Code: ENOTFOUND, Message: "Invoice not found"}
	ErrNoBillableItems          = &Error{Code: EINVALID, Message: "No billable items: none of the selected charges are unpaid for this client"}
	ErrInvoiceAlreadyPaid       = &Error{Code: ECONFLICT, Message: "Invoice already paid"}
	ErrInvoiceNumberTaken       = &Error{Code: ECONFLICT, Message: "Invoice number already in use"}
	ErrInvoiceNumberGeneration  = &Error{Code: EINTERNAL, Message: "Failed to generate a unique invoice number"}
	ErrInvoiceChargesChanged    = &Error{Code: ECONFLICT, Message: "Selected charges changed while the invoice was being created"}
	ErrReminderInvalid          = &Error{Code: EINVALID, Message: "Reminder type, recipient and status are required"}
	ErrMissingInvoiceReference  = &Error{Code: EINVALID, Message: "Payment notification does not reference an invoice"}
	ErrProviderNotConfigured    = &Error{Code: EINVALID, Message: "Payment provider is not configured for this account"}
	ErrUnsupportedPaymentMethod = &Error{Code: EINVALID, Message: "Unsupported payment provider"}
)

// Invoice is an immutable snapshot of billed charges for one client.
// Only status and payment fields change after creation.
type Invoice struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ClientID  uuid.UUID
	ProjectID *uuid.UUID
	Number    string
	Status    InvoiceStatus

	// Subtotal + TPS + TVQ == Total. Total is the sum of item amounts.
	Subtotal decimal.Decimal
	TPS      decimal.Decimal
	TVQ      decimal.Decimal
	Total    decimal.Decimal

	DueDate              *time.Time
	PaymentProvider      *PaymentProvider
	PaymentTransactionID *string
	PaidAt               *time.Time
	SentAt               *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Tax returns the combined tax portion of the total.
func (i *Invoice) Tax() decimal.Decimal {
	return i.TPS.Add(i.TVQ)
}

// IsPaid reports whether the invoice has reached its terminal state.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// InvoiceItem is a line copied verbatim from an UnpaidAmount at creation.
// Later edits to the source charge never reach it.
type InvoiceItem struct {
	ID             uuid.UUID
	InvoiceID      uuid.UUID
	UnpaidAmountID *uuid.UUID
	Description    string
	Amount         decimal.Decimal
	Date           time.Time
	DueDate        *time.Time
	Position       int
}

// InvoiceDetail is an invoice with its line items and client.
type InvoiceDetail struct {
	Invoice Invoice
	Items   []InvoiceItem
	Client  Client
}

// CreateInvoiceParams selects the charges to bill.
type CreateInvoiceParams struct {
	ClientID        uuid.UUID
	UnpaidAmountIDs []uuid.UUID
	ProjectID       *uuid.UUID
	DueDate         *time.Time
}

// SendResult reports the outcome of MarkSent. EmailError is set when the
// status moved to sent but delivery failed.
type SendResult struct {
	Invoice    *Invoice
	EmailSent  bool
	EmailError error
}

// InvoiceService builds invoices and drives the draft -> sent -> paid
// state machine for the acting user.
type InvoiceService interface {
	// CreateInvoice snapshots the client's still-unpaid charges into a new
	// draft invoice and flips them to invoiced, atomically.
	CreateInvoice(ctx context.Context, userID uuid.UUID, params CreateInvoiceParams) (*InvoiceDetail, error)

	// GetInvoice returns the invoice with items after an ownership check.
	GetInvoice(ctx context.Context, userID, invoiceID uuid.UUID) (*InvoiceDetail, error)

	// ListClientInvoices returns a client's invoices, newest first.
	ListClientInvoices(ctx context.Context, userID, clientID uuid.UUID) ([]Invoice, error)

	// MarkSent moves a draft to sent and dispatches the invoice email.
	// Email failure is reported in the result, not as an error.
	MarkSent(ctx context.Context, userID, invoiceID uuid.UUID) (*SendResult, error)

	// MarkPaid records a manual payment. Idempotent.
	MarkPaid(ctx context.Context, userID, invoiceID uuid.UUID) (*Invoice, error)
}
