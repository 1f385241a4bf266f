package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LedgerReader is the read side of the ledger. Lookups of a missing row
// return the matching Err*NotFound sentinel.
type LedgerReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)

	// GetInvoice populates Invoice.UserID from the owning client.
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error)
	ListInvoicesByClient(ctx context.Context, clientID uuid.UUID) ([]Invoice, error)

	GetUnpaidAmount(ctx context.Context, id uuid.UUID) (*UnpaidAmount, error)
	ListUnpaidAmounts(ctx context.Context, clientID uuid.UUID, status *UnpaidAmountStatus) ([]UnpaidAmount, error)

	ListReminders(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceReminder, error)
}

// LedgerTx is a unit of work. Every invoice status change and its charge
// cascade go through one LedgerTx.
type LedgerTx interface {
	LedgerReader

	// LockInvoice reads the invoice and holds a row lock until commit.
	LockInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// LockBillableUnpaidAmounts row-locks and returns the subset of ids that
	// belong to clientID and are still unpaid, ordered by issue date.
	LockBillableUnpaidAmounts(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) ([]UnpaidAmount, error)

	// InsertInvoice returns ErrInvoiceNumberTaken on a number collision and
	// leaves the transaction usable so the caller can retry.
	InsertInvoice(ctx context.Context, invoice *Invoice) error
	InsertInvoiceItems(ctx context.Context, items []InvoiceItem) error

	// MarkUnpaidAmountsInvoiced flips still-unpaid charges and returns the
	// number of rows changed.
	MarkUnpaidAmountsInvoiced(ctx context.Context, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error)

	// MarkInvoiceSent moves a draft to sent. Reports false when the invoice
	// was not a draft.
	MarkInvoiceSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)

	// MarkInvoicePaid sets paid and the payment fields only where the
	// invoice is not already paid. Reports whether a row changed.
	MarkInvoicePaid(ctx context.Context, payment Payment) (bool, error)

	// MarkInvoiceChargesPaid moves every charge of the invoice to paid.
	MarkInvoiceChargesPaid(ctx context.Context, invoiceID uuid.UUID) (int64, error)

	// InsertPaymentEvent reports false when (provider, event id) was
	// already recorded.
	InsertPaymentEvent(ctx context.Context, event *PaymentEvent) (bool, error)

	LockUnpaidAmount(ctx context.Context, id uuid.UUID) (*UnpaidAmount, error)
	InsertUnpaidAmount(ctx context.Context, amount *UnpaidAmount) error
	UpdateUnpaidAmount(ctx context.Context, amount *UnpaidAmount) error

	// DeleteUnpaidAmount removes the charge only while it is unpaid.
	DeleteUnpaidAmount(ctx context.Context, id uuid.UUID) (bool, error)

	InsertReminder(ctx context.Context, reminder *InvoiceReminder) error
}

// LedgerStore is the process-wide handle to the ledger.
type LedgerStore interface {
	LedgerReader

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
}
