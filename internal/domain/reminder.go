package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ReminderType string

const (
	ReminderTypeBeforeDue ReminderType = "before_due"
	ReminderTypeOnDue     ReminderType = "on_due"
	ReminderTypeOverdue   ReminderType = "overdue"
	ReminderTypeManual    ReminderType = "manual"
)

type ReminderStatus string

const (
	ReminderStatusSent   ReminderStatus = "sent"
	ReminderStatusFailed ReminderStatus = "failed"
)

// InvoiceReminder is one entry in an invoice's reminder history.
// Rows are only ever appended.
type InvoiceReminder struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Type      ReminderType
	SentAt    time.Time
	Recipient string
	Status    ReminderStatus
}

// RecordReminderParams describes a reminder that was attempted.
// SentAt defaults to now when zero.
type RecordReminderParams struct {
	InvoiceID uuid.UUID
	Type      ReminderType
	Recipient string
	Status    ReminderStatus
	SentAt    time.Time
}

// ReminderService records and lists reminder history. It never changes
// invoice status.
type ReminderService interface {
	RecordReminder(ctx context.Context, userID uuid.UUID, params RecordReminderParams) (*InvoiceReminder, error)

	// ListReminders returns the history ordered by SentAt ascending.
	ListReminders(ctx context.Context, userID, invoiceID uuid.UUID) ([]InvoiceReminder, error)
}
