package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

// ReminderService is re-exported from domain for handler wiring.
type ReminderService = domain.ReminderService

type reminderService struct {
	store  domain.LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

// NewReminderService creates a new ReminderService instance.
func NewReminderService(store domain.LedgerStore, logger *slog.Logger) ReminderService {
	return &reminderService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RecordReminder appends a history row. Invoice status is never touched.
func (s *reminderService) RecordReminder(ctx context.Context, userID uuid.UUID, params domain.RecordReminderParams) (*domain.InvoiceReminder, error) {
	if !validReminderType(params.Type) || !validReminderStatus(params.Status) || strings.TrimSpace(params.Recipient) == "" {
		return nil, domain.WithOp(domain.ErrReminderInvalid, opRecordReminder)
	}

	sentAt := params.SentAt
	if sentAt.IsZero() {
		sentAt = s.now()
	}
	reminder := &domain.InvoiceReminder{
		ID:        uuid.New(),
		InvoiceID: params.InvoiceID,
		Type:      params.Type,
		SentAt:    sentAt.UTC(),
		Recipient: strings.TrimSpace(params.Recipient),
		Status:    params.Status,
	}

	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := ownedInvoice(ctx, tx, userID, params.InvoiceID); err != nil {
			return err
		}
		return tx.InsertReminder(ctx, reminder)
	})
	if err != nil {
		return nil, domain.WithOp(err, opRecordReminder)
	}

	s.logger.InfoContext(ctx, "reminder recorded",
		"invoice_id", reminder.InvoiceID,
		"type", reminder.Type,
		"status", reminder.Status,
	)
	return reminder, nil
}

// ListReminders returns the invoice's reminder history, oldest first.
func (s *reminderService) ListReminders(ctx context.Context, userID, invoiceID uuid.UUID) ([]domain.InvoiceReminder, error) {
	if _, err := ownedInvoice(ctx, s.store, userID, invoiceID); err != nil {
		return nil, domain.WithOp(err, opListReminders)
	}
	reminders, err := s.store.ListReminders(ctx, invoiceID)
	if err != nil {
		return nil, domain.WithOp(err, opListReminders)
	}
	return reminders, nil
}

func validReminderType(t domain.ReminderType) bool {
	switch t {
	case domain.ReminderTypeBeforeDue, domain.ReminderTypeOnDue, domain.ReminderTypeOverdue, domain.ReminderTypeManual:
		return true
	}
	return false
}

func validReminderStatus(s domain.ReminderStatus) bool {
	return s == domain.ReminderStatusSent || s == domain.ReminderStatusFailed
}
