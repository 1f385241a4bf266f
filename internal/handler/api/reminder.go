package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/handler"
)

// ReminderHandler serves an invoice's reminder history.
type ReminderHandler struct {
	reminders domain.ReminderService
	logger    *slog.Logger
}

// NewReminderHandler creates a new reminder API handler
func NewReminderHandler(reminders domain.ReminderService, logger *slog.Logger) *ReminderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderHandler{reminders: reminders, logger: logger}
}

type recordReminderRequest struct {
	Type      string `json:"type" validate:"required,oneof=before_due on_due overdue manual"`
	Recipient string `json:"recipient" validate:"required,email"`
	Status    string `json:"status" validate:"required,oneof=sent failed"`
	SentAt    string `json:"sentAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// Record handles POST /api/invoices/{id}/reminders.
func (h *ReminderHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, invoiceID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var req recordReminderRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	params := domain.RecordReminderParams{
		InvoiceID: invoiceID,
		Type:      domain.ReminderType(req.Type),
		Recipient: req.Recipient,
		Status:    domain.ReminderStatus(req.Status),
	}
	if req.SentAt != "" {
		// Already checked by the datetime tag.
		params.SentAt, _ = time.Parse(time.RFC3339, req.SentAt)
	}

	reminder, err := h.reminders.RecordReminder(r.Context(), userID, params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, newReminderResponse(reminder))
}

// List handles GET /api/invoices/{id}/reminders.
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, invoiceID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	reminders, err := h.reminders.ListReminders(r.Context(), userID, invoiceID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]reminderResponse, len(reminders))
	for i := range reminders {
		out[i] = newReminderResponse(&reminders[i])
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"reminders": out})
}
