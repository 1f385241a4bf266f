package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/handler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnpaidAmountHandler serves the charge JSON API.
type UnpaidAmountHandler struct {
	unpaid domain.UnpaidAmountService
	logger *slog.Logger
}

// NewUnpaidAmountHandler creates a new unpaid amount API handler
func NewUnpaidAmountHandler(unpaid domain.UnpaidAmountService, logger *slog.Logger) *UnpaidAmountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnpaidAmountHandler{unpaid: unpaid, logger: logger}
}

type createUnpaidAmountRequest struct {
	ClientID    string `json:"clientId" validate:"required,uuid"`
	ProjectID   string `json:"projectId" validate:"omitempty,uuid"`
	Amount      string `json:"amount" validate:"required,numeric"`
	Description string `json:"description" validate:"required"`
	IssueDate   string `json:"issueDate" validate:"required,datetime=2006-01-02"`
	DueDate     string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// Create handles POST /api/unpaid-amounts.
func (h *UnpaidAmountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := domain.RequireUserID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req createUnpaidAmountRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	issue, err := parseDate(req.IssueDate, "issueDate")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	due, err := parseDate(req.DueDate, "dueDate")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	params := domain.CreateUnpaidAmountParams{
		ClientID:    uuid.MustParse(req.ClientID),
		Amount:      amount,
		Description: strings.TrimSpace(req.Description),
		IssueDate:   *issue,
		DueDate:     due,
	}
	if req.ProjectID != "" {
		id := uuid.MustParse(req.ProjectID)
		params.ProjectID = &id
	}

	ua, err := h.unpaid.Create(r.Context(), userID, params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, newUnpaidAmountResponse(ua))
}

type updateUnpaidAmountRequest struct {
	Amount      *string `json:"amount" validate:"omitempty,numeric"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	DueDate     *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// Update handles PATCH /api/unpaid-amounts/{id}. Only charges that have
// not been invoiced can be edited.
func (h *UnpaidAmountHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var req updateUnpaidAmountRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Amount == nil && req.Description == nil && req.DueDate == nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "No fields to update"))
		return
	}

	var params domain.UpdateUnpaidAmountParams
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		params.Amount = &amount
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		params.Description = &desc
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate, "dueDate")
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		params.DueDate = due
	}

	ua, err := h.unpaid.Update(r.Context(), userID, id, params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newUnpaidAmountResponse(ua))
}

// Delete handles DELETE /api/unpaid-amounts/{id}.
func (h *UnpaidAmountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.unpaid.Delete(r.Context(), userID, id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListForClient handles GET /api/clients/{id}/unpaid-amounts?status=unpaid.
func (h *UnpaidAmountHandler) ListForClient(w http.ResponseWriter, r *http.Request) {
	userID, clientID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var status *domain.UnpaidAmountStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.UnpaidAmountStatus(raw)
		switch s {
		case domain.UnpaidAmountStatusUnpaid, domain.UnpaidAmountStatusInvoiced, domain.UnpaidAmountStatusPaid:
			status = &s
		default:
			handler.ErrorResponse(w, r, domain.NewValidationError("", "status", "must be one of: unpaid invoiced paid"))
			return
		}
	}

	charges, err := h.unpaid.ListForClient(r.Context(), userID, clientID, status)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]unpaidAmountResponse, len(charges))
	for i := range charges {
		out[i] = newUnpaidAmountResponse(&charges[i])
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"unpaidAmounts": out})
}

func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("", "amount", "must be numeric")
	}
	if err := domain.ValidateAmount(d); err != nil {
		return decimal.Zero, domain.NewValidationError("", "amount", domain.ErrorMessage(err))
	}
	return d, nil
}
