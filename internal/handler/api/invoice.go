package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/handler"
	"github.com/google/uuid"
)

// dateLayout is the wire format for calendar dates.
const dateLayout = "2006-01-02"

// InvoiceHandler serves the invoice JSON API for the authenticated user.
type InvoiceHandler struct {
	invoices domain.InvoiceService
	checkout domain.CheckoutService
	logger   *slog.Logger
}

// NewInvoiceHandler creates a new invoice API handler
func NewInvoiceHandler(invoices domain.InvoiceService, checkout domain.CheckoutService, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{
		invoices: invoices,
		checkout: checkout,
		logger:   logger,
	}
}

type createInvoiceRequest struct {
	ClientID        string   `json:"clientId" validate:"required,uuid"`
	UnpaidAmountIDs []string `json:"unpaidAmountIds" validate:"required,min=1,dive,uuid"`
	ProjectID       string   `json:"projectId" validate:"omitempty,uuid"`
	DueDate         string   `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// Create handles POST /api/invoices.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := domain.RequireUserID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req createInvoiceRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	params := domain.CreateInvoiceParams{
		ClientID: uuid.MustParse(req.ClientID),
	}
	params.UnpaidAmountIDs, err = handler.ParseUUIDs(req.UnpaidAmountIDs)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.ProjectID != "" {
		id := uuid.MustParse(req.ProjectID)
		params.ProjectID = &id
	}
	params.DueDate, err = parseDate(req.DueDate, "dueDate")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	detail, err := h.invoices.CreateInvoice(r.Context(), userID, params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, newInvoiceDetailResponse(detail))
}

// Get handles GET /api/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, invoiceID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.invoices.GetInvoice(r.Context(), userID, invoiceID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newInvoiceDetailResponse(detail))
}

// ListForClient handles GET /api/clients/{id}/invoices.
func (h *InvoiceHandler) ListForClient(w http.ResponseWriter, r *http.Request) {
	userID, clientID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	invoices, err := h.invoices.ListClientInvoices(r.Context(), userID, clientID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]invoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = newInvoiceResponse(&invoices[i])
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"invoices": out})
}

type sendInvoiceResponse struct {
	OK         bool            `json:"ok"`
	Invoice    invoiceResponse `json:"invoice"`
	EmailSent  bool            `json:"emailSent"`
	EmailError string          `json:"emailError,omitempty"`
}

// Send handles POST /api/invoices/{id}/send. A delivery failure still
// returns 200 with emailSent=false; the invoice stays sent.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, invoiceID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.invoices.MarkSent(r.Context(), userID, invoiceID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	resp := sendInvoiceResponse{
		OK:        true,
		Invoice:   newInvoiceResponse(result.Invoice),
		EmailSent: result.EmailSent,
	}
	if result.EmailError != nil {
		resp.EmailError = result.EmailError.Error()
	}
	handler.WriteJSON(w, http.StatusOK, resp)
}

// MarkPaid handles POST /api/invoices/{id}/mark-paid.
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, invoiceID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.MarkPaid(r.Context(), userID, invoiceID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

type checkoutRequest struct {
	Provider string `json:"provider" validate:"required,oneof=stripe paypal"`
}

type checkoutResponse struct {
	Provider  string `json:"provider"`
	URL       string `json:"url"`
	SessionID string `json:"sessionId,omitempty"`
}

// Checkout handles POST /api/invoices/{id}/checkout.
func (h *InvoiceHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, invoiceID, ok := userAndPathID(w, r, "id")
	if !ok {
		return
	}

	var req checkoutRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	link, err := h.checkout.CreatePaymentLink(r.Context(), userID, invoiceID, domain.PaymentProvider(req.Provider))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, checkoutResponse{
		Provider:  string(link.Provider),
		URL:       link.URL,
		SessionID: link.SessionID,
	})
}

// userAndPathID resolves the acting user and a path id, writing the error
// response itself when either is missing.
func userAndPathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, uuid.UUID, bool) {
	userID, err := domain.RequireUserID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := handler.PathUUID(r, name)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func parseDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, domain.NewValidationError("", field, "must be a date (YYYY-MM-DD)")
	}
	return &t, nil
}
