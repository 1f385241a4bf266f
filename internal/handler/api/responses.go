package api

import (
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money is rendered as a fixed two-decimal string so clients never see
// float rounding.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type invoiceResponse struct {
	ID                   uuid.UUID  `json:"id"`
	ClientID             uuid.UUID  `json:"clientId"`
	ProjectID            *uuid.UUID `json:"projectId,omitempty"`
	Number               string     `json:"number"`
	Status               string     `json:"status"`
	Subtotal             string     `json:"subtotal"`
	TPS                  string     `json:"tps"`
	TVQ                  string     `json:"tvq"`
	Tax                  string     `json:"tax"`
	Total                string     `json:"total"`
	DueDate              *time.Time `json:"dueDate,omitempty"`
	PaymentProvider      *string    `json:"paymentProvider,omitempty"`
	PaymentTransactionID *string    `json:"paymentTransactionId,omitempty"`
	PaidAt               *time.Time `json:"paidAt,omitempty"`
	SentAt               *time.Time `json:"sentAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`

	Items  []invoiceItemResponse `json:"items,omitempty"`
	Client *clientResponse       `json:"client,omitempty"`
}

type invoiceItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	UnpaidAmountID *uuid.UUID `json:"unpaidAmountId,omitempty"`
	Description    string     `json:"description"`
	Amount         string     `json:"amount"`
	Date           time.Time  `json:"date"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
}

type clientResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func newInvoiceResponse(inv *domain.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:                   inv.ID,
		ClientID:             inv.ClientID,
		ProjectID:            inv.ProjectID,
		Number:               inv.Number,
		Status:               string(inv.Status),
		Subtotal:             money(inv.Subtotal),
		TPS:                  money(inv.TPS),
		TVQ:                  money(inv.TVQ),
		Tax:                  money(inv.Tax()),
		Total:                money(inv.Total),
		DueDate:              inv.DueDate,
		PaymentTransactionID: inv.PaymentTransactionID,
		PaidAt:               inv.PaidAt,
		SentAt:               inv.SentAt,
		CreatedAt:            inv.CreatedAt,
	}
	if inv.PaymentProvider != nil {
		p := string(*inv.PaymentProvider)
		resp.PaymentProvider = &p
	}
	return resp
}

func newInvoiceDetailResponse(d *domain.InvoiceDetail) invoiceResponse {
	resp := newInvoiceResponse(&d.Invoice)
	resp.Items = make([]invoiceItemResponse, len(d.Items))
	for i, it := range d.Items {
		resp.Items[i] = invoiceItemResponse{
			ID:             it.ID,
			UnpaidAmountID: it.UnpaidAmountID,
			Description:    it.Description,
			Amount:         money(it.Amount),
			Date:           it.Date,
			DueDate:        it.DueDate,
		}
	}
	resp.Client = &clientResponse{ID: d.Client.ID, Name: d.Client.Name, Email: d.Client.Email}
	return resp
}

type unpaidAmountResponse struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"clientId"`
	ProjectID   *uuid.UUID `json:"projectId,omitempty"`
	Amount      string     `json:"amount"`
	Description string     `json:"description"`
	IssueDate   time.Time  `json:"issueDate"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Status      string     `json:"status"`
	InvoiceID   *uuid.UUID `json:"invoiceId,omitempty"`
}

func newUnpaidAmountResponse(ua *domain.UnpaidAmount) unpaidAmountResponse {
	return unpaidAmountResponse{
		ID:          ua.ID,
		ClientID:    ua.ClientID,
		ProjectID:   ua.ProjectID,
		Amount:      money(ua.Amount),
		Description: ua.Description,
		IssueDate:   ua.IssueDate,
		DueDate:     ua.DueDate,
		Status:      string(ua.Status),
		InvoiceID:   ua.InvoiceID,
	}
}

type reminderResponse struct {
	ID        uuid.UUID `json:"id"`
	InvoiceID uuid.UUID `json:"invoiceId"`
	Type      string    `json:"type"`
	SentAt    time.Time `json:"sentAt"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
}

func newReminderResponse(r *domain.InvoiceReminder) reminderResponse {
	return reminderResponse{
		ID:        r.ID,
		InvoiceID: r.InvoiceID,
		Type:      string(r.Type),
		SentAt:    r.SentAt,
		Recipient: r.Recipient,
		Status:    string(r.Status),
	}
}
