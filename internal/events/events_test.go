package events

import (
	"context"
	"testing"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewInvoiceEvent(t *testing.T) {
	provider := domain.PaymentProviderPayPal
	txn := "9XK12345"
	inv := &domain.Invoice{
		ID:                   uuid.New(),
		UserID:               uuid.New(),
		ClientID:             uuid.New(),
		Number:               "INV-20260301-0001",
		Status:               domain.InvoiceStatusPaid,
		Total:                decimal.RequireFromString("42.5"),
		PaymentProvider:      &provider,
		PaymentTransactionID: &txn,
	}

	ev := NewInvoiceEvent(SubjectInvoicePaid, inv)

	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, SubjectInvoicePaid, ev.Subject)
	assert.Equal(t, inv.ID, ev.InvoiceID)
	assert.Equal(t, "paid", ev.Status)
	assert.Equal(t, "42.50", ev.Total)
	assert.Equal(t, "paypal", ev.Provider)
	assert.Equal(t, "9XK12345", ev.TransactionID)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestNewInvoiceEvent_Unpaid(t *testing.T) {
	ev := NewInvoiceEvent(SubjectInvoiceSent, &domain.Invoice{Status: domain.InvoiceStatusSent})
	assert.Empty(t, ev.Provider)
	assert.Empty(t, ev.TransactionID)
}

func TestMockPublisher(t *testing.T) {
	m := &MockPublisher{}
	_ = m.Publish(context.Background(), InvoiceEvent{Subject: SubjectInvoiceSent})
	_ = m.Publish(context.Background(), InvoiceEvent{Subject: SubjectInvoicePaid})

	assert.Equal(t, []string{SubjectInvoiceSent, SubjectInvoicePaid}, m.Subjects())
	assert.Len(t, m.Events(), 2)
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), InvoiceEvent{}))
}
