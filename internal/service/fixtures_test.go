package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/email"
	"github.com/dukerupert/tally/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// mockMailer implements InvoiceMailer for testing
type mockMailer struct {
	SendInvoiceFunc func(ctx context.Context, data email.InvoiceEmail) (string, error)

	mu   sync.Mutex
	sent []email.InvoiceEmail
}

func (m *mockMailer) SendInvoice(ctx context.Context, data email.InvoiceEmail) (string, error) {
	m.mu.Lock()
	m.sent = append(m.sent, data)
	m.mu.Unlock()
	if m.SendInvoiceFunc != nil {
		return m.SendInvoiceFunc(ctx, data)
	}
	return "msg-1", nil
}

// ledgerFixture is one account with one client and a store to act on.
type ledgerFixture struct {
	store  *memStore
	user   domain.User
	client domain.Client
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := newMemStore()
	user := store.addUser(domain.User{
		Email:         "marie@example.com",
		Name:          "Marie Tremblay",
		StripeEnabled: true,
		PayPalEmail:   "Pay@Marie.example",
		TPSRate:       money("0.05"),
		TVQRate:       money("0.09975"),
	})
	client := store.addClient(user.ID, "acme")
	return &ledgerFixture{store: store, user: user, client: client}
}

func (f *ledgerFixture) charge(amount string) domain.UnpaidAmount {
	return f.store.addCharge(domain.UnpaidAmount{
		ClientID:    f.client.ID,
		Amount:      money(amount),
		Description: "Work " + amount,
	})
}

func (f *ledgerFixture) invoiceService(mailer InvoiceMailer, publisher events.Publisher) *invoiceService {
	svc := NewInvoiceService(f.store, mailer, publisher, testLogger(), InvoiceConfig{}).(*invoiceService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func (f *ledgerFixture) paymentService(publisher events.Publisher) *paymentService {
	svc := NewPaymentService(f.store, publisher, testLogger(), PaymentConfig{Currency: "CAD"}).(*paymentService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// invoiceFor creates a draft invoice over the given charges.
func (f *ledgerFixture) invoiceFor(t *testing.T, charges ...domain.UnpaidAmount) domain.Invoice {
	t.Helper()
	ids := make([]uuid.UUID, len(charges))
	for i, c := range charges {
		ids[i] = c.ID
	}
	detail, err := f.invoiceService(nil, nil).CreateInvoice(context.Background(), f.user.ID, domain.CreateInvoiceParams{
		ClientID:        f.client.ID,
		UnpaidAmountIDs: ids,
	})
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	return detail.Invoice
}
