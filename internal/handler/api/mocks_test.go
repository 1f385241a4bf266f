package api

import (
	"context"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

type mockInvoiceService struct {
	CreateInvoiceFunc      func(ctx context.Context, userID uuid.UUID, params domain.CreateInvoiceParams) (*domain.InvoiceDetail, error)
	GetInvoiceFunc         func(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.InvoiceDetail, error)
	ListClientInvoicesFunc func(ctx context.Context, userID, clientID uuid.UUID) ([]domain.Invoice, error)
	MarkSentFunc           func(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.SendResult, error)
	MarkPaidFunc           func(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.Invoice, error)
}

func (m *mockInvoiceService) CreateInvoice(ctx context.Context, userID uuid.UUID, params domain.CreateInvoiceParams) (*domain.InvoiceDetail, error) {
	return m.CreateInvoiceFunc(ctx, userID, params)
}

func (m *mockInvoiceService) GetInvoice(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.InvoiceDetail, error) {
	return m.GetInvoiceFunc(ctx, userID, invoiceID)
}

func (m *mockInvoiceService) ListClientInvoices(ctx context.Context, userID, clientID uuid.UUID) ([]domain.Invoice, error) {
	return m.ListClientInvoicesFunc(ctx, userID, clientID)
}

func (m *mockInvoiceService) MarkSent(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.SendResult, error) {
	return m.MarkSentFunc(ctx, userID, invoiceID)
}

func (m *mockInvoiceService) MarkPaid(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	return m.MarkPaidFunc(ctx, userID, invoiceID)
}

type mockCheckoutService struct {
	CreatePaymentLinkFunc func(ctx context.Context, userID, invoiceID uuid.UUID, provider domain.PaymentProvider) (*domain.PaymentLink, error)
}

func (m *mockCheckoutService) CreatePaymentLink(ctx context.Context, userID, invoiceID uuid.UUID, provider domain.PaymentProvider) (*domain.PaymentLink, error) {
	return m.CreatePaymentLinkFunc(ctx, userID, invoiceID, provider)
}

type mockUnpaidAmountService struct {
	CreateFunc        func(ctx context.Context, userID uuid.UUID, params domain.CreateUnpaidAmountParams) (*domain.UnpaidAmount, error)
	UpdateFunc        func(ctx context.Context, userID, id uuid.UUID, params domain.UpdateUnpaidAmountParams) (*domain.UnpaidAmount, error)
	DeleteFunc        func(ctx context.Context, userID, id uuid.UUID) error
	ListForClientFunc func(ctx context.Context, userID, clientID uuid.UUID, status *domain.UnpaidAmountStatus) ([]domain.UnpaidAmount, error)
}

func (m *mockUnpaidAmountService) Create(ctx context.Context, userID uuid.UUID, params domain.CreateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
	return m.CreateFunc(ctx, userID, params)
}

func (m *mockUnpaidAmountService) Update(ctx context.Context, userID, id uuid.UUID, params domain.UpdateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
	return m.UpdateFunc(ctx, userID, id, params)
}

func (m *mockUnpaidAmountService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.DeleteFunc(ctx, userID, id)
}

func (m *mockUnpaidAmountService) ListForClient(ctx context.Context, userID, clientID uuid.UUID, status *domain.UnpaidAmountStatus) ([]domain.UnpaidAmount, error) {
	return m.ListForClientFunc(ctx, userID, clientID, status)
}

type mockReminderService struct {
	RecordReminderFunc func(ctx context.Context, userID uuid.UUID, params domain.RecordReminderParams) (*domain.InvoiceReminder, error)
	ListRemindersFunc  func(ctx context.Context, userID, invoiceID uuid.UUID) ([]domain.InvoiceReminder, error)
}

func (m *mockReminderService) RecordReminder(ctx context.Context, userID uuid.UUID, params domain.RecordReminderParams) (*domain.InvoiceReminder, error) {
	return m.RecordReminderFunc(ctx, userID, params)
}

func (m *mockReminderService) ListReminders(ctx context.Context, userID, invoiceID uuid.UUID) ([]domain.InvoiceReminder, error) {
	return m.ListRemindersFunc(ctx, userID, invoiceID)
}
