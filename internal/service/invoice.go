package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/email"
	"github.com/dukerupert/tally/internal/events"
	"github.com/dukerupert/tally/internal/tax"
	"github.com/dukerupert/tally/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceService is re-exported from domain for handler wiring.
type InvoiceService = domain.InvoiceService

// InvoiceMailer delivers a rendered invoice. Satisfied by *email.Service.
type InvoiceMailer interface {
	SendInvoice(ctx context.Context, data email.InvoiceEmail) (string, error)
}

// InvoiceConfig holds invoice presentation settings.
type InvoiceConfig struct {
	// Currency is shown on invoice emails. Default: CAD
	Currency string
}

type invoiceService struct {
	store     domain.LedgerStore
	mailer    InvoiceMailer
	publisher events.Publisher
	logger    *slog.Logger
	config    InvoiceConfig

	now        func() time.Time
	newNumber  func(now time.Time) string
	calculator func(rates tax.Rates) (tax.Calculator, error)
}

// NewInvoiceService creates a new InvoiceService instance.
func NewInvoiceService(
	store domain.LedgerStore,
	mailer InvoiceMailer,
	publisher events.Publisher,
	logger *slog.Logger,
	config InvoiceConfig,
) InvoiceService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if config.Currency == "" {
		config.Currency = "CAD"
	}
	return &invoiceService{
		store:      store,
		mailer:     mailer,
		publisher:  publisher,
		logger:     logger,
		config:     config,
		now:        time.Now,
		newNumber:  randomInvoiceNumber,
		calculator: tax.ForRates,
	}
}

// randomInvoiceNumber returns INV-{yyyymmdd}-{4 random digits}. Collisions
// are caught by the unique index and retried by the caller.
func randomInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%04d", now.Format("20060102"), rand.IntN(10000))
}

// CreateInvoice snapshots the client's still-unpaid charges into a draft.
func (s *invoiceService) CreateInvoice(ctx context.Context, userID uuid.UUID, params domain.CreateInvoiceParams) (*domain.InvoiceDetail, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	if params.ClientID == uuid.Nil {
		return nil, domain.WithOp(ErrMissingClientID, opCreateInvoice)
	}
	if len(params.UnpaidAmountIDs) == 0 {
		return nil, domain.WithOp(ErrNoUnpaidAmountIDs, opCreateInvoice)
	}

	var detail *domain.InvoiceDetail
	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		client, err := ownedClient(ctx, tx, userID, params.ClientID)
		if err != nil {
			return err
		}

		// Ids that are missing, belong to another client or are no longer
		// unpaid are dropped here.
		charges, err := tx.LockBillableUnpaidAmounts(ctx, client.ID, dedupeIDs(params.UnpaidAmountIDs))
		if err != nil {
			return err
		}
		if len(charges) == 0 {
			return domain.ErrNoBillableItems
		}
		sortByIssueDate(charges)

		owner, err := tx.GetUser(ctx, client.UserID)
		if err != nil {
			return err
		}
		calc, err := s.calculator(tax.Rates{TPS: owner.TPSRate, TVQ: owner.TVQRate})
		if err != nil {
			return domain.WrapError(err, domain.EINVALID, opCreateInvoice, "Account tax rates are invalid")
		}

		total := decimal.Zero
		for _, c := range charges {
			total = total.Add(c.Amount)
		}
		if total.GreaterThanOrEqual(domain.AmountLimit) {
			return domain.WithOp(domain.ErrAmountTooLarge, opCreateInvoice)
		}
		breakdown := calc.Extract(total)

		now := s.now().UTC()
		inv := &domain.Invoice{
			ID:        uuid.New(),
			UserID:    client.UserID,
			ClientID:  client.ID,
			ProjectID: params.ProjectID,
			Status:    domain.InvoiceStatusDraft,
			Subtotal:  breakdown.Subtotal,
			TPS:       breakdown.TPS,
			TVQ:       breakdown.TVQ,
			Total:     total,
			DueDate:   params.DueDate,
		}
		if inv.ProjectID == nil {
			inv.ProjectID = commonProject(charges)
		}
		if err := s.insertWithUniqueNumber(ctx, tx, inv, now); err != nil {
			return err
		}

		items := make([]domain.InvoiceItem, len(charges))
		ids := make([]uuid.UUID, len(charges))
		for i, c := range charges {
			source := c.ID
			items[i] = domain.InvoiceItem{
				ID:             uuid.New(),
				InvoiceID:      inv.ID,
				UnpaidAmountID: &source,
				Description:    c.Description,
				Amount:         c.Amount,
				Date:           c.IssueDate,
				DueDate:        c.DueDate,
				Position:       i + 1,
			}
			ids[i] = c.ID
		}
		if err := tx.InsertInvoiceItems(ctx, items); err != nil {
			return err
		}

		flipped, err := tx.MarkUnpaidAmountsInvoiced(ctx, inv.ID, ids)
		if err != nil {
			return err
		}
		if flipped != int64(len(ids)) {
			return domain.ErrInvoiceChargesChanged
		}

		detail = &domain.InvoiceDetail{Invoice: *inv, Items: items, Client: *client}
		return nil
	})
	if err != nil {
		return nil, domain.WithOp(err, opCreateInvoice)
	}

	if telemetry.Business != nil {
		uid := userID.String()
		telemetry.Business.InvoicesCreated.WithLabelValues(uid).Inc()
		telemetry.Business.InvoiceValue.WithLabelValues(uid).Observe(telemetry.Cents(detail.Invoice.Total))
	}
	s.logger.InfoContext(ctx, "invoice created",
		"invoice_id", detail.Invoice.ID,
		"number", detail.Invoice.Number,
		"client_id", detail.Invoice.ClientID,
		"items", len(detail.Items),
		"total", detail.Invoice.Total.StringFixed(2),
	)
	s.publish(ctx, events.SubjectInvoiceCreated, &detail.Invoice)

	return detail, nil
}

// insertWithUniqueNumber draws numbers until one is free. Each failed
// insert is rolled back to a savepoint by the store.
func (s *invoiceService) insertWithUniqueNumber(ctx context.Context, tx domain.LedgerTx, inv *domain.Invoice, now time.Time) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		inv.Number = s.newNumber(now)
		err := tx.InsertInvoice(ctx, inv)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrInvoiceNumberTaken) {
			return err
		}
		s.logger.DebugContext(ctx, "invoice number collision", "number", inv.Number, "attempt", attempt)
	}
	return domain.ErrInvoiceNumberGeneration
}

// GetInvoice returns an owned invoice with its items and client.
func (s *invoiceService) GetInvoice(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.InvoiceDetail, error) {
	inv, err := ownedInvoice(ctx, s.store, userID, invoiceID)
	if err != nil {
		return nil, domain.WithOp(err, opGetInvoice)
	}

	items, err := s.store.ListInvoiceItems(ctx, inv.ID)
	if err != nil {
		return nil, domain.WithOp(err, opGetInvoice)
	}
	client, err := s.store.GetClient(ctx, inv.ClientID)
	if err != nil {
		return nil, domain.WithOp(err, opGetInvoice)
	}

	return &domain.InvoiceDetail{Invoice: *inv, Items: items, Client: *client}, nil
}

// ListClientInvoices returns the client's invoices, newest first.
func (s *invoiceService) ListClientInvoices(ctx context.Context, userID, clientID uuid.UUID) ([]domain.Invoice, error) {
	if _, err := ownedClient(ctx, s.store, userID, clientID); err != nil {
		return nil, domain.WithOp(err, opListInvoices)
	}
	invoices, err := s.store.ListInvoicesByClient(ctx, clientID)
	if err != nil {
		return nil, domain.WithOp(err, opListInvoices)
	}
	return invoices, nil
}

// MarkSent moves a draft to sent, then emails the client. Delivery
// failure is reported in the result and never undoes the transition.
func (s *invoiceService) MarkSent(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.SendResult, error) {
	var (
		inv    *domain.Invoice
		items  []domain.InvoiceItem
		client *domain.Client
		owner  *domain.User
		moved  bool
	)

	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		var err error
		inv, err = lockOwnedInvoice(ctx, tx, userID, invoiceID)
		if err != nil {
			return err
		}

		switch inv.Status {
		case domain.InvoiceStatusPaid:
			return domain.ErrInvoiceAlreadyPaid
		case domain.InvoiceStatusSent:
			return nil
		}

		sentAt := s.now().UTC()
		moved, err = tx.MarkInvoiceSent(ctx, inv.ID, sentAt)
		if err != nil {
			return err
		}
		if moved {
			inv.Status = domain.InvoiceStatusSent
			inv.SentAt = &sentAt
		}

		if items, err = tx.ListInvoiceItems(ctx, inv.ID); err != nil {
			return err
		}
		if client, err = tx.GetClient(ctx, inv.ClientID); err != nil {
			return err
		}
		owner, err = tx.GetUser(ctx, inv.UserID)
		return err
	})
	if err != nil {
		return nil, domain.WithOp(err, opMarkSent)
	}

	result := &domain.SendResult{Invoice: inv}
	if !moved {
		// Already sent: no second email.
		return result, nil
	}

	if telemetry.Business != nil {
		telemetry.Business.InvoicesSent.WithLabelValues(userID.String()).Inc()
	}
	s.publish(ctx, events.SubjectInvoiceSent, inv)

	result.EmailError = s.deliver(ctx, inv, items, client, owner)
	result.EmailSent = result.EmailError == nil
	return result, nil
}

func (s *invoiceService) deliver(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceItem, client *domain.Client, owner *domain.User) error {
	if s.mailer == nil {
		return nil
	}

	lines := make([]email.InvoiceLine, len(items))
	for i, it := range items {
		lines[i] = email.InvoiceLine{Description: it.Description, Date: it.Date, Amount: it.Amount}
	}

	_, err := s.mailer.SendInvoice(ctx, email.InvoiceEmail{
		To:         client.Email,
		ClientName: client.Name,
		SenderName: owner.Name,
		ReplyTo:    owner.Email,
		Number:     inv.Number,
		IssuedAt:   inv.CreatedAt,
		DueDate:    inv.DueDate,
		Items:      lines,
		Subtotal:   inv.Subtotal,
		TPS:        inv.TPS,
		TVQ:        inv.TVQ,
		Total:      inv.Total,
		Currency:   s.config.Currency,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "invoice email failed",
			"invoice_id", inv.ID,
			"number", inv.Number,
			"error", err,
		)
		telemetry.CaptureError(ctx, err, map[string]any{
			"invoice_id": inv.ID.String(),
			"operation":  opMarkSent,
		})
		if telemetry.Business != nil {
			telemetry.Business.EmailFailed.WithLabelValues("invoice").Inc()
		}
		return err
	}

	if telemetry.Business != nil {
		telemetry.Business.EmailSent.WithLabelValues("invoice").Inc()
	}
	return nil
}

// MarkPaid records a manual payment with the same cascade as a provider
// payment. Paying an already paid invoice succeeds without changes.
func (s *invoiceService) MarkPaid(ctx context.Context, userID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	payment := domain.Payment{
		InvoiceID: invoiceID,
		Provider:  domain.PaymentProviderManual,
		PaidAt:    s.now().UTC(),
	}

	var result *domain.ReconcileResult
	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		inv, err := lockOwnedInvoice(ctx, tx, userID, invoiceID)
		if err != nil {
			return err
		}
		result, err = applyPayment(ctx, tx, inv, payment, nil)
		return err
	})
	if err != nil {
		return nil, domain.WithOp(err, opMarkPaid)
	}

	publishPaid(ctx, s.publisher, s.logger, result)
	return result.Invoice, nil
}

func (s *invoiceService) publish(ctx context.Context, subject string, inv *domain.Invoice) {
	if err := s.publisher.Publish(ctx, events.NewInvoiceEvent(subject, inv)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish invoice event",
			"subject", subject,
			"invoice_id", inv.ID,
			"error", err,
		)
	}
}

// dedupeIDs drops repeated ids, keeping the first occurrence.
// sortByIssueDate puts charges in invoice line order.
func sortByIssueDate(charges []domain.UnpaidAmount) {
	slices.SortStableFunc(charges, func(a, b domain.UnpaidAmount) int {
		if c := a.IssueDate.Compare(b.IssueDate); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// commonProject returns the project shared by every charge, if any.
func commonProject(charges []domain.UnpaidAmount) *uuid.UUID {
	var project *uuid.UUID
	for i, c := range charges {
		if c.ProjectID == nil {
			return nil
		}
		if i == 0 {
			p := *c.ProjectID
			project = &p
			continue
		}
		if *c.ProjectID != *project {
			return nil
		}
	}
	return project
}
