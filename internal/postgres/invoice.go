package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invoiceColumns = `
	i.id, c.user_id, i.client_id, i.project_id, i.number, i.status,
	i.subtotal, i.tps, i.tvq, i.total, i.due_date,
	i.payment_provider, i.payment_transaction_id, i.paid_at, i.sent_at,
	i.created_at, i.updated_at`

const getInvoiceSQL = `
SELECT` + invoiceColumns + `
FROM invoices i
JOIN clients c ON c.id = i.client_id
WHERE i.id = $1`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.ClientID,
		&inv.ProjectID,
		&inv.Number,
		&inv.Status,
		&inv.Subtotal,
		&inv.TPS,
		&inv.TVQ,
		&inv.Total,
		&inv.DueDate,
		&inv.PaymentProvider,
		&inv.PaymentTransactionID,
		&inv.PaidAt,
		&inv.SentAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvoice returns the invoice with its owner resolved through the client.
func (q *queries) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := scanInvoice(q.db.QueryRow(ctx, getInvoiceSQL, id))
	if err != nil {
		return nil, fmt.Errorf("postgres: get invoice: %w", notFound(err, domain.ErrInvoiceNotFound))
	}
	return inv, nil
}

const listInvoicesByClientSQL = `
SELECT` + invoiceColumns + `
FROM invoices i
JOIN clients c ON c.id = i.client_id
WHERE i.client_id = $1
ORDER BY i.created_at DESC, i.number DESC`

func (q *queries) ListInvoicesByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoicesByClientSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list invoices: %w", err)
	}
	return invoices, nil
}

const listInvoiceItemsSQL = `
SELECT id, invoice_id, unpaid_amount_id, description, amount, date, due_date, position
FROM invoice_items
WHERE invoice_id = $1
ORDER BY position`

func (q *queries) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceItemsSQL, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list invoice items: %w", err)
	}
	defer rows.Close()

	var items []domain.InvoiceItem
	for rows.Next() {
		var it domain.InvoiceItem
		if err := rows.Scan(
			&it.ID,
			&it.InvoiceID,
			&it.UnpaidAmountID,
			&it.Description,
			&it.Amount,
			&it.Date,
			&it.DueDate,
			&it.Position,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list invoice items: %w", err)
	}
	return items, nil
}

// LockInvoice reads the invoice under a row lock held until commit.
func (t *Tx) LockInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := scanInvoice(t.db.QueryRow(ctx, getInvoiceSQL+`
FOR UPDATE OF i`, id))
	if err != nil {
		return nil, fmt.Errorf("postgres: lock invoice: %w", notFound(err, domain.ErrInvoiceNotFound))
	}
	return inv, nil
}

const insertInvoiceSQL = `
INSERT INTO invoices (id, client_id, project_id, number, status, subtotal, tps, tvq, total, due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at`

// InsertInvoice inserts inside a savepoint so that a number collision
// leaves the transaction usable for a retry.
func (t *Tx) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	err := t.savepoint(ctx, func(db DBTX) error {
		return db.QueryRow(ctx, insertInvoiceSQL,
			inv.ID,
			inv.ClientID,
			inv.ProjectID,
			inv.Number,
			inv.Status,
			inv.Subtotal,
			inv.TPS,
			inv.TVQ,
			inv.Total,
			inv.DueDate,
		).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	})
	if isUniqueViolation(err, "invoices_number_key") {
		return domain.ErrInvoiceNumberTaken
	}
	if err != nil {
		return fmt.Errorf("postgres: insert invoice: %w", err)
	}
	return nil
}

const insertInvoiceItemSQL = `
INSERT INTO invoice_items (id, invoice_id, unpaid_amount_id, description, amount, date, due_date, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (t *Tx) InsertInvoiceItems(ctx context.Context, items []domain.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(insertInvoiceItemSQL,
			it.ID,
			it.InvoiceID,
			it.UnpaidAmountID,
			it.Description,
			it.Amount,
			it.Date,
			it.DueDate,
			it.Position,
		)
	}

	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: insert invoice items: %w", err)
	}
	return nil
}

const markInvoiceSentSQL = `
UPDATE invoices
SET status = 'sent', sent_at = $2, updated_at = now()
WHERE id = $1 AND status = 'draft'`

func (t *Tx) MarkInvoiceSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	tag, err := t.db.Exec(ctx, markInvoiceSentSQL, id, sentAt)
	if err != nil {
		return false, fmt.Errorf("postgres: mark invoice sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const markInvoicePaidSQL = `
UPDATE invoices
SET status = 'paid',
    paid_at = $2,
    payment_provider = $3,
    payment_transaction_id = NULLIF($4, ''),
    updated_at = now()
WHERE id = $1 AND status <> 'paid'`

// MarkInvoicePaid is the conditional update that makes the paid
// transition happen at most once.
func (t *Tx) MarkInvoicePaid(ctx context.Context, p domain.Payment) (bool, error) {
	tag, err := t.db.Exec(ctx, markInvoicePaidSQL,
		p.InvoiceID,
		p.PaidAt,
		p.Provider,
		p.TransactionID,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: mark invoice paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const markInvoiceChargesPaidSQL = `
UPDATE unpaid_amounts
SET status = 'paid', updated_at = now()
WHERE invoice_id = $1 AND status <> 'paid'`

func (t *Tx) MarkInvoiceChargesPaid(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	tag, err := t.db.Exec(ctx, markInvoiceChargesPaidSQL, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("postgres: cascade charges paid: %w", err)
	}
	return tag.RowsAffected(), nil
}

const insertPaymentEventSQL = `
INSERT INTO payment_events (id, provider, event_id, event_type, invoice_id, received_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (provider, event_id) DO NOTHING`

func (t *Tx) InsertPaymentEvent(ctx context.Context, ev *domain.PaymentEvent) (bool, error) {
	if ev.EventID == "" {
		return false, errors.New("postgres: payment event id required")
	}
	tag, err := t.db.Exec(ctx, insertPaymentEventSQL,
		ev.ID,
		ev.Provider,
		ev.EventID,
		ev.EventType,
		ev.InvoiceID,
		ev.ReceivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: insert payment event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
