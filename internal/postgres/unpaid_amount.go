package postgres

import (
	"context"
	"fmt"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const unpaidAmountColumns = `
	id, client_id, project_id, amount, description, issue_date, due_date,
	status, invoice_id, created_at, updated_at`

func scanUnpaidAmount(row pgx.Row) (*domain.UnpaidAmount, error) {
	var ua domain.UnpaidAmount
	err := row.Scan(
		&ua.ID,
		&ua.ClientID,
		&ua.ProjectID,
		&ua.Amount,
		&ua.Description,
		&ua.IssueDate,
		&ua.DueDate,
		&ua.Status,
		&ua.InvoiceID,
		&ua.CreatedAt,
		&ua.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ua, nil
}

func collectUnpaidAmounts(rows pgx.Rows) ([]domain.UnpaidAmount, error) {
	defer rows.Close()

	var out []domain.UnpaidAmount
	for rows.Next() {
		ua, err := scanUnpaidAmount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ua)
	}
	return out, rows.Err()
}

const getUnpaidAmountSQL = `SELECT` + unpaidAmountColumns + ` FROM unpaid_amounts WHERE id = $1`

func (q *queries) GetUnpaidAmount(ctx context.Context, id uuid.UUID) (*domain.UnpaidAmount, error) {
	ua, err := scanUnpaidAmount(q.db.QueryRow(ctx, getUnpaidAmountSQL, id))
	if err != nil {
		return nil, fmt.Errorf("postgres: get unpaid amount: %w", notFound(err, domain.ErrUnpaidAmountNotFound))
	}
	return ua, nil
}

const listUnpaidAmountsSQL = `
SELECT` + unpaidAmountColumns + `
FROM unpaid_amounts
WHERE client_id = $1 AND ($2::text IS NULL OR status = $2::text)
ORDER BY issue_date, created_at`

func (q *queries) ListUnpaidAmounts(ctx context.Context, clientID uuid.UUID, status *domain.UnpaidAmountStatus) ([]domain.UnpaidAmount, error) {
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := q.db.Query(ctx, listUnpaidAmountsSQL, clientID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unpaid amounts: %w", err)
	}
	out, err := collectUnpaidAmounts(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unpaid amounts: %w", err)
	}
	return out, nil
}

// Rows are locked in id order so concurrent builders cannot deadlock on
// overlapping selections, then returned in issue date order. Under READ
// COMMITTED a row that another transaction invoiced while we waited is
// re-checked against the status predicate and dropped.
const lockBillableUnpaidAmountsSQL = `
WITH locked AS MATERIALIZED (
	SELECT` + unpaidAmountColumns + `
	FROM unpaid_amounts
	WHERE client_id = $1 AND id = ANY($2::uuid[]) AND status = 'unpaid'
	ORDER BY id
	FOR UPDATE
)
SELECT` + unpaidAmountColumns + `
FROM locked
ORDER BY issue_date, created_at, id`

func (t *Tx) LockBillableUnpaidAmounts(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) ([]domain.UnpaidAmount, error) {
	rows, err := t.db.Query(ctx, lockBillableUnpaidAmountsSQL, clientID, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("postgres: lock unpaid amounts: %w", err)
	}
	out, err := collectUnpaidAmounts(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: lock unpaid amounts: %w", err)
	}
	return out, nil
}

func (t *Tx) LockUnpaidAmount(ctx context.Context, id uuid.UUID) (*domain.UnpaidAmount, error) {
	ua, err := scanUnpaidAmount(t.db.QueryRow(ctx, getUnpaidAmountSQL+` FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("postgres: lock unpaid amount: %w", notFound(err, domain.ErrUnpaidAmountNotFound))
	}
	return ua, nil
}

const markUnpaidAmountsInvoicedSQL = `
UPDATE unpaid_amounts
SET status = 'invoiced', invoice_id = $1, updated_at = now()
WHERE id = ANY($2::uuid[]) AND status = 'unpaid'`

func (t *Tx) MarkUnpaidAmountsInvoiced(ctx context.Context, invoiceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	tag, err := t.db.Exec(ctx, markUnpaidAmountsInvoicedSQL, invoiceID, uuidStrings(ids))
	if err != nil {
		return 0, fmt.Errorf("postgres: mark unpaid amounts invoiced: %w", err)
	}
	return tag.RowsAffected(), nil
}

const insertUnpaidAmountSQL = `
INSERT INTO unpaid_amounts (id, client_id, project_id, amount, description, issue_date, due_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at`

func (t *Tx) InsertUnpaidAmount(ctx context.Context, ua *domain.UnpaidAmount) error {
	err := t.db.QueryRow(ctx, insertUnpaidAmountSQL,
		ua.ID,
		ua.ClientID,
		ua.ProjectID,
		ua.Amount,
		ua.Description,
		ua.IssueDate,
		ua.DueDate,
		ua.Status,
	).Scan(&ua.CreatedAt, &ua.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert unpaid amount: %w", err)
	}
	return nil
}

const updateUnpaidAmountSQL = `
UPDATE unpaid_amounts
SET amount = $2, description = $3, due_date = $4, updated_at = now()
WHERE id = $1
RETURNING updated_at`

// UpdateUnpaidAmount edits the charge row only. Invoice items copied from
// it are separate rows and keep their original values.
func (t *Tx) UpdateUnpaidAmount(ctx context.Context, ua *domain.UnpaidAmount) error {
	err := t.db.QueryRow(ctx, updateUnpaidAmountSQL,
		ua.ID,
		ua.Amount,
		ua.Description,
		ua.DueDate,
	).Scan(&ua.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update unpaid amount: %w", notFound(err, domain.ErrUnpaidAmountNotFound))
	}
	return nil
}

func (t *Tx) DeleteUnpaidAmount(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := t.db.Exec(ctx, `DELETE FROM unpaid_amounts WHERE id = $1 AND status = 'unpaid'`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: delete unpaid amount: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
