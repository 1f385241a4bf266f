package postgres

import (
	"context"
	"fmt"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

const listRemindersSQL = `
SELECT id, invoice_id, type, sent_at, recipient, status
FROM invoice_reminders
WHERE invoice_id = $1
ORDER BY sent_at, id`

func (q *queries) ListReminders(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceReminder, error) {
	rows, err := q.db.Query(ctx, listRemindersSQL, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list reminders: %w", err)
	}
	defer rows.Close()

	var out []domain.InvoiceReminder
	for rows.Next() {
		var r domain.InvoiceReminder
		if err := rows.Scan(&r.ID, &r.InvoiceID, &r.Type, &r.SentAt, &r.Recipient, &r.Status); err != nil {
			return nil, fmt.Errorf("postgres: scan reminder: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list reminders: %w", err)
	}
	return out, nil
}

// InsertReminder appends to the history. There is no update path.
func (t *Tx) InsertReminder(ctx context.Context, r *domain.InvoiceReminder) error {
	_, err := t.db.Exec(ctx, `
INSERT INTO invoice_reminders (id, invoice_id, type, sent_at, recipient, status)
VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID,
		r.InvoiceID,
		r.Type,
		r.SentAt,
		r.Recipient,
		r.Status,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert reminder: %w", err)
	}
	return nil
}
