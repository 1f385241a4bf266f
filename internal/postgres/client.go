package postgres

import (
	"context"
	"fmt"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

const getUserSQL = `
SELECT id, email, name, stripe_enabled, paypal_email, tps_rate, tvq_rate, created_at
FROM users
WHERE id = $1`

// GetUser returns the account owner with payment settings.
func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := q.db.QueryRow(ctx, getUserSQL, id).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.StripeEnabled,
		&u.PayPalEmail,
		&u.TPSRate,
		&u.TVQRate,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: get user: %w", notFound(err, domain.ErrUserNotFound))
	}
	return &u, nil
}

const getClientSQL = `
SELECT id, user_id, name, email, created_at
FROM clients
WHERE id = $1`

func (q *queries) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	var c domain.Client
	err := q.db.QueryRow(ctx, getClientSQL, id).Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Email,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: get client: %w", notFound(err, domain.ErrClientNotFound))
	}
	return &c, nil
}
