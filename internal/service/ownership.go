package service

import (
	"context"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

// ownedClient loads a client and checks it belongs to userID.
func ownedClient(ctx context.Context, r domain.LedgerReader, userID, clientID uuid.UUID) (*domain.Client, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	client, err := r.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.OwnedBy(userID) {
		return nil, domain.ErrForbidden
	}
	return client, nil
}

// ownedInvoice loads an invoice and checks it belongs to userID.
func ownedInvoice(ctx context.Context, r domain.LedgerReader, userID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	inv, err := r.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

// lockOwnedInvoice is ownedInvoice under a row lock.
func lockOwnedInvoice(ctx context.Context, tx domain.LedgerTx, userID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	inv, err := tx.LockInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}
