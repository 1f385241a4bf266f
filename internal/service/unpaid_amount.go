package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

// UnpaidAmountService is re-exported from domain for handler wiring.
type UnpaidAmountService = domain.UnpaidAmountService

type unpaidAmountService struct {
	store  domain.LedgerStore
	logger *slog.Logger
}

// NewUnpaidAmountService creates a new UnpaidAmountService instance.
func NewUnpaidAmountService(store domain.LedgerStore, logger *slog.Logger) UnpaidAmountService {
	return &unpaidAmountService{store: store, logger: logger}
}

func (s *unpaidAmountService) Create(ctx context.Context, userID uuid.UUID, params domain.CreateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
	if params.ClientID == uuid.Nil {
		return nil, domain.WithOp(ErrMissingClientID, opCreateCharge)
	}
	if strings.TrimSpace(params.Description) == "" {
		return nil, domain.WithOp(ErrDescriptionEmpty, opCreateCharge)
	}
	if params.IssueDate.IsZero() {
		return nil, domain.WithOp(ErrIssueDateRequired, opCreateCharge)
	}

	charge := &domain.UnpaidAmount{
		ID:          uuid.New(),
		ClientID:    params.ClientID,
		ProjectID:   params.ProjectID,
		Amount:      params.Amount,
		Description: strings.TrimSpace(params.Description),
		IssueDate:   params.IssueDate,
		DueDate:     params.DueDate,
		Status:      domain.UnpaidAmountStatusUnpaid,
	}
	if err := charge.Validate(); err != nil {
		return nil, domain.WithOp(err, opCreateCharge)
	}

	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := ownedClient(ctx, tx, userID, params.ClientID); err != nil {
			return err
		}
		return tx.InsertUnpaidAmount(ctx, charge)
	})
	if err != nil {
		return nil, domain.WithOp(err, opCreateCharge)
	}

	s.logger.DebugContext(ctx, "unpaid amount created", "id", charge.ID, "client_id", charge.ClientID)
	return charge, nil
}

// Update edits a charge that has not been invoiced. Invoice items are
// copies, so edits never reach an existing invoice.
func (s *unpaidAmountService) Update(ctx context.Context, userID, id uuid.UUID, params domain.UpdateUnpaidAmountParams) (*domain.UnpaidAmount, error) {
	var charge *domain.UnpaidAmount
	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		var err error
		charge, err = tx.LockUnpaidAmount(ctx, id)
		if err != nil {
			return err
		}
		if _, err := ownedClient(ctx, tx, userID, charge.ClientID); err != nil {
			return err
		}
		if !charge.IsBillable() {
			return ErrChargeNotEditable
		}

		if params.Amount != nil {
			charge.Amount = *params.Amount
		}
		if params.Description != nil {
			desc := strings.TrimSpace(*params.Description)
			if desc == "" {
				return ErrDescriptionEmpty
			}
			charge.Description = desc
		}
		if params.DueDate != nil {
			due := *params.DueDate
			charge.DueDate = &due
		}
		if err := charge.Validate(); err != nil {
			return err
		}
		return tx.UpdateUnpaidAmount(ctx, charge)
	})
	if err != nil {
		return nil, domain.WithOp(err, opUpdateCharge)
	}
	return charge, nil
}

// Delete removes an unpaid charge. Once invoiced a charge is permanent.
func (s *unpaidAmountService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx domain.LedgerTx) error {
		charge, err := tx.LockUnpaidAmount(ctx, id)
		if err != nil {
			return err
		}
		if _, err := ownedClient(ctx, tx, userID, charge.ClientID); err != nil {
			return err
		}
		deleted, err := tx.DeleteUnpaidAmount(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrUnpaidAmountInvoiced
		}
		return nil
	})
	if err != nil {
		return domain.WithOp(err, opDeleteCharge)
	}
	return nil
}

func (s *unpaidAmountService) ListForClient(ctx context.Context, userID, clientID uuid.UUID, status *domain.UnpaidAmountStatus) ([]domain.UnpaidAmount, error) {
	if _, err := ownedClient(ctx, s.store, userID, clientID); err != nil {
		return nil, domain.WithOp(err, opListCharges)
	}
	charges, err := s.store.ListUnpaidAmounts(ctx, clientID, status)
	if err != nil {
		return nil, domain.WithOp(err, opListCharges)
	}
	return charges, nil
}
