package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnpaidAmountStatus tracks a charge from billable to settled.
type UnpaidAmountStatus string

const (
	UnpaidAmountStatusUnpaid   UnpaidAmountStatus = "unpaid"
	UnpaidAmountStatusInvoiced UnpaidAmountStatus = "invoiced"
	UnpaidAmountStatusPaid     UnpaidAmountStatus = "paid"
)

// Unpaid amount errors.
var (
	ErrUnpaidAmountNotFound = &Error{Code: ENOTFOUND, Message: "Unpaid amount not found"}
	ErrUnpaidAmountInvoiced = &Error{Code: ECONFLICT, Message: "Charge has been invoiced and can no longer be deleted"}
	ErrAmountNotPositive    = &Error{Code: EINVALID, Message: "Amount must be greater than zero"}
	ErrDueBeforeIssue       = &Error{Code: EINVALID, Message: "Due date must be on or after the issue date"}
	ErrAmountPrecision      = &Error{Code: EINVALID, Message: "Amount must have at most two decimal places"}
	ErrAmountTooLarge       = &Error{Code: EINVALID, Message: "Amount must be less than 10000000000"}
)

// UnpaidAmount is a single billable charge for a client.
type UnpaidAmount struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	ProjectID   *uuid.UUID
	Amount      decimal.Decimal
	Description string
	IssueDate   time.Time
	DueDate     *time.Time
	Status      UnpaidAmountStatus
	InvoiceID   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AmountLimit is the smallest amount the ledger's NUMERIC(12,2) columns
// cannot hold.
var AmountLimit = decimal.New(1, 10)

// ValidateAmount accepts positive amounts in whole cents below
// AmountLimit. Trailing zeros ("10.500") are fine.
func ValidateAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return ErrAmountNotPositive
	case !amount.Equal(amount.Round(2)):
		return ErrAmountPrecision
	case amount.GreaterThanOrEqual(AmountLimit):
		return ErrAmountTooLarge
	}
	return nil
}

// Validate checks the amount and date invariants.
func (u *UnpaidAmount) Validate() error {
	if err := ValidateAmount(u.Amount); err != nil {
		return err
	}
	if u.DueDate != nil && u.DueDate.Before(u.IssueDate) {
		return ErrDueBeforeIssue
	}
	return nil
}

// IsBillable reports whether the charge can be placed on a new invoice.
func (u *UnpaidAmount) IsBillable() bool {
	return u.Status == UnpaidAmountStatusUnpaid
}

// CreateUnpaidAmountParams describes a new charge.
type CreateUnpaidAmountParams struct {
	ClientID    uuid.UUID
	ProjectID   *uuid.UUID
	Amount      decimal.Decimal
	Description string
	IssueDate   time.Time
	DueDate     *time.Time
}

// UpdateUnpaidAmountParams edits a charge. Nil fields are left unchanged.
type UpdateUnpaidAmountParams struct {
	Amount      *decimal.Decimal
	Description *string
	DueDate     *time.Time
}

// UnpaidAmountService manages charges before they are invoiced.
type UnpaidAmountService interface {
	Create(ctx context.Context, userID uuid.UUID, params CreateUnpaidAmountParams) (*UnpaidAmount, error)
	Update(ctx context.Context, userID, id uuid.UUID, params UpdateUnpaidAmountParams) (*UnpaidAmount, error)

	// Delete removes an unpaid charge. Invoiced or paid charges are kept.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// ListForClient returns a client's charges, optionally filtered by status.
	ListForClient(ctx context.Context, userID, clientID uuid.UUID, status *UnpaidAmountStatus) ([]UnpaidAmount, error)
}
