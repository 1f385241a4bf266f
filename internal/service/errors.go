package service

import (
	"github.com/dukerupert/tally/internal/domain"
)

// Operation names attached to errors for logs.
const (
	opCreateInvoice   = "invoice.create"
	opGetInvoice      = "invoice.get"
	opListInvoices    = "invoice.list"
	opMarkSent        = "invoice.mark_sent"
	opMarkPaid        = "invoice.mark_paid"
	opReconcileStripe = "payment.reconcile_stripe"
	opReconcilePayPal = "payment.reconcile_paypal"
	opPaymentLink     = "payment.link"
	opRecordReminder  = "reminder.record"
	opListReminders   = "reminder.list"
	opCreateCharge    = "unpaid_amount.create"
	opUpdateCharge    = "unpaid_amount.update"
	opDeleteCharge    = "unpaid_amount.delete"
	opListCharges     = "unpaid_amount.list"
)

// maxNumberAttempts bounds invoice number regeneration on collision.
const maxNumberAttempts = 5

// Validation errors - use domain.EINVALID
var (
	ErrNoUnpaidAmountIDs = domain.Errorf(domain.EINVALID, "", "At least one unpaid amount id is required")
	ErrMissingClientID   = domain.Errorf(domain.EINVALID, "", "Client id is required")
	ErrDescriptionEmpty  = domain.Errorf(domain.EINVALID, "", "Description is required")
	ErrIssueDateRequired = domain.Errorf(domain.EINVALID, "", "Issue date is required")
)

// Charge edits after invoicing - use domain.ECONFLICT
var (
	ErrChargeNotEditable = domain.Errorf(domain.ECONFLICT, "", "Only unpaid charges can be edited")
)
