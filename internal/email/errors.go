package email

import "github.com/dukerupert/tally/internal/domain"

var (
	// ErrNoRecipient is returned when the client has no email address.
	ErrNoRecipient = &domain.Error{Code: domain.EINVALID, Message: "Client has no email address"}

	// ErrRenderFailed is returned when an invoice template cannot be executed.
	ErrRenderFailed = &domain.Error{Code: domain.EINTERNAL, Message: "Failed to render invoice email"}
)
