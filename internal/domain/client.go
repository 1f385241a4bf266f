package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ownership errors.
var (
	ErrUnauthenticated = &Error{Code: EUNAUTHORIZED, Message: "Authentication required"}
	ErrForbidden       = &Error{Code: EFORBIDDEN, Message: "Access denied: resource belongs to another account"}
	ErrClientNotFound  = &Error{Code: ENOTFOUND, Message: "Client not found"}
	ErrUserNotFound    = &Error{Code: ENOTFOUND, Message: "User not found"}
)

// User is the account owner. Every client, charge and invoice belongs to
// exactly one user through Client.UserID.
type User struct {
	ID    uuid.UUID
	Email string
	Name  string

	// StripeEnabled is set once the account has connected Stripe checkout.
	StripeEnabled bool

	// PayPalEmail is the receiving address IPN notifications must match.
	PayPalEmail string

	// TPSRate and TVQRate are the two flat sales tax rates (e.g. 0.05 and
	// 0.09975). Zero disables the tax breakdown.
	TPSRate decimal.Decimal
	TVQRate decimal.Decimal

	CreatedAt time.Time
}

// HasPayPal reports whether a PayPal receiving address is configured.
func (u *User) HasPayPal() bool {
	return strings.TrimSpace(u.PayPalEmail) != ""
}

// Client is the tenant-scoping root for charges and invoices.
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
}

// OwnedBy reports whether the client belongs to userID.
func (c *Client) OwnedBy(userID uuid.UUID) bool {
	return c.UserID == userID
}
