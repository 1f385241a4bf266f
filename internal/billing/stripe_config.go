package billing

import (
	"errors"
	"strings"
)

// StripeConfig contains configuration for the Stripe provider.
type StripeConfig struct {
	// APIKey is the Stripe secret key (sk_test_... or sk_live_...)
	APIKey string

	// WebhookSecret is the endpoint signing secret (whsec_...)
	WebhookSecret string

	// Currency is the ISO code invoices are charged in. Default: cad
	Currency string

	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int

	// TimeoutSeconds is the HTTP timeout for Stripe API calls.
	TimeoutSeconds int
}

// Validate checks that required configuration is present.
func (c *StripeConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("stripe: API key is required")
	}
	if c.WebhookSecret == "" {
		return errors.New("stripe: webhook secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.APIKey, "sk_test_")
}

func (c *StripeConfig) currency() string {
	if c.Currency == "" {
		return "cad"
	}
	return strings.ToLower(c.Currency)
}
