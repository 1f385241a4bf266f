package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates Stripe without calling the API.
type MockProvider struct {
	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior
	VerifyWebhookSignatureFunc func(payload []byte, signature string, secret string) error

	// CreateCheckoutSessionFunc allows customizing checkout creation behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)

	// Sessions stores created checkout sessions keyed by id
	Sessions map[string]*CheckoutSession

	// CallLog tracks method calls for test assertions
	CallLog []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Sessions: make(map[string]*CheckoutSession),
		CallLog:  []string{},
	}
}

// VerifyWebhookSignature accepts any non-empty signature by default.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature, secret)
	}

	if signature == "" {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// CreateCheckoutSession returns a fake hosted page URL.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateCheckoutSession(%s, %d)", params.InvoiceNumber, params.AmountCents()))

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	if params.AmountCents() < minimumChargeCents {
		return nil, ErrAmountTooSmall
	}

	id := "cs_test_" + uuid.New().String()
	cs := &CheckoutSession{
		ID:  id,
		URL: "https://checkout.stripe.test/c/pay/" + id,
	}
	m.Sessions[id] = cs
	return cs, nil
}

// Reset clears all stored data and call logs.
func (m *MockProvider) Reset() {
	m.Sessions = make(map[string]*CheckoutSession)
	m.CallLog = []string{}
}
