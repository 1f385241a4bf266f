package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/dukerupert/tally/internal/billing"
	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckoutService(f *ledgerFixture, provider billing.Provider) CheckoutService {
	return NewCheckoutService(f.store, provider, testLogger(), CheckoutConfig{
		BaseURL:  "https://tally.example/",
		Currency: "cad",
		PayPal:   billing.PayPalConfig{BaseURL: "https://www.sandbox.paypal.com/cgi-bin/webscr"},
	})
}

func TestCheckoutService_Stripe(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoiceFor(t, f.charge("100"), f.charge("14.98"))
	provider := billing.NewMockProvider()

	var got billing.CheckoutSessionParams
	provider.CreateCheckoutSessionFunc = func(ctx context.Context, params billing.CheckoutSessionParams) (*billing.CheckoutSession, error) {
		got = params
		return &billing.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/c/pay/cs_test_1"}, nil
	}

	link, err := newCheckoutService(f, provider).CreatePaymentLink(context.Background(), f.user.ID, inv.ID, domain.PaymentProviderStripe)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentProviderStripe, link.Provider)
	assert.Equal(t, "cs_test_1", link.SessionID)
	assert.Equal(t, "https://checkout.stripe.test/c/pay/cs_test_1", link.URL)

	assert.Equal(t, inv.ID, got.InvoiceID)
	assert.Equal(t, inv.Number, got.InvoiceNumber)
	assert.Equal(t, int64(11498), got.AmountCents())
	assert.Equal(t, "cad", got.Currency)
	assert.Equal(t, f.client.Email, got.CustomerEmail)
	assert.Equal(t, "https://tally.example/invoices/"+inv.ID.String()+"/paid", got.SuccessURL)
	assert.Equal(t, "https://tally.example/invoices/"+inv.ID.String()+"/cancelled", got.CancelURL)
}

func TestCheckoutService_PayPal(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoiceFor(t, f.charge("300"))

	link, err := newCheckoutService(f, nil).CreatePaymentLink(context.Background(), f.user.ID, inv.ID, domain.PaymentProviderPayPal)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentProviderPayPal, link.Provider)

	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "www.sandbox.paypal.com", u.Host)

	q := u.Query()
	assert.Equal(t, "_xclick", q.Get("cmd"))
	assert.Equal(t, "Pay@Marie.example", q.Get("business"))
	assert.Equal(t, "300.00", q.Get("amount"))
	assert.Equal(t, inv.ID.String(), q.Get("custom"))
	assert.Equal(t, inv.ID.String(), q.Get("invoice"))
	assert.Equal(t, "https://tally.example/webhooks/paypal", q.Get("notify_url"))
	assert.Equal(t, "https://tally.example/invoices/"+inv.ID.String()+"/paid", q.Get("return"))
}

func TestCheckoutService_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider domain.PaymentProvider
		stripe   billing.Provider
		setup    func(t *testing.T, f *ledgerFixture, inv domain.Invoice) uuid.UUID
		wantErr  error
		wantCode string
	}{
		{
			name:     "paid invoice",
			provider: domain.PaymentProviderStripe,
			stripe:   billing.NewMockProvider(),
			setup: func(t *testing.T, f *ledgerFixture, inv domain.Invoice) uuid.UUID {
				_, err := f.invoiceService(nil, nil).MarkPaid(context.Background(), f.user.ID, inv.ID)
				require.NoError(t, err)
				return f.user.ID
			},
			wantErr:  domain.ErrInvoiceAlreadyPaid,
			wantCode: domain.ECONFLICT,
		},
		{
			name:     "stripe not enabled for account",
			provider: domain.PaymentProviderStripe,
			stripe:   billing.NewMockProvider(),
			setup: func(t *testing.T, f *ledgerFixture, inv domain.Invoice) uuid.UUID {
				f.user.StripeEnabled = false
				f.store.addUser(f.user)
				return f.user.ID
			},
			wantErr:  domain.ErrProviderNotConfigured,
			wantCode: domain.EINVALID,
		},
		{
			name:     "stripe not configured for server",
			provider: domain.PaymentProviderStripe,
			wantErr:  domain.ErrProviderNotConfigured,
			wantCode: domain.EINVALID,
		},
		{
			name:     "paypal not configured",
			provider: domain.PaymentProviderPayPal,
			setup: func(t *testing.T, f *ledgerFixture, inv domain.Invoice) uuid.UUID {
				f.user.PayPalEmail = "  "
				f.store.addUser(f.user)
				return f.user.ID
			},
			wantErr:  domain.ErrProviderNotConfigured,
			wantCode: domain.EINVALID,
		},
		{
			name:     "manual is not a link provider",
			provider: domain.PaymentProviderManual,
			wantErr:  domain.ErrUnsupportedPaymentMethod,
			wantCode: domain.EINVALID,
		},
		{
			name:     "other account",
			provider: domain.PaymentProviderPayPal,
			setup: func(t *testing.T, f *ledgerFixture, inv domain.Invoice) uuid.UUID {
				return f.store.addUser(domain.User{Email: "eve@example.com"}).ID
			},
			wantErr:  domain.ErrForbidden,
			wantCode: domain.EFORBIDDEN,
		},
		{
			name:     "provider failure is internal",
			provider: domain.PaymentProviderStripe,
			stripe: &billing.MockProvider{
				CreateCheckoutSessionFunc: func(ctx context.Context, params billing.CheckoutSessionParams) (*billing.CheckoutSession, error) {
					return nil, errors.New("stripe: api_connection_error")
				},
			},
			wantCode: domain.EINTERNAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			inv := f.invoiceFor(t, f.charge("300"))
			userID := f.user.ID
			if tt.setup != nil {
				userID = tt.setup(t, f, inv)
			}

			_, err := newCheckoutService(f, tt.stripe).CreatePaymentLink(context.Background(), userID, inv.ID, tt.provider)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestCheckoutService_StripeMinimum(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoiceFor(t, f.charge("0.25"))

	_, err := newCheckoutService(f, billing.NewMockProvider()).CreatePaymentLink(context.Background(), f.user.ID, inv.ID, domain.PaymentProviderStripe)

	assert.ErrorIs(t, err, billing.ErrAmountTooSmall)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
