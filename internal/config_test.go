package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "dev", cfg.Env)
				assert.Equal(t, uint16(3000), cfg.Port)
				assert.Equal(t, "CAD", cfg.Currency)
				assert.False(t, cfg.Stripe.Enabled())
				assert.Equal(t, 120, cfg.RateLimit.APIPerMinute)
			},
		},
		{
			name: "trailing slash and lowercase currency",
			env:  map[string]string{"BASE_URL": "https://billing.example.com/", "CURRENCY": "usd"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://billing.example.com", cfg.BaseURL)
				assert.Equal(t, "USD", cfg.Currency)
			},
		},
		{
			name: "unknown env falls back to prod",
			env:  map[string]string{"ENV": "staging", "LOG_LEVEL": "verbose"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "prod", cfg.Env)
				assert.Equal(t, "info", cfg.LogLevel)
			},
		},
		{
			name:    "prod stripe without webhook secret",
			env:     map[string]string{"ENV": "prod", "STRIPE_SECRET_KEY": "sk_live_x"},
			wantErr: true,
		},
		{
			name: "prod stripe with webhook secret",
			env:  map[string]string{"ENV": "prod", "STRIPE_SECRET_KEY": "sk_live_x", "STRIPE_WEBHOOK_SECRET": "whsec_x"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Stripe.Enabled())
			},
		},
		{
			name:    "bad currency",
			env:     map[string]string{"CURRENCY": "CANADIAN"},
			wantErr: true,
		},
		{
			name: "sentry without dsn is disabled",
			env:  map[string]string{"SENTRY_ENABLED": "true"},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Sentry.Enabled)
			},
		},
	}

	keys := []string{
		"ENV", "LOG_LEVEL", "BASE_URL", "CURRENCY", "STRIPE_SECRET_KEY",
		"STRIPE_WEBHOOK_SECRET", "SENTRY_ENABLED", "SENTRY_DSN", "RATE_LIMIT_PER_MINUTE",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range keys {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := NewConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "warn")

	logger.Info("dropped")
	logger.Warn("kept", "invoice_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), buf.String())
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "tally", line["service"])
	assert.Equal(t, "abc", line["invoice_id"])
}
