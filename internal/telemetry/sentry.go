package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string

	// SampleRate is the share of errors reported. Default: 1.0
	SampleRate float64

	// TracesSampleRate is the share of requests traced. 0 disables tracing.
	TracesSampleRate float64

	Debug bool
}

var sentryEnabled atomic.Bool

// InitSentry initializes the Sentry client and returns a flush function for
// shutdown. A disabled or DSN-less config leaves reporting off.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	sentryEnabled.Store(false)
	noop := func() {}

	if !cfg.Enabled || cfg.DSN == "" {
		logger.Info("Sentry disabled")
		return noop, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       "tally",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	sentryEnabled.Store(true)

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
	)

	return func() { sentry.Flush(flushTimeout) }, nil
}

// IsEnabled reports whether errors are being sent to Sentry.
func IsEnabled() bool {
	return sentryEnabled.Load()
}

// hubFor returns the request hub, or a clone of the current hub.
func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}

// SentryMiddleware attaches a per-request hub tagged with the request and
// its request id. Panics are reported and re-raised so the router's
// recovery middleware still writes the response.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := hubFor(r.Context())
			hub.Scope().SetRequest(r)
			if id := domain.RequestIDFromContext(r.Context()); id != "" {
				hub.Scope().SetTag("request_id", id)
			}
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if rec := recover(); rec != nil {
					hub.RecoverWithContext(ctx, rec)
					hub.Flush(flushTimeout)
					panic(rec)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserContextExtractor returns the acting user id from a request
// context, or "" when the request is anonymous.
type UserContextExtractor func(ctx context.Context) string

// SentryContextMiddleware sets the acting user on the request hub. Apply
// it after authentication.
func SentryContextMiddleware(userExtractor UserContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() || userExtractor == nil {
				next.ServeHTTP(w, r)
				return
			}

			hub := hubFor(r.Context())
			if id := userExtractor(r.Context()); id != "" {
				hub.Scope().SetUser(sentry.User{ID: id})
			}

			next.ServeHTTP(w, r.WithContext(sentry.SetHubOnContext(r.Context(), hub)))
		})
	}
}

// CaptureError reports err on the request hub with extras attached and the
// domain error code as a tag. Safe to call when Sentry is disabled.
func CaptureError(ctx context.Context, err error, extras map[string]any) {
	if !IsEnabled() || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_code", domain.ErrorCode(err))
		if op := domain.ErrorOp(err); op != "" {
			scope.SetTag("op", op)
		}
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}
