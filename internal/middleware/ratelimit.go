package middleware

import (
	"net/http"
	"time"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

// RateLimiterConfig configures the rate limiter
type RateLimiterConfig struct {
	// Requests allowed per Window for one key.
	Requests int
	Window   time.Duration
}

// DefaultRateLimiterConfig returns sensible defaults
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{Requests: 120, Window: time.Minute}
}

// RateLimit limits API traffic per authenticated user, falling back to
// the client IP for anonymous requests.
func RateLimit(config RateLimiterConfig) func(http.Handler) http.Handler {
	if config.Requests <= 0 {
		config = DefaultRateLimiterConfig()
	}
	return httprate.Limit(config.Requests, config.Window,
		httprate.WithKeyFuncs(userOrIPKey),
		httprate.WithLimitHandler(respondTooManyRequests),
	)
}

// RateLimitByIP limits unauthenticated endpoints such as webhooks.
func RateLimitByIP(config RateLimiterConfig) func(http.Handler) http.Handler {
	if config.Requests <= 0 {
		config = DefaultRateLimiterConfig()
	}
	return httprate.Limit(config.Requests, config.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(respondTooManyRequests),
	)
}

func userOrIPKey(r *http.Request) (string, error) {
	if userID := domain.UserIDFromContext(r.Context()); userID != uuid.Nil {
		return "user:" + userID.String(), nil
	}
	return httprate.KeyByIP(r)
}
