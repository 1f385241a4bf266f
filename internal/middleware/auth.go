package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/google/uuid"
)

// UserIDHeader carries the authenticated user id set by the gateway.
const UserIDHeader = "X-User-ID"

// Authenticator resolves the acting user for a request. It returns
// uuid.Nil with a nil error when the request carries no credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) (uuid.UUID, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error) {
	return f(ctx, r)
}

// HeaderAuthenticator trusts the X-User-ID header. Only deploy it behind
// a gateway that strips the header from client traffic and sets it after
// authenticating.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(_ context.Context, r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.EUNAUTHORIZED, "auth.header", "Invalid user id")
	}
	return id, nil
}

// WithUser resolves the user and stores the id on the request context.
// It does not reject anonymous requests; RequireUser does.
func WithUser(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.Authenticate(r.Context(), r)
			if err != nil {
				respondWithError(w, r, err)
				return
			}
			if userID == uuid.Nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := domain.NewContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser returns 401 unless WithUser stored a user id.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if domain.UserIDFromContext(r.Context()) == uuid.Nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
