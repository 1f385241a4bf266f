package middleware

import (
	"net/http"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/handler"
)

type contextKey string

// respondWithError logs the failure on the request logger and writes the
// same error body handlers use.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := handler.ErrorCodeToHTTPStatus(code)

	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if status >= http.StatusInternalServerError {
		GetLogger(r.Context()).ErrorContext(r.Context(), "middleware error", attrs...)
	} else {
		GetLogger(r.Context()).InfoContext(r.Context(), "middleware error", attrs...)
	}

	handler.ErrorResponse(w, r, err)
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.ErrUnauthenticated)
}

func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Errorf(domain.ERATELIMIT, "", "Too many requests"))
}
