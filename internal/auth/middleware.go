package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/user-service/internal/apperror"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of type contextKey, so no other package
// can read or shadow the user ID stored here.
type contextKey string

const userIDKey contextKey = "userID"

// ErrorWriter renders an authentication failure. The handler package passes
// its envelope writer so 401s look like every other API error.
type ErrorWriter func(w http.ResponseWriter, err error)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header, validates
// it, and stores the user ID in the request context. If the token is missing
// or invalid, it writes an Unauthorized error and stops the request chain.
func RequireAuth(tokens *TokenService, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				writeErr(w, apperror.Unauthorized("valid authentication required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
// Returns (0, false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// extractUserID reads the bearer token and validates it.
func extractUserID(r *http.Request, tokens *TokenService) (int64, error) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return 0, apperror.Unauthorized("missing bearer token")
	}
	return tokens.Validate(strings.TrimSpace(token))
}
