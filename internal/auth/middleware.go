package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenCookie is the name of the HttpOnly cookie carrying the JWT for
// browser clients. API clients may instead send an
// "Authorization: Bearer <token>" header.
const TokenCookie = "token"

// RequireAuth enforces authentication on protected routes. A missing or
// invalid token stops the chain with 401; otherwise the user id is
// stored in the request context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth extracts the user identity when a valid token is present
// but never blocks the request. Used on public routes whose responses
// vary for signed-in users, such as the gated content endpoint where a
// free product is visible to everyone.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithUserID returns a context carrying the authenticated user
// id.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or ("", false)
// for an anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the token from the Authorization header or the
// cookie, preferring the header, and validates it.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return tokens.Validate(strings.TrimPrefix(header, "Bearer "))
	}

	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
