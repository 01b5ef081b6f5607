package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"custos/pkg/requestcontext"
)

// Claims represents the claims the core needs from a validated token: the
// resolved subject and, optionally, a distinct actor (operator) identifier.
// Credential verification happens upstream; this middleware only consumes
// an already-issued token.
type Claims struct {
	Subject string
	Actor   string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// writeJSONError writes a JSON error response with the given status code.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth resolves the authenticated subject from the Authorization
// header and stores it in the request context. Requests without a valid
// bearer token are rejected; this core never sees unauthenticated callers.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithSubject(ctx, claims.Subject)
			if claims.Actor != "" {
				ctx = requestcontext.WithActor(ctx, claims.Actor)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
