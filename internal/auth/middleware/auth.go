// Package middleware gates routes on bearer tokens and roles
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dealerreferral/backend/internal/auth/service"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "claims"

// Error messages written by the auth middleware
const (
	MsgMissingToken = "token not provided"
	MsgInvalidToken = "invalid token"
	MsgForbidden    = "access denied: insufficient role"
)

// TokenValidator verifies a raw token string
type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

// RevocationChecker reports whether a token id was revoked (for example on logout)
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RequireAuth validates the bearer token and stores its claims in the request context
//
// revocations may be nil, in which case every well-signed unexpired token is accepted.
func RequireAuth(validator TokenValidator, revocations RevocationChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, MsgMissingToken)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				if errors.Is(err, service.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, service.ErrTokenExpired.Error())
					return
				}
				writeError(w, http.StatusUnauthorized, MsgInvalidToken)
				return
			}

			if revocations != nil && claims.RegisteredClaims.ID != "" {
				revoked, err := revocations.IsRevoked(r.Context(), claims.RegisteredClaims.ID)
				if err != nil {
					logger.Error("failed to check token revocation", zap.Int("userId", claims.ID), zap.Error(err))
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if revoked {
					writeError(w, http.StatusUnauthorized, MsgInvalidToken)
					return
				}
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetClaims retrieves the verified claims from context
func GetClaims(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.Claims)
	return claims, ok && claims != nil
}

// WithClaims returns a context carrying claims, as RequireAuth does
func WithClaims(ctx context.Context, claims *service.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
