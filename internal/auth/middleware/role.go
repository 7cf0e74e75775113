package middleware

import (
	"net/http"
	"slices"
)

// RequireRole allows the request only if the token role is one of roles.
// It must be mounted after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, MsgMissingToken)
				return
			}

			if !slices.Contains(roles, claims.Role) {
				writeError(w, http.StatusForbidden, MsgForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
