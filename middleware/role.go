package middleware

import (
	"net/http"

	"cmrp/models"
)

// RequireRole only lets through principals holding one of roles. It must run after
// RequireAuth; a request without a principal is treated as unauthenticated.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}
			if !allowed[p.Role] {
				respondWithError(w, http.StatusForbidden, "Forbidden", "Insufficient role for this endpoint")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
