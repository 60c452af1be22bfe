package middleware

import (
	"net/http"
	"slices"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/response"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
)

// RequireRole admits only actors whose role claim is one of roles. Listing
// routes do not use it: an unknown role there is narrowed by the visibility
// policy instead of being rejected.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			role := claims.ActorRole()
			if !slices.Contains(roles, role) {
				observability.RecordRoleAuthorizationEvent(r.Context(), roleLabel(role), "deny")
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			observability.RecordRoleAuthorizationEvent(r.Context(), roleLabel(role), "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func roleLabel(r domain.Role) string {
	if r.Known() {
		return string(r)
	}
	return "unknown"
}
