package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sandeepkv93/admin-listing-engine/internal/http/response"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
	"github.com/sandeepkv93/admin-listing-engine/internal/security"
)

type contextKey string

const (
	ClaimsContextKey      contextKey = "claims"
	TokenSourceContextKey contextKey = "token_source"
)

const (
	TokenSourceHeader = "header"
	TokenSourceCookie = "cookie"
)

// AccessTokenFromRequest returns the bearer token, falling back to the access
// token cookie, and where it was found.
func AccessTokenFromRequest(r *http.Request) (string, string) {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		if raw := strings.TrimSpace(auth[7:]); raw != "" {
			return raw, TokenSourceHeader
		}
	}
	if raw := security.GetCookie(r, security.AccessTokenCookie); raw != "" {
		return raw, TokenSourceCookie
	}
	return "", ""
}

func AuthMiddleware(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, source := AccessTokenFromRequest(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			claims, err := jwtMgr.ParseAccessToken(raw)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", source)
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			ctx = context.WithValue(ctx, TokenSourceContextKey, source)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

func TokenSourceFromContext(ctx context.Context) string {
	s, _ := ctx.Value(TokenSourceContextKey).(string)
	return s
}
