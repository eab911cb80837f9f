package middleware

import (
	"net/http"
	"strings"

	"github.com/jmtsu/supablog/internal/auth"
	"github.com/jmtsu/supablog/internal/respond"
)

// RequireAuth guards a route group behind bearer-token verification. Expired
// and forged tokens produce the same response body. A nil verifier (JWT secret
// not configured) rejects every well-formed token the same way.
func RequireAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respond.Error(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || token == "" {
				respond.Error(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}
			if !strings.EqualFold(scheme, "Bearer") {
				respond.Error(w, http.StatusUnauthorized, "Invalid authorization scheme")
				return
			}

			if verifier == nil {
				respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			identity := Identity{
				UserID:   claims.Subject,
				Email:    claims.Email,
				Metadata: claims.Metadata,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
