package middleware

import (
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-reservation/internal/auth"
	"github.com/wolfman30/clinic-reservation/internal/http/respond"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Authenticate requires a valid session token. The Authorization header wins
// over the cookie when both are present.
func Authenticate(verifier TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "authentication disabled")
				return
			}
			tokenString := tokenFromRequest(r, cookieName)
			if tokenString == "" {
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "authentication required")
				return
			}
			principal, err := verifier.Verify(tokenString)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects authenticated callers lacking role with 403.
// It must run after Authenticate.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "authentication required")
				return
			}
			if principal.Role != role {
				respond.Error(w, http.StatusForbidden, respond.CodeForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
