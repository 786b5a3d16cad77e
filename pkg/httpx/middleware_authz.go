package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// Authorize lets the request through when allow accepts the caller's claims.
// It must run after AuthnMiddleware; a request without claims is a 401.
func Authorize(allow func(*jwtx.Claims) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				WriteUnauthenticated(w, "missing access token")
				return
			}
			if !allow(claims) {
				WriteForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRole requires the caller's role to equal one of roles exactly.
func RequireAnyRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return Authorize(func(c *jwtx.Claims) bool {
		_, ok := want[c.Role]
		return ok
	})
}

// WriteForbidden writes a 403.
func WriteForbidden(w http.ResponseWriter) {
	WriteError(w, &APIError{Status: http.StatusForbidden, Code: "forbidden", Description: "insufficient role"})
}
