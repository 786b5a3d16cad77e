package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	VerifyAccess(token string) (*jwtx.Claims, error)
}

// VerifierFunc adapts a function to TokenVerifier.
type VerifierFunc func(token string) (*jwtx.Claims, error)

func (f VerifierFunc) VerifyAccess(token string) (*jwtx.Claims, error) { return f(token) }

// AccessTokenCookie is the cookie browsers carry the access token in.
const AccessTokenCookie = "accessToken"

type authnOptions struct {
	cookie  string
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

// AuthnOption configures AuthnMiddleware.
type AuthnOption func(*authnOptions)

// WithCookie also accepts the token from the named cookie when no
// Authorization header is present.
func WithCookie(name string) AuthnOption {
	return func(o *authnOptions) { o.cookie = name }
}

// WithErrorHandler replaces the default 401 response for verification
// failures. Missing tokens always get the default response.
func WithErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err error)) AuthnOption {
	return func(o *authnOptions) { o.onError = fn }
}

// AuthnMiddleware requires a valid access token and places its claims into
// the request context.
func AuthnMiddleware(v TokenVerifier, opts ...AuthnOption) Middleware {
	var o authnOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := BearerToken(r)
			if raw == "" && o.cookie != "" {
				if c, err := r.Cookie(o.cookie); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				WriteUnauthenticated(w, "missing access token")
				return
			}

			claims, err := v.VerifyAccess(raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("access token rejected", "err", err)
				if o.onError != nil {
					o.onError(w, r, err)
					return
				}
				WriteUnauthenticated(w, "token verification failed")
				return
			}

			ctx = slogx.With(ctx, "sub", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(ctx, claims)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// WriteUnauthenticated writes an RFC 6750 style 401.
func WriteUnauthenticated(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, &APIError{Status: http.StatusUnauthorized, Code: "unauthenticated", Description: desc})
}
