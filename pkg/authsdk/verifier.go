package authsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"golang.org/x/time/rate"
)

// ErrNotAccessToken is returned when a correctly signed token carries a jti,
// which only refresh tokens do.
var ErrNotAccessToken = errors.New("authsdk: not an access token")

// JWKSFetcher loads the service's published keys. *SDKClient implements it.
type JWKSFetcher interface {
	FetchJWKS(ctx context.Context) (jwtx.JWKS, error)
}

// Verifier checks access tokens on a resource server against the service's
// JWKS. When a token names a kid it has not seen it refetches the key set,
// at most once per MinRefreshInterval.
type Verifier struct {
	fetcher  JWKSFetcher
	keys     *jwtx.KeySet
	verifier *jwtx.RS256Verifier
	limiter  *rate.Limiter
	timeout  time.Duration

	mu sync.Mutex // serializes refetches
}

// DefaultMinRefreshInterval bounds how often unknown kids trigger a refetch.
const DefaultMinRefreshInterval = time.Minute

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithMinRefreshInterval overrides DefaultMinRefreshInterval.
func WithMinRefreshInterval(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// WithFetchTimeout bounds each JWKS fetch. The default is 5s.
func WithFetchTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.timeout = d }
}

// NewVerifier builds a Verifier for tokens issued by issuer. Keys are fetched
// lazily on the first verification, or eagerly with Refresh.
func NewVerifier(fetcher JWKSFetcher, issuer string, opts ...VerifierOption) *Verifier {
	keys := jwtx.NewKeySet()
	v := &Verifier{
		fetcher:  fetcher,
		keys:     keys,
		verifier: jwtx.NewVerifierRS256(keys, issuer),
		limiter:  rate.NewLimiter(rate.Every(DefaultMinRefreshInterval), 1),
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Refresh replaces the cached key set with a fresh copy.
func (v *Verifier) Refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	jwks, err := v.fetcher.FetchJWKS(ctx)
	if err != nil {
		return fmt.Errorf("authsdk: fetch jwks: %w", err)
	}
	return v.keys.ResetFromJWKS(jwks)
}

// VerifyAccess validates an RS256 access token. It satisfies
// httpx.TokenVerifier.
func (v *Verifier) VerifyAccess(token string) (*jwtx.Claims, error) {
	claims, err := v.verifier.Verify(token)
	if errors.Is(err, jwtx.ErrUnknownKID) && v.limiter.Allow() {
		if rerr := v.Refresh(context.Background()); rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		claims, err = v.verifier.Verify(token)
	}
	if err != nil {
		return nil, err
	}
	if claims.ID != "" {
		return nil, ErrNotAccessToken
	}
	return claims, nil
}

// Middleware requires a valid access token, from the Authorization header or
// the accessToken cookie, and places its claims into the request context.
// Read them back with httpx.ClaimsFromContext.
func (v *Verifier) Middleware(opts ...httpx.AuthnOption) httpx.Middleware {
	opts = append([]httpx.AuthnOption{httpx.WithCookie(httpx.AccessTokenCookie)}, opts...)
	return httpx.AuthnMiddleware(v, opts...)
}
