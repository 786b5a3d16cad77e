package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/authz"
	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"

	_ "github.com/aussiebroadwan/authcore/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	codec        *service.TokenCodec
	policy       *authz.Policy
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	// RefreshStore is pinged by /readyz when refresh records live outside
	// the main store.
	RefreshStore Pinger

	Cookies httpx.CookieConfig

	RateLimits       httpx.RateLimits
	DisableRateLimit bool

	// TrustProxy keys IP rate limits on X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	Sessions   *service.SessionManager
	Identities *service.IdentityService
	Tenants    *service.TenantService
}

func NewRouter(
	keys *jwtx.KeyManager,
	codec *service.TokenCodec,
	policy *authz.Policy,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		codec:        codec,
		policy:       policy,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		RateLimits:   httpx.DefaultRateLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTenants()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			authcore Identity Service API
//	@version		0.1.0
//	@description	Issues and rotates the tokens of a small identity provider and administers its users and tenants.
//	@description
//	@description				Access tokens are RS256 JWTs verifiable with the JWKS endpoint. Refresh tokens are HS256 JWTs and work once.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/authcore
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}". The accessToken cookie is also accepted.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// byIP limits per client address, or returns nil when rate limiting is
// disabled.
func (r *Router) byIP(cfg httpx.RateLimitConfig) httpx.Middleware {
	if r.DisableRateLimit {
		return nil
	}
	return httpx.RateLimitByIP(cfg, r.TrustProxy)
}

// byUser limits per authenticated subject; it must follow authn.
func (r *Router) byUser(cfg httpx.RateLimitConfig) httpx.Middleware {
	if r.DisableRateLimit {
		return nil
	}
	return httpx.RateLimitByUser(cfg, r.TrustProxy)
}

// authn verifies the access token from the header or cookie. A key source
// outage is a 500, not the caller's fault.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.codec,
		httpx.WithCookie(httpx.AccessTokenCookie),
		httpx.WithErrorHandler(func(w http.ResponseWriter, req *http.Request, err error) {
			if errors.Is(err, service.ErrKeySourceUnavailable) {
				writeServiceError(w, req, err)
				return
			}
			httpx.WriteUnauthenticated(w, "token verification failed")
		}),
	)
}

// guard protects an administrative operation with the authorization policy.
// Public operations skip authentication entirely.
func (r *Router) guard(op string, h http.Handler) http.Handler {
	if r.policy.IsPublic(op) {
		return httpx.Chain(h, r.byIP(r.RateLimits.Moderate))
	}
	return httpx.Chain(h,
		r.authn(),
		httpx.Authorize(func(c *jwtx.Claims) bool {
			return r.policy.Allowed(op, domain.Role(c.Role))
		}),
		r.byUser(r.RateLimits.Moderate),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.Sessions, Cookies: r.Cookies}

	// Credential endpoints - strict rate limit by IP (brute force prevention)
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			r.byIP(r.RateLimits.Strict),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.byIP(r.RateLimits.Strict),
		),
	)

	// POST /auth/refresh - moderate, the refresh token is its own credential
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			r.byIP(r.RateLimits.Moderate),
		),
	)

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(),
			r.byUser(r.RateLimits.Moderate),
		),
	)
	r.Mux.Handle("GET /auth/self",
		httpx.Chain(http.HandlerFunc(h.HandleSelf),
			r.authn(),
			r.byUser(r.RateLimits.Lenient),
		),
	)
}

func (r *Router) registerTenants() {
	h := &TenantsHandler{Tenants: r.Tenants}

	r.Mux.Handle("POST /tenants", r.guard(authz.OpTenantsCreate, http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /tenants", r.guard(authz.OpTenantsList, http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("GET /tenants/{id}", r.guard(authz.OpTenantsGet, http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PATCH /tenants/{id}", r.guard(authz.OpTenantsUpdate, http.HandlerFunc(h.HandleUpdate)))
	r.Mux.Handle("DELETE /tenants/{id}", r.guard(authz.OpTenantsDelete, http.HandlerFunc(h.HandleDelete)))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Identities: r.Identities}

	r.Mux.Handle("POST /users", r.guard(authz.OpUsersCreate, http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /users/{id}", r.guard(authz.OpUsersGet, http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PATCH /users/{id}", r.guard(authz.OpUsersUpdate, http.HandlerFunc(h.HandleUpdate)))
	r.Mux.Handle("DELETE /users/{id}", r.guard(authz.OpUsersDelete, http.HandlerFunc(h.HandleDelete)))
}

func (r *Router) registerSystem() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			r.byIP(r.RateLimits.Public),
		),
	)

	health := &HealthHandlers{
		Started: r.startTime,
		Version: r.buildVersion,
		DB:      r.store,
		Refresh: r.RefreshStore,
		Keys:    r.keys,
	}
	// Probes poll often, so they share the lenient profile.
	r.Mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(health.HandleLivez), r.byIP(r.RateLimits.Lenient)))
	r.Mux.Handle("GET /readyz", httpx.Chain(http.HandlerFunc(health.HandleReadyz), r.byIP(r.RateLimits.Lenient)))
}
