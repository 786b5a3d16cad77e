package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/authz"
	httpapi "github.com/aussiebroadwan/authcore/internal/auth/http"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/postgres"
	authredis "github.com/aussiebroadwan/authcore/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	refresh    store.RefreshTokens
	redis      goredis.UniversalClient // nil unless refresh.store is redis
	keyManager *jwtx.KeyManager
	codec      *service.TokenCodec
	hasher     *cryptox.Hasher
	policy     *authz.Policy

	// Services
	sessions            *service.SessionManager
	identities          *service.IdentityService
	tenants             *service.TenantService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
		}),
	}

	if err := app.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if app.cfg.GeneratedSecret() {
		app.logger.Warn("no refresh secret configured, using a random one; refresh tokens will not survive a restart")
	}

	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.Password.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	policy, err := authz.LoadPolicy(app.cfg.Authz.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy: %w", err)
	}
	app.policy = policy

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRefreshStore(); err != nil {
		app.closeStores()
		return nil, err
	}

	keyManager, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if err := app.bootstrap(); err != nil {
		return err
	}

	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "addr", app.cfg.HTTP.Addr, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeStores()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// initDatabase opens the configured SQL store and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DB.Driver {
	case DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = postgres.NewStore(ctx, app.cfg.DB.DSN)
		cancel()
	default:
		db, err = sqlite.NewStore(sqliteDSN(app.cfg.DB.DSN))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DB.Driver)
	return nil
}

// sqliteDSN turns a bare file path into a DSN with WAL and a busy timeout.
// Anything that already looks like a DSN is passed through.
func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, ":memory:") {
		return dsn
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dsn)
}

// initRefreshStore picks where refresh records live: the SQL store by
// default, or Redis.
func (app *Application) initRefreshStore() error {
	if app.cfg.Refresh.Store != RefreshStoreRedis {
		app.refresh = app.db.RefreshTokens()
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     app.cfg.Redis.Addr,
		Password: app.cfg.Redis.Password,
		DB:       app.cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.redis = client
	app.refresh = authredis.NewRefreshTokens(client, app.cfg.Redis.Prefix)
	app.logger.Info("refresh records stored in redis", "addr", app.cfg.Redis.Addr)
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	codec, err := service.NewTokenCodec(app.keyManager, service.TokenConfig{
		Issuer:        app.cfg.Token.Issuer,
		RefreshSecret: []byte(app.cfg.Token.RefreshSecret),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	timeout := app.cfg.Store.Timeout

	app.sessions = &service.SessionManager{
		Store:   app.db,
		Records: app.refresh,
		Codec:   codec,
		Hasher:  app.hasher,
		Timeout: timeout,
	}
	app.identities = &service.IdentityService{
		Store:   app.db,
		Refresh: app.refresh,
		Hasher:  app.hasher,
		Timeout: timeout,
	}
	app.tenants = &service.TenantService{Store: app.db, Timeout: timeout}
	app.bootstrapService = &service.BootstrapService{
		Store:   app.db,
		Hasher:  app.hasher,
		Timeout: timeout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.refresh,
		app.logger,
		app.cfg.Housekeeping.Interval,
	)
	return nil
}

// bootstrap seeds the first administrator when credentials are configured.
func (app *Application) bootstrap() error {
	if app.cfg.Bootstrap.AdminEmail == "" {
		return nil
	}
	ctx := slogx.WithContext(context.Background(), app.logger)
	if _, err := app.bootstrapService.EnsureAdmin(ctx, app.cfg.Bootstrap.AdminEmail, app.cfg.Bootstrap.AdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.codec,
		app.policy,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Sessions = app.sessions
	router.Identities = app.identities
	router.Tenants = app.tenants
	router.Cookies = httpx.CookieConfig{
		Domain: app.cfg.HTTP.CookieDomain,
		Secure: app.cfg.HTTP.CookieSecure,
	}
	router.DisableRateLimit = app.cfg.RateLimit.Disabled
	router.RateLimits = app.cfg.RateLimit.RateLimits
	router.TrustProxy = app.cfg.HTTP.TrustProxy
	if rt, ok := app.refresh.(*authredis.RefreshTokens); ok {
		router.RefreshStore = rt
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
