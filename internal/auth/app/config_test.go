package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, RefreshStoreSQL, cfg.Refresh.Store)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "auth-service", cfg.Token.Issuer)
	assert.Equal(t, 2048, cfg.Keys.RSABits)
	assert.Zero(t, cfg.Housekeeping.Interval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	assert.Equal(t, httpx.DefaultRateLimits(), cfg.RateLimit.RateLimits)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("AUTH_ENV", "prod")
	t.Setenv("AUTH_HTTP_ADDR", ":9090")
	t.Setenv("AUTH_HTTP_COOKIE_SECURE", "true")
	t.Setenv("AUTH_DB_DRIVER", "postgres")
	t.Setenv("AUTH_DB_DSN", "postgres://auth@localhost/auth")
	t.Setenv("AUTH_REFRESH_STORE", "redis")
	t.Setenv("AUTH_REDIS_DB", "3")
	t.Setenv("AUTH_TOKEN_REFRESH_SECRET", testSecret)
	t.Setenv("AUTH_HOUSEKEEPING_INTERVAL", "30m")
	t.Setenv("AUTH_RATELIMIT_DISABLED", "true")
	t.Setenv("AUTH_RATELIMIT_STRICT_REQUESTS", "3")
	t.Setenv("AUTH_RATELIMIT_STRICT_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.CookieSecure)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "postgres://auth@localhost/auth", cfg.DB.DSN)
	assert.Equal(t, RefreshStoreRedis, cfg.Refresh.Store)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, testSecret, cfg.Token.RefreshSecret)
	assert.Equal(t, 30*time.Minute, cfg.Housekeeping.Interval)
	assert.True(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 3, cfg.RateLimit.Strict.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Strict.Window)
	assert.Equal(t, 5, cfg.RateLimit.Strict.Burst)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(file, []byte(strings.Join([]string{
		"http:",
		"  addr: \":7000\"",
		"token:",
		"  issuer: file-issuer",
		"keys:",
		"  source: ephemeral",
	}, "\n")), 0o600))

	t.Setenv("AUTH_CONFIG_FILE", file)
	t.Setenv("AUTH_TOKEN_ISSUER", "env-issuer")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "ephemeral", cfg.Keys.Source)
	assert.Equal(t, "env-issuer", cfg.Token.Issuer, "environment wins over the file")
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("AUTH_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		cfg.Env = EnvProd
		cfg.Token.RefreshSecret = testSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Token.RefreshSecret = "short" },
			wantErr: "token.refresh_secret",
		},
		{
			name:    "missing secret outside dev",
			mutate:  func(c *Config) { c.Token.RefreshSecret = "" },
			wantErr: "token.refresh_secret",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.DB.Driver = "mysql" },
			wantErr: "db.driver",
		},
		{
			name:    "empty dsn",
			mutate:  func(c *Config) { c.DB.DSN = "" },
			wantErr: "db.dsn",
		},
		{
			name:    "unknown refresh store",
			mutate:  func(c *Config) { c.Refresh.Store = "memcached" },
			wantErr: "refresh.store",
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Refresh.Store = RefreshStoreRedis
				c.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		{
			name:    "bootstrap password without email",
			mutate:  func(c *Config) { c.Bootstrap.AdminPassword = "admin-password" },
			wantErr: "bootstrap.admin_email",
		},
		{
			name:    "negative housekeeping",
			mutate:  func(c *Config) { c.Housekeeping.Interval = -time.Minute },
			wantErr: "housekeeping.interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateGeneratesDevSecret(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, EnvDev, cfg.Env)
	cfg.Token.RefreshSecret = ""

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.GeneratedSecret())
	assert.GreaterOrEqual(t, len(cfg.Token.RefreshSecret), MinRefreshSecretLen)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:auth.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", sqliteDSN("auth.db"))
	assert.Equal(t, "file:x.db?mode=ro", sqliteDSN("file:x.db?mode=ro"))
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
}

func TestNewServesHealth(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.DB.DSN = filepath.Join(dir, "auth.db")
	cfg.Keys.Source = "ephemeral"
	cfg.Keys.RSABits = 2048
	cfg.Password.PepperFile = filepath.Join(dir, "pepper")
	cfg.Bootstrap.AdminEmail = "root@example.com"
	cfg.Bootstrap.AdminPassword = "admin-password"

	application, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.closeStores() })

	require.NoError(t, application.bootstrap())

	for _, path := range []string{"/livez", "/readyz", "/.well-known/jwks.json"} {
		rec := httptest.NewRecorder()
		application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	_, err = os.Stat(cfg.Password.PepperFile)
	assert.NoError(t, err, "pepper file is created on first start")
}
