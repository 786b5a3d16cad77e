package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/spf13/viper"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	RefreshStoreSQL   = "sql"
	RefreshStoreRedis = "redis"

	// MinRefreshSecretLen is the shortest HS256 secret accepted outside dev.
	MinRefreshSecretLen = 32
)

type Config struct {
	Env string `mapstructure:"env"` // dev, staging, prod

	HTTP struct {
		Addr         string `mapstructure:"addr"`
		CookieDomain string `mapstructure:"cookie_domain"`
		CookieSecure bool   `mapstructure:"cookie_secure"`
		TrustProxy   bool   `mapstructure:"trust_proxy"`
	} `mapstructure:"http"`

	Log struct {
		Level  string `mapstructure:"level"`  // debug, info, warn, error
		Format string `mapstructure:"format"` // json, text
	} `mapstructure:"log"`

	DB struct {
		Driver string `mapstructure:"driver"` // sqlite, postgres
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	Refresh struct {
		Store string `mapstructure:"store"` // sql, redis
	} `mapstructure:"refresh"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"redis"`

	Store struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"store"`

	Token struct {
		Issuer        string `mapstructure:"issuer"`
		RefreshSecret string `mapstructure:"refresh_secret"`
	} `mapstructure:"token"`

	Keys struct {
		Source  string `mapstructure:"source"` // file, pem, ephemeral
		Path    string `mapstructure:"path"`
		PEM     string `mapstructure:"pem"`
		RSABits int    `mapstructure:"rsa_bits"`
	} `mapstructure:"keys"`

	Password struct {
		PepperFile string `mapstructure:"pepper_file"`
	} `mapstructure:"password"`

	Authz struct {
		PolicyFile string `mapstructure:"policy_file"`
	} `mapstructure:"authz"`

	Bootstrap struct {
		AdminEmail    string `mapstructure:"admin_email"`
		AdminPassword string `mapstructure:"admin_password"`
	} `mapstructure:"bootstrap"`

	Housekeeping struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"housekeeping"`

	RateLimit struct {
		Disabled bool `mapstructure:"disabled"`

		httpx.RateLimits `mapstructure:",squash"`
	} `mapstructure:"ratelimit"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	// generatedSecret is set by Validate when a dev secret was made up.
	generatedSecret bool
}

// defaults lists every setting so AutomaticEnv can resolve it during Unmarshal,
// which only consults keys viper already knows about.
var defaults = map[string]any{
	"env":                      EnvDev,
	"http.addr":                ":8080",
	"http.cookie_domain":       "",
	"http.cookie_secure":       false,
	"http.trust_proxy":         false,
	"log.level":                "info",
	"log.format":               "json",
	"db.driver":                DriverSQLite,
	"db.dsn":                   "auth.db",
	"refresh.store":            RefreshStoreSQL,
	"redis.addr":               "localhost:6379",
	"redis.password":           "",
	"redis.db":                 0,
	"redis.prefix":             "authcore:refresh",
	"store.timeout":            5 * time.Second,
	"token.issuer":             "auth-service",
	"token.refresh_secret":     "",
	"keys.source":              "file",
	"keys.path":                "jwtRS256.key",
	"keys.pem":                 "",
	"keys.rsa_bits":            2048,
	"password.pepper_file":     "",
	"authz.policy_file":        "",
	"bootstrap.admin_email":    "",
	"bootstrap.admin_password": "",
	"housekeeping.interval":    time.Duration(0),
	"ratelimit.disabled":       false,
	"shutdown_grace_period":    10 * time.Second,
}

// LoadConfig reads AUTH_CONFIG_FILE when set, then overlays AUTH_* environment
// variables: token.refresh_secret is AUTH_TOKEN_REFRESH_SECRET and so on.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	setRateLimitDefaults(v, httpx.DefaultRateLimits())

	if err := v.BindEnv("config_file", "AUTH_CONFIG_FILE"); err != nil {
		return Config{}, err
	}
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setRateLimitDefaults(v *viper.Viper, d httpx.RateLimits) {
	for name, cfg := range map[string]httpx.RateLimitConfig{
		"strict":   d.Strict,
		"moderate": d.Moderate,
		"lenient":  d.Lenient,
		"public":   d.Public,
	} {
		v.SetDefault("ratelimit."+name+".requests", cfg.Requests)
		v.SetDefault("ratelimit."+name+".window", cfg.Window)
		v.SetDefault("ratelimit."+name+".burst", cfg.Burst)
	}
}

// Validate rejects settings the service cannot start with. In dev a missing
// refresh secret is replaced by a random one; tokens then die with the process.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("db.driver: unsupported %q (sqlite, postgres)", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn: required"))
	}

	switch c.Refresh.Store {
	case RefreshStoreSQL:
	case RefreshStoreRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr: required when refresh.store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("refresh.store: unsupported %q (sql, redis)", c.Refresh.Store))
	}

	if c.Token.RefreshSecret == "" && c.Env == EnvDev {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("generate refresh secret: %w", err)
		}
		c.Token.RefreshSecret = secret
		c.generatedSecret = true
	}
	if len(c.Token.RefreshSecret) < MinRefreshSecretLen {
		errs = append(errs, fmt.Errorf("token.refresh_secret: must be at least %d bytes", MinRefreshSecretLen))
	}

	if c.Bootstrap.AdminEmail == "" && c.Bootstrap.AdminPassword != "" {
		errs = append(errs, errors.New("bootstrap.admin_email: required when admin_password is set"))
	}

	if c.Housekeeping.Interval < 0 {
		errs = append(errs, errors.New("housekeeping.interval: must not be negative"))
	}

	return errors.Join(errs...)
}

// GeneratedSecret reports whether Validate made up the refresh secret.
func (c *Config) GeneratedSecret() bool { return c.generatedSecret }

func randomSecret() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize256)
}
