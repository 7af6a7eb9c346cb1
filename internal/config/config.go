package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Notion       NotionConfig       `yaml:"notion" mapstructure:"notion"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Subscription SubscriptionConfig `yaml:"subscription" mapstructure:"subscription"`
	Taxonomy     TaxonomyConfig     `yaml:"taxonomy" mapstructure:"taxonomy"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AuthConfig configures admin token issuance.
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer       string `yaml:"issuer" mapstructure:"issuer"`
	TokenTTLMins int    `yaml:"token_ttl_mins" mapstructure:"token_ttl_mins"`
}

// TokenTTL returns the token lifetime as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMins) * time.Minute
}

// CatalogConfig selects where suggestion content is read from.
type CatalogConfig struct {
	Source       string `yaml:"source" mapstructure:"source"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	// FailureThreshold consecutive load failures open the circuit.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// NotionConfig holds Notion API credentials and the catalog database ID.
type NotionConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	CatalogDB string  `yaml:"catalog_db" mapstructure:"catalog_db"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RetryConfig configures retries of catalog loads and reminder deliveries.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// SubscriptionConfig configures reminder subscriptions.
type SubscriptionConfig struct {
	RatePerMinute        float64 `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	Burst                int     `yaml:"burst" mapstructure:"burst"`
	ReminderIntervalDays int     `yaml:"reminder_interval_days" mapstructure:"reminder_interval_days"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// TaxonomyConfig optionally replaces the built-in category table.
type TaxonomyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PRIVACY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "privacy.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "privacy-assess")
	v.SetDefault("auth.token_ttl_mins", 60)
	v.SetDefault("catalog.source", "store")
	v.SetDefault("catalog.cache_ttl_secs", 30)
	v.SetDefault("catalog.failure_threshold", 5)
	v.SetDefault("catalog.reset_timeout_secs", 30)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.catalog_db", "")
	v.SetDefault("notion.rate_limit", 3)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("subscription.rate_per_minute", 6)
	v.SetDefault("subscription.burst", 3)
	v.SetDefault("subscription.reminder_interval_days", 90)
	v.SetDefault("subscription.check_interval_secs", 3600)
	v.SetDefault("subscription.webhook_url", "")
	v.SetDefault("taxonomy.path", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on and reports every
// problem at once. Modes: serve, migrate, report, catalog-import,
// catalog-sync, admin, questions.
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(msg string) { errs = append(errs, msg) }

	storeChecks := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			add("store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required")
		}
	}

	switch mode {
	case "serve":
		storeChecks()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server.port must be > 0 and <= 65535")
		}
		if len(c.Auth.JWTSecret) < 32 {
			add("auth.jwt_secret must be at least 32 characters")
		}
		if c.Auth.TokenTTLMins <= 0 {
			add("auth.token_ttl_mins must be > 0")
		}
		if c.Subscription.RatePerMinute <= 0 || c.Subscription.Burst <= 0 {
			add("subscription.rate_per_minute and subscription.burst must be > 0")
		}
		if c.Subscription.ReminderIntervalDays <= 0 {
			add("subscription.reminder_interval_days must be > 0")
		}
		if c.Subscription.CheckIntervalSecs <= 0 {
			add("subscription.check_interval_secs must be > 0")
		}
		c.catalogChecks(add)
	case "report":
		c.catalogChecks(add)
		if c.Catalog.Source == "store" {
			storeChecks()
		}
	case "migrate", "catalog-import", "admin", "questions":
		storeChecks()
	case "catalog-sync":
		storeChecks()
		c.notionChecks(add)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Retry.MaxAttempts < 1 {
		add("retry.max_attempts must be >= 1")
	}
	if c.Retry.InitialBackoffMs < 0 || c.Retry.MaxBackoffMs < c.Retry.InitialBackoffMs {
		add("retry backoff must satisfy 0 <= initial_backoff_ms <= max_backoff_ms")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) catalogChecks(add func(string)) {
	switch c.Catalog.Source {
	case "store":
	case "notion":
		c.notionChecks(add)
	default:
		add("catalog.source must be store or notion")
	}
	if c.Catalog.CacheTTLSecs < 0 {
		add("catalog.cache_ttl_secs must be >= 0")
	}
}

func (c *Config) notionChecks(add func(string)) {
	if c.Notion.Token == "" {
		add("notion.token is required")
	}
	if c.Notion.CatalogDB == "" {
		add("notion.catalog_db is required")
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
