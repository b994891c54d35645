// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables plan cache and rate limiting
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type MercadoPagoConfig struct {
	AccessToken string        `yaml:"access_token"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Currency    string        `yaml:"currency"`
	PixExpiry   time.Duration `yaml:"pix_expiry"`
}

type PaymentConfig struct {
	MercadoPago MercadoPagoConfig `yaml:"mercadopago"`
}

type WebhookConfig struct {
	Secret string `yaml:"secret"`
	// RequireSignature rejects every callback while no secret is configured.
	// When false and the secret is empty, callbacks are trusted unverified.
	RequireSignature bool          `yaml:"require_signature"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
}

type SweeperConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	MaxAge     time.Duration `yaml:"max_age"`
	BatchSize  int           `yaml:"batch_size"`
}

type WhatsAppConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	APIKey     string `yaml:"api_key"`
	InstanceID string `yaml:"instance_id"`
}

type NotifyConfig struct {
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Workers  int            `yaml:"workers"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

type RateLimitConfig struct {
	CreateOrderPerWindow int           `yaml:"create_order_per_window"`
	Window               time.Duration `yaml:"window"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Notify    NotifyConfig    `yaml:"notify"`
	Sentry    SentryConfig    `yaml:"sentry"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the
// environment, applies defaults and validates required keys.
// The returned value is treated as immutable for the process lifetime.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// dev runs may be configured from the environment only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if dev {
		// a local .env never overrides variables already set in the process
		_ = godotenv.Load()
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overlay := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Database.URL, "DATABASE_URL")
	overlay(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	overlay(&cfg.Payment.MercadoPago.AccessToken, "MERCADOPAGO_ACCESS_TOKEN")
	overlay(&cfg.Webhook.Secret, "MERCADOPAGO_WEBHOOK_SECRET")
	overlay(&cfg.Sentry.DSN, "SENTRY_DSN")
	overlay(&cfg.Notify.WhatsApp.APIKey, "WASSUP_API_KEY")
	overlay(&cfg.Notify.WhatsApp.APIBaseURL, "WASSUP_API_BASE_URL")
	overlay(&cfg.Notify.WhatsApp.InstanceID, "WASSUP_INSTANCE_ID")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		cfg.HTTP.MaxBodyBytes = 64 << 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	mp := &cfg.Payment.MercadoPago
	if mp.BaseURL == "" {
		mp.BaseURL = "https://api.mercadopago.com"
	}
	if mp.Timeout <= 0 {
		mp.Timeout = 10 * time.Second
	}
	if mp.Currency == "" {
		mp.Currency = "BRL"
	}
	if mp.PixExpiry <= 0 {
		mp.PixExpiry = 30 * time.Minute
	}

	if cfg.Webhook.FetchTimeout <= 0 {
		cfg.Webhook.FetchTimeout = 10 * time.Second
	}

	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Minute
	}
	if cfg.Sweeper.StaleAfter <= 0 {
		cfg.Sweeper.StaleAfter = 5 * time.Minute
	}
	if cfg.Sweeper.MaxAge <= 0 {
		cfg.Sweeper.MaxAge = 2 * time.Hour
	}
	if cfg.Sweeper.BatchSize <= 0 {
		cfg.Sweeper.BatchSize = 100
	}

	if cfg.Notify.WhatsApp.InstanceID == "" {
		cfg.Notify.WhatsApp.InstanceID = "default"
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 2
	}

	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
}

// Validate checks the keys the service cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Payment.MercadoPago.AccessToken == "" {
		return errors.New("payment.mercadopago.access_token is required")
	}
	if c.RateLimit.CreateOrderPerWindow < 0 {
		return errors.New("ratelimit.create_order_per_window must not be negative")
	}
	return nil
}

// SignatureTrustMode reports whether webhooks will be accepted without verification.
func (c *Config) SignatureTrustMode() bool {
	return c.Webhook.Secret == "" && !c.Webhook.RequireSignature
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
