package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env       string
	LogLevel  string
	Server    ServerConfig
	Database  DatabaseConfig
	Stripe    StripeConfig
	Checkout  CheckoutConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	SMTP      SMTPConfig
	NATS      NATSConfig
	Sentry    SentryConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Host            string
	Port            uint16
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	TimeoutSeconds int
	MaxRetries     int
	Currency       string
}

// CheckoutConfig controls redirect paths and gateway resilience.
type CheckoutConfig struct {
	SuccessPath string
	CancelPath  string

	GatewayTimeout      time.Duration
	BreakerFailures     uint32
	BreakerOpenDuration time.Duration
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

type WorkerConfig struct {
	PollInterval time.Duration
	Concurrency  int
}

// IsProduction reports whether Env is prod.
func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

var defaults = map[string]any{
	"ENV":       "dev",
	"LOG_LEVEL": "info",

	"HOST":             "",
	"PORT":             3000,
	"BASE_URL":         "http://localhost:3000",
	"READ_TIMEOUT":     "15s",
	"WRITE_TIMEOUT":    "30s",
	"IDLE_TIMEOUT":     "60s",
	"SHUTDOWN_TIMEOUT": "20s",

	"DATABASE_URL":       "",
	"DATABASE_MAX_CONNS": 10,

	"STRIPE_SECRET_KEY":      "",
	"STRIPE_WEBHOOK_SECRET":  "",
	"STRIPE_TIMEOUT_SECONDS": 10,
	"STRIPE_MAX_RETRIES":     2,
	"STRIPE_CURRENCY":        "usd",

	"CHECKOUT_SUCCESS_PATH":     "/checkout/success",
	"CHECKOUT_CANCEL_PATH":      "/cart",
	"GATEWAY_TIMEOUT":           "10s",
	"GATEWAY_BREAKER_FAILURES":  5,
	"GATEWAY_BREAKER_OPEN_TIME": "30s",

	"JWT_SECRET": "",
	"JWT_ISSUER": "storefront",

	"RATE_LIMIT_RPS":   10,
	"RATE_LIMIT_BURST": 20,

	"CORS_ALLOWED_ORIGINS": "",

	"SMTP_HOST":       "",
	"SMTP_PORT":       587,
	"SMTP_USERNAME":   "",
	"SMTP_PASSWORD":   "",
	"SMTP_FROM":       "orders@storefront.local",
	"EMAIL_FROM_NAME": "Storefront",

	"NATS_URL":            "",
	"NATS_SUBJECT_PREFIX": "storefront",

	"SENTRY_DSN":                "",
	"SENTRY_ENABLED":            false,
	"SENTRY_ENVIRONMENT":        "development",
	"SENTRY_RELEASE":            "",
	"SENTRY_SAMPLE_RATE":        1.0,
	"SENTRY_TRACES_SAMPLE_RATE": 0.0,
	"SENTRY_DEBUG":              false,

	"WORKER_POLL_INTERVAL": "1s",
	"WORKER_CONCURRENCY":   5,
}

func NewConfig() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		Env:      strings.ToLower(v.GetString("ENV")),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		Server: ServerConfig{
			Host:            v.GetString("HOST"),
			Port:            v.GetUint16("PORT"),
			BaseURL:         v.GetString("BASE_URL"),
			ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt32("DATABASE_MAX_CONNS"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
			TimeoutSeconds: v.GetInt("STRIPE_TIMEOUT_SECONDS"),
			MaxRetries:     v.GetInt("STRIPE_MAX_RETRIES"),
			Currency:       strings.ToLower(v.GetString("STRIPE_CURRENCY")),
		},
		Checkout: CheckoutConfig{
			SuccessPath:         v.GetString("CHECKOUT_SUCCESS_PATH"),
			CancelPath:          v.GetString("CHECKOUT_CANCEL_PATH"),
			GatewayTimeout:      v.GetDuration("GATEWAY_TIMEOUT"),
			BreakerFailures:     v.GetUint32("GATEWAY_BREAKER_FAILURES"),
			BreakerOpenDuration: v.GetDuration("GATEWAY_BREAKER_OPEN_TIME"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			FromName: v.GetString("EMAIL_FROM_NAME"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Sentry: SentryConfig{
			DSN:              v.GetString("SENTRY_DSN"),
			Enabled:          v.GetBool("SENTRY_ENABLED"),
			Environment:      v.GetString("SENTRY_ENVIRONMENT"),
			Release:          v.GetString("SENTRY_RELEASE"),
			SampleRate:       v.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: v.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Debug:            v.GetBool("SENTRY_DEBUG"),
		},
		Worker: WorkerConfig{
			PollInterval: v.GetDuration("WORKER_POLL_INTERVAL"),
			Concurrency:  v.GetInt("WORKER_CONCURRENCY"),
		},
	}

	// Validate env
	if cfg.Env != "dev" && cfg.Env != "prod" {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil || cfg.LogLevel == "" {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	} else if c.IsProduction() && strings.HasPrefix(c.Stripe.SecretKey, "sk_test_") {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY must be a live key in production"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.Server.Port == 0 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.Sentry.Enabled && c.Sentry.DSN == "" {
		errs = append(errs, errors.New("SENTRY_DSN is required when SENTRY_ENABLED is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// loadDotEnv loads .env from the working directory or up to two parents.
// A missing file is not an error.
func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}
	dir, _ := os.Getwd()
	for i := 0; i < 2; i++ {
		dir = filepath.Join(dir, "..")
		if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
			return
		}
	}
	slog.Default().Debug(".env file not found, using environment variables and defaults")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
