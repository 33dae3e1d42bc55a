package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Pricing holds the storefront pricing policy knobs. Defaults match the
// store's published rates.
type Pricing struct {
	CryptoDiscountPercent  decimal.Decimal
	RevolutDiscountPercent decimal.Decimal
	FreeShippingThreshold  decimal.Decimal
	StandardShippingRate   decimal.Decimal
	TaxRate                decimal.Decimal
	MinimumOrderAmount     decimal.Decimal
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string
	CatalogPath        string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	OrderInbox   string

	Pricing Pricing

	CartTTL         time.Duration
	IdempotencyTTL  time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Load reads configuration from environment variables and optional .env files.
// REDIS_URL is optional; without it carts live in process memory only.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CatalogPath:        valueOrDefault(k.String("CATALOG_PATH"), "catalog.json"),

		SMTPHost:     strings.TrimSpace(k.String("SMTP_HOST")),
		SMTPPort:     parseInt(k.String("SMTP_PORT"), 587),
		SMTPUsername: k.String("SMTP_USERNAME"),
		SMTPPassword: k.String("SMTP_PASSWORD"),
		EmailFrom:    valueOrDefault(k.String("EMAIL_FROM"), "orders@localhost"),
		OrderInbox:   strings.TrimSpace(k.String("ORDER_INBOX")),

		Pricing: Pricing{
			CryptoDiscountPercent:  parseDecimal(k.String("PRICING_CRYPTO_DISCOUNT_PERCENT"), "10"),
			RevolutDiscountPercent: parseDecimal(k.String("PRICING_REVOLUT_DISCOUNT_PERCENT"), "5"),
			FreeShippingThreshold:  parseDecimal(k.String("PRICING_FREE_SHIPPING_THRESHOLD"), "100"),
			StandardShippingRate:   parseDecimal(k.String("PRICING_STANDARD_SHIPPING_RATE"), "10"),
			TaxRate:                parseDecimal(k.String("PRICING_TAX_RATE"), "0.08"),
			MinimumOrderAmount:     parseDecimal(k.String("PRICING_MINIMUM_ORDER_AMOUNT"), "500"),
		},

		CartTTL:         parseDuration(k.String("CART_TTL"), "720h"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 10),
	}

	if cfg.SMTPHost != "" && cfg.OrderInbox == "" {
		return nil, fmt.Errorf("ORDER_INBOX is required when SMTP_HOST is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseDecimal(value, fallback string) decimal.Decimal {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := decimal.NewFromString(base)
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
