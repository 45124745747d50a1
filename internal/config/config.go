package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	Pricing pricing.Settings
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
	}

	settings, err := pricingSettings(k)
	if err != nil {
		return nil, err
	}
	cfg.Pricing = settings

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// pricingSettings builds the immutable settings snapshot the calculator
// consumes. Every knob has a sensible default so a bare environment still
// yields a working pipeline.
func pricingSettings(k *koanf.Koanf) (pricing.Settings, error) {
	s := pricing.Settings{
		CurrencyDecimals:       int32(parseInt(k.String("CURRENCY_DECIMALS"), 2)),
		RoundDuringCalculation: parseBoolDefault(k.String("ROUND_DURING_CALCULATION"), true),
		IgnoreDiscounts:        parseBool(k.String("IGNORE_DISCOUNTS")),
		Tax: pricing.TaxSettings{
			ShippingTaxable:   parseBoolDefault(k.String("TAX_SHIPPING_TAXABLE"), true),
			PaymentFeeTaxable: parseBool(k.String("TAX_PAYMENT_FEE_TAXABLE")),
		},
		Shipping: pricing.ShippingSettings{
			FreeOverXEnabled:      parseBool(k.String("FREE_SHIPPING_OVER_X_ENABLED")),
			FreeOverXIncludingTax: parseBool(k.String("FREE_SHIPPING_OVER_X_INCLUDING_TAX")),
			AllowPickupInStore:    parseBool(k.String("ALLOW_PICKUP_IN_STORE")),
			IgnorePickupCharge:    parseBool(k.String("IGNORE_PICKUP_CHARGE")),
		},
		RewardPoints: pricing.RewardPointsSettings{
			Enabled:            parseBool(k.String("REWARD_POINTS_ENABLED")),
			MinimumPointsToUse: parseInt(k.String("REWARD_POINTS_MINIMUM_TO_USE"), 0),
			PointsForPoints:    parseInt(k.String("REWARD_POINTS_FOR_POINTS"), 1),
		},
	}

	var err error
	if s.Shipping.FreeOverXValue, err = parseDecimal(k.String("FREE_SHIPPING_OVER_X_VALUE"), "0"); err != nil {
		return pricing.Settings{}, fmt.Errorf("FREE_SHIPPING_OVER_X_VALUE: %w", err)
	}
	if s.RewardPoints.ExchangeRate, err = parseDecimal(k.String("REWARD_POINTS_EXCHANGE_RATE"), "0.01"); err != nil {
		return pricing.Settings{}, fmt.Errorf("REWARD_POINTS_EXCHANGE_RATE: %w", err)
	}
	if s.RewardPoints.PointsForAmount, err = parseDecimal(k.String("REWARD_POINTS_FOR_AMOUNT"), "10"); err != nil {
		return pricing.Settings{}, fmt.Errorf("REWARD_POINTS_FOR_AMOUNT: %w", err)
	}
	if s.RewardPoints.MinOrderTotalToAwardPoints, err = parseDecimal(k.String("REWARD_POINTS_MIN_ORDER_TOTAL"), "0"); err != nil {
		return pricing.Settings{}, fmt.Errorf("REWARD_POINTS_MIN_ORDER_TOTAL: %w", err)
	}
	return s, nil
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

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = fallback
	}
	return decimal.NewFromString(trimmed)
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
