package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	JWTTTL    time.Duration
	// CORSAllowedHosts are origin hosts (host[:port]) allowed by CORS.
	CORSAllowedHosts []string

	DB       DatabaseConfig
	Redis    RedisConfig
	Pricing  PricingConfig
	Currency CurrencyConfig
	Catalog  CatalogConfig
	Worker   WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PricingConfig holds the default markup/tax figures used to seed the
// pricing rule the first time the service starts against an empty database.
type PricingConfig struct {
	CompanyMarkupPercent decimal.Decimal
	AgentMarkupPercent   decimal.Decimal
	TaxPercent           decimal.Decimal
}

// CurrencyConfig contains the accounting currency all prices are normalized to.
type CurrencyConfig struct {
	Accounting string
	// Rates maps a currency code to the accounting-currency value of one unit.
	Rates map[string]decimal.Decimal
}

// CatalogConfig contains catalog lookup parameters.
type CatalogConfig struct {
	DefaultVehicleCapacity int
	RateCacheTTL           time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	RateCacheWarmInterval time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedHosts = splitList(getEnv("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000"))

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Currency = CurrencyConfig{
		Accounting: strings.ToUpper(getEnv("ACCOUNTING_CURRENCY", "USD")),
	}

	var err error
	if cfg.Currency.Rates, err = parseRates(getEnv("CURRENCY_RATES", "")); err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_RATES: %w", err)
	}
	if cfg.Pricing.CompanyMarkupPercent, err = parsePercentEnv("COMPANY_MARKUP_PERCENT", "10"); err != nil {
		return nil, fmt.Errorf("invalid COMPANY_MARKUP_PERCENT: %w", err)
	}
	if cfg.Pricing.AgentMarkupPercent, err = parsePercentEnv("AGENT_MARKUP_PERCENT", "0"); err != nil {
		return nil, fmt.Errorf("invalid AGENT_MARKUP_PERCENT: %w", err)
	}
	if cfg.Pricing.TaxPercent, err = parsePercentEnv("TAX_PERCENT", "5"); err != nil {
		return nil, fmt.Errorf("invalid TAX_PERCENT: %w", err)
	}

	cfg.Catalog.DefaultVehicleCapacity = getEnvInt("DEFAULT_VEHICLE_CAPACITY", 4)
	if cfg.Catalog.DefaultVehicleCapacity < 1 {
		return nil, errors.New("DEFAULT_VEHICLE_CAPACITY must be >= 1")
	}
	if cfg.Catalog.RateCacheTTL, err = parseDurationEnv("RATE_CACHE_TTL", "10m"); err != nil {
		return nil, fmt.Errorf("invalid RATE_CACHE_TTL: %w", err)
	}
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	// Workers (durations)
	if cfg.Worker.RateCacheWarmInterval, err = parseDurationEnv("RATE_CACHE_WARM_INTERVAL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid RATE_CACHE_WARM_INTERVAL: %w", err)
	}

	// Basic validation for DB parameters
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

// parsePercentEnv reads a percentage as an exact decimal.
func parsePercentEnv(key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, def))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("percent must be >= 0")
	}
	return d, nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToLower(item))
		}
	}
	return out
}

// parseRates parses "EUR=1.08,SGD=0.74" into a code to rate map.
func parseRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected CODE=RATE, got %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return rates, nil
}
