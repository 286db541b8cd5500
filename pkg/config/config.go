package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Declaration stores
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Env            string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Database configuration. Zero pool values use the pool defaults.
	DatabaseURL              string
	DatabaseMaxConns         int
	DatabaseMinConns         int
	DatabaseMaxConnLifetime  time.Duration
	DatabaseMaxConnIdleTime  time.Duration
	DatabaseStatementTimeout time.Duration

	// DeclarationStore selects where distribution declarations are kept
	DeclarationStore string
	// SQLitePath is the database file used when DeclarationStore is sqlite
	SQLitePath string

	// Redis configuration
	RedisURL       string
	RedisPassword  string
	ReportCacheTTL time.Duration

	// JWT configuration
	JWTSecret string

	// Kafka configuration; no brokers disables event publishing
	KafkaBrokers []string
	KafkaTopic   string

	// Case source API. When set, snapshots come from it instead of the database.
	CaseSourceURL        string
	CaseSourceAPIKey     string
	CaseSourceMaxRetries int

	// StatementLayoutPath is an optional YAML or TOML layout file
	StatementLayoutPath string

	// MetricsEnabled exposes /metrics
	MetricsEnabled bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first if present; real environment wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		Env:                      getEnv("ENV", "development"),
		AllowedOrigins:           getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:             getEnvAsFloat("RATE_LIMIT_RPS", 100),
		RateLimitBurst:           getEnvAsInt("RATE_LIMIT_BURST", 20),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:         getEnvAsInt("DATABASE_MAX_CONNS", 0),
		DatabaseMinConns:         getEnvAsInt("DATABASE_MIN_CONNS", 0),
		DatabaseMaxConnLifetime:  getEnvAsDuration("DATABASE_MAX_CONN_LIFETIME", 0),
		DatabaseMaxConnIdleTime:  getEnvAsDuration("DATABASE_MAX_CONN_IDLE_TIME", 0),
		DatabaseStatementTimeout: getEnvAsDuration("DATABASE_STATEMENT_TIMEOUT", 30*time.Second),
		DeclarationStore:         getEnv("DECLARATION_STORE", StorePostgres),
		SQLitePath:               getEnv("SQLITE_PATH", "caseledger.db"),
		RedisURL:                 getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		ReportCacheTTL:           getEnvAsDuration("REPORT_CACHE_TTL", 60*time.Second),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		KafkaBrokers:             getEnvAsList("KAFKA_BROKERS", nil),
		KafkaTopic:               getEnv("KAFKA_TOPIC", "distribution_events"),
		CaseSourceURL:            getEnv("CASE_SOURCE_URL", ""),
		CaseSourceAPIKey:         getEnv("CASE_SOURCE_API_KEY", ""),
		CaseSourceMaxRetries:     getEnvAsInt("CASE_SOURCE_MAX_RETRIES", 3),
		StatementLayoutPath:      getEnv("STATEMENT_LAYOUT_PATH", ""),
		MetricsEnabled:           getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	switch c.DeclarationStore {
	case StorePostgres, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("DECLARATION_STORE must be one of postgres, sqlite, memory")
	}

	if c.DatabaseURL == "" && c.NeedsDatabase() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DatabaseMaxConns < 0 || c.DatabaseMinConns < 0 {
		return fmt.Errorf("DATABASE_MAX_CONNS and DATABASE_MIN_CONNS must not be negative")
	}

	if c.DatabaseMaxConns > 0 && c.DatabaseMinConns > c.DatabaseMaxConns {
		return fmt.Errorf("DATABASE_MIN_CONNS must not exceed DATABASE_MAX_CONNS")
	}

	if c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.CaseSourceMaxRetries < 0 {
		return fmt.Errorf("CASE_SOURCE_MAX_RETRIES must not be negative")
	}

	if c.ReportCacheTTL <= 0 {
		return fmt.Errorf("REPORT_CACHE_TTL must be positive")
	}

	return nil
}

// NeedsDatabase reports whether Postgres backs snapshots or declarations
func (c *Config) NeedsDatabase() bool {
	return c.CaseSourceURL == "" || c.DeclarationStore == StorePostgres
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
