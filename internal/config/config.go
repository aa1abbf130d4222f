package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sportiz/internal/logger"
)

// DefaultLeagueIDs are the TheSportsDB leagues whose next fixtures are aggregated
var DefaultLeagueIDs = []string{"4328", "4329", "4335", "4331", "4332", "4334", "4346"}

// Storage drivers
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Config holds all application configuration loaded from environment variables
type Config struct {
	// Storage configuration
	StorageDriver string
	DatabasePath  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SecureStoreKey seals the session token at rest
	SecureStoreKey string

	// Fixture source configuration
	SportsDBBaseURL     string
	LeagueIDs           []string
	HTTPTimeout         time.Duration
	FetchConcurrency    int
	LookupCacheSize     int
	LookupCacheTTL      time.Duration
	IncludeSupplemental bool
	RefreshInterval     time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config instance
func Load() (*Config, error) {
	cfg := &Config{
		StorageDriver: strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", StorageSQLite)),
		DatabasePath:  getEnvOrDefault("DATABASE_PATH", "./data/sportiz.db"),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		// Required
		SecureStoreKey: os.Getenv("SECURE_STORE_KEY"),

		SportsDBBaseURL: strings.TrimRight(getEnvOrDefault("SPORTSDB_BASE_URL", "https://www.thesportsdb.com/api/v1/json/3"), "/"),
		LeagueIDs:       splitList(getEnvOrDefault("SPORTSDB_LEAGUE_IDS", strings.Join(DefaultLeagueIDs, ","))),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnvOrDefault("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB format: %w", err)
	}
	if cfg.HTTPTimeout, err = time.ParseDuration(getEnvOrDefault("HTTP_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT format: %w", err)
	}
	if cfg.FetchConcurrency, err = strconv.Atoi(getEnvOrDefault("FETCH_CONCURRENCY", "4")); err != nil {
		return nil, fmt.Errorf("invalid FETCH_CONCURRENCY format: %w", err)
	}
	if cfg.LookupCacheSize, err = strconv.Atoi(getEnvOrDefault("LOOKUP_CACHE_SIZE", "256")); err != nil {
		return nil, fmt.Errorf("invalid LOOKUP_CACHE_SIZE format: %w", err)
	}
	if cfg.LookupCacheTTL, err = time.ParseDuration(getEnvOrDefault("LOOKUP_CACHE_TTL", "10m")); err != nil {
		return nil, fmt.Errorf("invalid LOOKUP_CACHE_TTL format: %w", err)
	}
	if cfg.IncludeSupplemental, err = strconv.ParseBool(getEnvOrDefault("INCLUDE_SUPPLEMENTAL", "true")); err != nil {
		return nil, fmt.Errorf("invalid INCLUDE_SUPPLEMENTAL format: %w", err)
	}
	if cfg.RefreshInterval, err = time.ParseDuration(getEnvOrDefault("REFRESH_INTERVAL", "5m")); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL format: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration values are present and valid
func (c *Config) Validate() error {
	if c.SecureStoreKey == "" {
		return fmt.Errorf("SECURE_STORE_KEY environment variable is required")
	}

	switch c.StorageDriver {
	case StorageSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH cannot be empty")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty when STORAGE_DRIVER is redis")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageSQLite, StorageRedis, c.StorageDriver)
	}

	if c.SportsDBBaseURL == "" {
		return fmt.Errorf("SPORTSDB_BASE_URL cannot be empty")
	}
	if len(c.LeagueIDs) == 0 {
		return fmt.Errorf("SPORTSDB_LEAGUE_IDS must list at least one league")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	if c.LookupCacheSize <= 0 {
		return fmt.Errorf("LOOKUP_CACHE_SIZE must be positive, got %d", c.LookupCacheSize)
	}
	if c.LookupCacheTTL <= 0 {
		return fmt.Errorf("LOOKUP_CACHE_TTL must be positive, got %s", c.LookupCacheTTL)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}

	return nil
}

// LogConfiguration logs all loaded configuration values, excluding secrets
func (c *Config) LogConfiguration(log *logger.Logger) {
	log.Info("application configuration", map[string]interface{}{
		"storage_driver":    c.StorageDriver,
		"database_path":     c.DatabasePath,
		"redis_addr":        c.RedisAddr,
		"redis_password":    maskSecret(c.RedisPassword),
		"secure_store_key":  maskSecret(c.SecureStoreKey),
		"sportsdb_base_url": c.SportsDBBaseURL,
		"league_ids":        strings.Join(c.LeagueIDs, ","),
		"http_timeout":      c.HTTPTimeout.String(),
		"fetch_concurrency": c.FetchConcurrency,
		"lookup_cache_size": c.LookupCacheSize,
		"lookup_cache_ttl":  c.LookupCacheTTL.String(),
		"supplemental":      c.IncludeSupplemental,
		"refresh_interval":  c.RefreshInterval.String(),
		"log_level":         c.LogLevel,
	})

	if c.StorageDriver == StorageRedis && c.RedisPassword == "" {
		log.Warn("REDIS_PASSWORD not set - connecting to redis without authentication", nil)
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma separated list, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// maskSecret masks a secret string for logging, showing only first 4 characters
func maskSecret(secret string) string {
	if secret == "" {
		return "[not set]"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
