package config

import (
	"bytes"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"sportiz/internal/logger"
)

func TestLoad_ValidConfiguration(t *testing.T) {
	clearEnv()
	os.Setenv("SECURE_STORE_KEY", "device-secret")
	os.Setenv("STORAGE_DRIVER", "Redis")
	os.Setenv("REDIS_ADDR", "cache:6380")
	os.Setenv("REDIS_DB", "2")
	os.Setenv("SPORTSDB_BASE_URL", "http://localhost:9999/api/")
	os.Setenv("SPORTSDB_LEAGUE_IDS", "4328, 4329,,4335")
	os.Setenv("HTTP_TIMEOUT", "3s")
	os.Setenv("FETCH_CONCURRENCY", "2")
	os.Setenv("LOOKUP_CACHE_SIZE", "16")
	os.Setenv("LOOKUP_CACHE_TTL", "1m")
	os.Setenv("INCLUDE_SUPPLEMENTAL", "false")
	os.Setenv("REFRESH_INTERVAL", "30s")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed with valid config: %v", err)
	}

	if cfg.StorageDriver != StorageRedis {
		t.Errorf("StorageDriver = %s, want redis", cfg.StorageDriver)
	}
	if cfg.RedisAddr != "cache:6380" {
		t.Errorf("RedisAddr = %s, want cache:6380", cfg.RedisAddr)
	}
	if cfg.RedisDB != 2 {
		t.Errorf("RedisDB = %d, want 2", cfg.RedisDB)
	}
	if cfg.SportsDBBaseURL != "http://localhost:9999/api" {
		t.Errorf("SportsDBBaseURL = %s, want trailing slash trimmed", cfg.SportsDBBaseURL)
	}
	if want := []string{"4328", "4329", "4335"}; !reflect.DeepEqual(cfg.LeagueIDs, want) {
		t.Errorf("LeagueIDs = %v, want %v", cfg.LeagueIDs, want)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("HTTPTimeout = %s, want 3s", cfg.HTTPTimeout)
	}
	if cfg.FetchConcurrency != 2 {
		t.Errorf("FetchConcurrency = %d, want 2", cfg.FetchConcurrency)
	}
	if cfg.LookupCacheSize != 16 || cfg.LookupCacheTTL != time.Minute {
		t.Errorf("lookup cache = %d/%s, want 16/1m", cfg.LookupCacheSize, cfg.LookupCacheTTL)
	}
	if cfg.IncludeSupplemental {
		t.Error("IncludeSupplemental = true, want false")
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %s, want 30s", cfg.RefreshInterval)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv()
	os.Setenv("SECURE_STORE_KEY", "device-secret")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.StorageDriver != StorageSQLite {
		t.Errorf("StorageDriver = %s, want sqlite", cfg.StorageDriver)
	}
	if cfg.DatabasePath != "./data/sportiz.db" {
		t.Errorf("DatabasePath = %s, want ./data/sportiz.db", cfg.DatabasePath)
	}
	if cfg.SportsDBBaseURL != "https://www.thesportsdb.com/api/v1/json/3" {
		t.Errorf("SportsDBBaseURL = %s", cfg.SportsDBBaseURL)
	}
	if !reflect.DeepEqual(cfg.LeagueIDs, DefaultLeagueIDs) {
		t.Errorf("LeagueIDs = %v, want %v", cfg.LeagueIDs, DefaultLeagueIDs)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %s, want 10s", cfg.HTTPTimeout)
	}
	if !cfg.IncludeSupplemental {
		t.Error("IncludeSupplemental should default to true")
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("logging = %s/%s, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_MissingSecureStoreKey(t *testing.T) {
	clearEnv()
	defer clearEnv()

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when SECURE_STORE_KEY is missing")
	}
	if err.Error() != "SECURE_STORE_KEY environment variable is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"REDIS_DB", "zero"},
		{"HTTP_TIMEOUT", "ten"},
		{"FETCH_CONCURRENCY", "many"},
		{"LOOKUP_CACHE_SIZE", "big"},
		{"LOOKUP_CACHE_TTL", "forever"},
		{"INCLUDE_SUPPLEMENTAL", "maybe"},
		{"REFRESH_INTERVAL", "often"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv()
			os.Setenv("SECURE_STORE_KEY", "device-secret")
			os.Setenv(tt.key, tt.value)
			defer clearEnv()

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() should fail when %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) || !strings.Contains(err.Error(), "invalid") {
				t.Errorf("error should name %s, got %v", tt.key, err)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		StorageDriver:    StorageSQLite,
		DatabasePath:     "./test.db",
		SecureStoreKey:   "device-secret",
		SportsDBBaseURL:  "http://localhost",
		LeagueIDs:        []string{"4328"},
		HTTPTimeout:      time.Second,
		FetchConcurrency: 1,
		LookupCacheSize:  1,
		LookupCacheTTL:   time.Minute,
		RefreshInterval:  time.Minute,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }, "DATABASE_PATH"},
		{"unknown driver", func(c *Config) { c.StorageDriver = "bolt" }, "STORAGE_DRIVER"},
		{"redis without addr", func(c *Config) { c.StorageDriver = StorageRedis; c.RedisAddr = "" }, "REDIS_ADDR"},
		{"no leagues", func(c *Config) { c.LeagueIDs = nil }, "SPORTSDB_LEAGUE_IDS"},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, "HTTP_TIMEOUT"},
		{"negative concurrency", func(c *Config) { c.FetchConcurrency = -1 }, "FETCH_CONCURRENCY"},
		{"zero cache size", func(c *Config) { c.LookupCacheSize = 0 }, "LOOKUP_CACHE_SIZE"},
		{"zero cache ttl", func(c *Config) { c.LookupCacheTTL = 0 }, "LOOKUP_CACHE_TTL"},
		{"negative cache ttl", func(c *Config) { c.LookupCacheTTL = -time.Second }, "LOOKUP_CACHE_TTL"},
		{"zero refresh", func(c *Config) { c.RefreshInterval = 0 }, "REFRESH_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty string", "", "[not set]"},
		{"short secret", "abc", "****"},
		{"normal secret", "abcdefgh", "abcd****"},
		{"long secret", "very-long-secret-key-12345", "very****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskSecret(tt.secret)
			if got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestLogConfiguration_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LevelInfo)
	log.SetOutput(&buf)

	cfg := validConfig()
	cfg.SecureStoreKey = "super-secret-value"
	cfg.LogConfiguration(log)

	output := buf.String()
	if strings.Contains(output, "super-secret-value") {
		t.Errorf("secure store key leaked into logs: %q", output)
	}
	if !strings.Contains(output, "supe****") {
		t.Errorf("expected masked key in logs, got %q", output)
	}
}

// clearEnv clears all environment variables used by the config
func clearEnv() {
	for _, key := range []string{
		"STORAGE_DRIVER", "DATABASE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"SECURE_STORE_KEY", "SPORTSDB_BASE_URL", "SPORTSDB_LEAGUE_IDS", "HTTP_TIMEOUT",
		"FETCH_CONCURRENCY", "LOOKUP_CACHE_SIZE", "LOOKUP_CACHE_TTL", "INCLUDE_SUPPLEMENTAL",
		"REFRESH_INTERVAL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		os.Unsetenv(key)
	}
}
