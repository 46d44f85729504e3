package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	// Server
	Port            int
	AppEnv          string
	LogLevel        string
	LogFormat       string
	APIKey          string
	CORSAllowOrigin string

	// Store
	StoreDriver string
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBName      string
	DBUser      string
	DBPassword  string
	DBSSLMode   string
	SQLitePath  string

	// Cache
	CacheBackend  string
	CacheTTL      int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Pricing
	HistoryDefaultHours int
	HistoryMaxHours     int
	StatsWindowHours    int
	PriceTimezone       string

	// Refresh webhook
	N8NWebhookURL          string
	N8NWebhookAuthHeader   string
	N8NWebhookAuthValue    string
	RefreshIntervalMinutes int
}

// Load reads envFiles (default .env) into the environment, then builds the
// config. Missing env files are not an error; variables already set win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			if f == "" {
				continue
			}
			if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		Port:            envInt("PORT", 3001),
		AppEnv:          envStr("APP_ENV", "development"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LogFormat:       envStr("LOG_FORMAT", "json"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL: envStr("DATABASE_URL", ""),
		DBHost:      envStr("DB_HOST", "localhost"),
		DBPort:      envInt("DB_PORT", 5432),
		DBName:      envStr("DB_NAME", "pse_prices"),
		DBUser:      envStr("DB_USER", "postgres"),
		DBPassword:  envStr("DB_PASSWORD", ""),
		DBSSLMode:   envStr("DB_SSLMODE", "disable"),
		SQLitePath:  envStr("SQLITE_PATH", "pse_prices.db"),

		CacheBackend:  strings.ToLower(envStr("CACHE_BACKEND", CacheBackendMemory)),
		CacheTTL:      envInt("CACHE_TTL", 30),
		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		HistoryDefaultHours: envInt("HISTORY_DEFAULT_HOURS", 24),
		HistoryMaxHours:     envInt("HISTORY_MAX_HOURS", 720),
		StatsWindowHours:    envInt("STATS_WINDOW_HOURS", 24),
		PriceTimezone:       envStr("PRICE_TIMEZONE", "Europe/Warsaw"),

		N8NWebhookURL:          envStr("N8N_WEBHOOK_URL", ""),
		N8NWebhookAuthHeader:   envStr("N8N_WEBHOOK_AUTH_HEADER", "Authorization"),
		N8NWebhookAuthValue:    envStr("N8N_WEBHOOK_AUTH_VALUE", ""),
		RefreshIntervalMinutes: envInt("REFRESH_INTERVAL_MINUTES", 0),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be 1-65535, got %d", c.Port))
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" && c.DBUser == "" {
			errs = append(errs, "DATABASE_URL or DB_USER is required for the postgres store")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required for the sqlite store")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverSQLite, c.StoreDriver))
	}
	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, "REDIS_ADDR is required for the redis cache")
		}
	default:
		errs = append(errs, fmt.Sprintf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.CacheBackend))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, "CACHE_TTL must be positive")
	}
	if c.HistoryMaxHours <= 0 {
		errs = append(errs, "HISTORY_MAX_HOURS must be positive")
	}
	if c.HistoryDefaultHours <= 0 || c.HistoryDefaultHours > c.HistoryMaxHours {
		errs = append(errs, "HISTORY_DEFAULT_HOURS must be between 1 and HISTORY_MAX_HOURS")
	}
	if c.StatsWindowHours <= 0 {
		errs = append(errs, "STATS_WINDOW_HOURS must be positive")
	}
	if _, err := time.LoadLocation(c.PriceTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("PRICE_TIMEZONE %q is not a known zone", c.PriceTimezone))
	}
	if c.N8NWebhookURL != "" {
		if u, err := url.Parse(c.N8NWebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "N8N_WEBHOOK_URL must be an absolute URL")
		}
	}
	if c.RefreshIntervalMinutes < 0 {
		errs = append(errs, "REFRESH_INTERVAL_MINUTES must not be negative")
	}
	if c.RefreshIntervalMinutes > 0 && c.N8NWebhookURL == "" {
		errs = append(errs, "REFRESH_INTERVAL_MINUTES requires N8N_WEBHOOK_URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Warnings lists settings that are valid but probably unintended.
func (c *Config) Warnings() []string {
	var w []string
	if c.APIKey == "" {
		w = append(w, "API_KEY not set, REST API has no authentication")
	}
	if c.N8NWebhookURL == "" {
		w = append(w, "N8N_WEBHOOK_URL not set, manual refresh is disabled")
	}
	if c.CORSAllowOrigin == "*" && c.AppEnv == "production" {
		w = append(w, "CORS_ALLOW_ORIGIN is * in production")
	}
	return w
}

func (c *Config) Print() {
	fmt.Println("=== PSE Price Backend Configuration ===")
	fmt.Printf("Environment: %s\n", c.AppEnv)
	fmt.Printf("Port: %d\n", c.Port)
	fmt.Printf("Log: %s (%s)\n", c.LogLevel, c.LogFormat)
	fmt.Println("--------------------------------------")
	switch c.StoreDriver {
	case StoreDriverSQLite:
		fmt.Printf("Store: sqlite (%s)\n", c.SQLitePath)
	default:
		fmt.Printf("Store: postgres (%s)\n", redactDSN(c.DSN()))
	}
	switch c.CacheBackend {
	case CacheBackendRedis:
		fmt.Printf("Cache: redis %s db=%d, ttl %s\n", c.RedisAddr, c.RedisDB, c.CacheTTLDuration())
	default:
		fmt.Printf("Cache: memory, ttl %s\n", c.CacheTTLDuration())
	}
	fmt.Println("--------------------------------------")
	fmt.Printf("Timezone: %s\n", c.PriceTimezone)
	fmt.Printf("History: default %dh, max %dh\n", c.HistoryDefaultHours, c.HistoryMaxHours)
	fmt.Printf("Stats window: %dh\n", c.StatsWindowHours)
	fmt.Printf("Refresh webhook: %s\n", boolLabel(c.N8NWebhookURL != "", "configured", "not set"))
	if c.RefreshIntervalMinutes > 0 {
		fmt.Printf("Scheduled refresh: every %d minutes\n", c.RefreshIntervalMinutes)
	}
	fmt.Printf("API auth: %s\n", boolLabel(c.APIKey != "", "enabled", "disabled"))
	fmt.Println("======================================")
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the DB_*
// parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
