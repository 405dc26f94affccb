// Package config reads the process configuration from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "budgetboard/internal/log"
)

// Backends accepted in DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	UserHeader         string
	AllowUIDParam      bool
	TrustedProxies     []string
	RateLimitPerMinute int

	// Store
	DataBackend   string
	SQLiteDBPath  string
	SeedFile      string
	WatchInterval time.Duration
	CacheSize     int
	CacheTTL      time.Duration

	// Change notifications. An empty URL disables them.
	AMQPURL      string
	AMQPExchange string

	// Display
	DisplayTimezone string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		UserHeader:         getEnv("USER_HEADER", "X-User-ID"),
		AllowUIDParam:      getEnvBool("ALLOW_UID_PARAM", false),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/budgetboard.db"),
		SeedFile:      getEnv("SEED_FILE", ""),
		WatchInterval: getEnvDuration("WATCH_INTERVAL", 2*time.Second),
		CacheSize:     getEnvInt("SNAPSHOT_CACHE_SIZE", 256),
		CacheTTL:      getEnvDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetboard.records"),

		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "Local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves DisplayTimezone. Validate reports a bad name; here it
// falls back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.UserHeader) == "" {
		errors = append(errors, "user header name cannot be empty")
	}

	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be an IP or CIDR", proxy))
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
		if c.WatchInterval < 100*time.Millisecond {
			errors = append(errors, fmt.Sprintf("invalid watch interval %v: must be at least 100ms", c.WatchInterval))
		} else if c.WatchInterval > time.Hour {
			errors = append(errors, fmt.Sprintf("invalid watch interval %v: must be at most 1 hour", c.WatchInterval))
		}
		if c.CacheSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must be at least 1", c.CacheSize))
		}
		if c.CacheTTL <= 0 {
			errors = append(errors, fmt.Sprintf("invalid snapshot cache TTL %v: must be positive", c.CacheTTL))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite))
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file not readable: %v", err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid display timezone '%s': %v", c.DisplayTimezone, err))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
