// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Backend selection: memory, sqlite or rest
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Remote row store
	RemoteStoreURL string
	RemoteStoreKey string

	// Change feed
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	FeedDebounce time.Duration

	// Sessions
	JWTSecret string
	TokenTTL  time.Duration

	// Advisor
	GeminiAPIKey string
	GeminiModel  string

	// Local preference fallbacks used until the first sync lands
	DefaultTheme string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/goighem.db"),

		RemoteStoreURL: getEnv("REMOTE_STORE_URL", ""),
		RemoteStoreKey: getEnv("REMOTE_STORE_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "goighem"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),
		FeedDebounce: getEnvDuration("FEED_DEBOUNCE", 500*time.Millisecond),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", ""),

		DefaultTheme: getEnv("DEFAULT_THEME", "pink"),
	}
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using the sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "rest":
		if c.RemoteStoreURL == "" {
			problems = append(problems, "REMOTE_STORE_URL is required when using the rest backend")
		}
		if c.RemoteStoreKey == "" {
			problems = append(problems, "REMOTE_STORE_KEY is required when using the rest backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite rest]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.FeedDebounce < 10*time.Millisecond || c.FeedDebounce > time.Minute {
		problems = append(problems, fmt.Sprintf("invalid feed debounce %v: must be between 10ms and 1m", c.FeedDebounce))
	}

	// Local backends mint their own tokens and need a signing secret.
	if c.DataBackend != "rest" && c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required for local backends")
	}
	if c.TokenTTL < time.Minute || c.TokenTTL > 30*24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid token TTL %v: must be between 1m and 720h", c.TokenTTL))
	}

	switch c.DefaultTheme {
	case "pink", "mint", "lavender":
	default:
		problems = append(problems, fmt.Sprintf("invalid default theme '%s': must be one of [pink mint lavender]", c.DefaultTheme))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
