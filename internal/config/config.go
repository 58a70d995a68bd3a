package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	TrustedProxies     []string // extra CIDRs whose X-Forwarded-For is honoured

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Statement export
	ExportBackend            string
	GoogleSpreadsheetID      string
	GoogleStatementsSheet    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Statement cycle
	StatementTimezone      string
	StatementCheckInterval time.Duration
	StatementCardTimeout   time.Duration
	StatementRunTimeout    time.Duration
	StatementConcurrency   int
	CronSecret             string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cardcycle.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cardcycle"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "statement_events"),

		ExportBackend:            getEnv("STATEMENT_EXPORT_BACKEND", "memory"),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleStatementsSheet:    getEnv("GOOGLE_STATEMENTS_SHEET_NAME", "Statements"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		StatementTimezone:      getEnv("STATEMENT_TIMEZONE", "Asia/Manila"),
		StatementCheckInterval: getEnvDuration("STATEMENT_CHECK_INTERVAL", time.Hour),
		StatementCardTimeout:   getEnvDuration("STATEMENT_CARD_TIMEOUT", 10*time.Second),
		StatementRunTimeout:    getEnvDuration("STATEMENT_RUN_TIMEOUT", 5*time.Minute),
		StatementConcurrency:   getEnvInt("STATEMENT_CONCURRENCY", 4),
		CronSecret:             getEnv("CRON_SECRET", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// StatementLocation returns the timezone statement days are counted in.
// Call Validate first; an unknown zone falls back to UTC.
func (c *Config) StatementLocation() *time.Location {
	loc, err := time.LoadLocation(c.StatementTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// AMQP is optional; validate only when configured
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validBackends := []string{"memory", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.ExportBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of %v", c.ExportBackend, validBackends))
	}

	if c.ExportBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets export backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if _, err := time.LoadLocation(c.StatementTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid statement timezone '%s': %v", c.StatementTimezone, err))
	}

	if c.StatementCheckInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid statement check interval %v: must be at least 1 minute", c.StatementCheckInterval))
	} else if c.StatementCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid statement check interval %v: must be at most 24 hours", c.StatementCheckInterval))
	}

	if c.StatementCardTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid statement card timeout %v: must be positive", c.StatementCardTimeout))
	}
	if c.StatementRunTimeout < c.StatementCardTimeout {
		errors = append(errors, fmt.Sprintf("invalid statement run timeout %v: must be at least the card timeout %v", c.StatementRunTimeout, c.StatementCardTimeout))
	}

	if c.StatementConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid statement concurrency %d: must be at least 1", c.StatementConcurrency))
	} else if c.StatementConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid statement concurrency %d: must be at most 64", c.StatementConcurrency))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
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

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
