package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration

	// Auth
	JWTSecret string

	// Storage
	DataBackend      string
	SQLiteDBPath     string
	DatabaseURL      string
	PropertyCacheTTL time.Duration

	// AMQP, optional for the API server
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report export
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// ExportDryRun keeps exported tabs in memory and only logs them.
	ExportDryRun bool
	// Backfill re-exports one property's year at exporter startup when all
	// three are set.
	BackfillOwnerID    int64
	BackfillPropertyID int64
	BackfillYear       int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),

		DataBackend:      getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/homeledger.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PropertyCacheTTL: getEnvDuration("PROPERTY_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "homeledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		ExportDryRun:             getEnvBool("EXPORT_DRY_RUN", false),
		BackfillOwnerID:          int64(getEnvInt("EXPORT_BACKFILL_OWNER_ID", 0)),
		BackfillPropertyID:       int64(getEnvInt("EXPORT_BACKFILL_PROPERTY_ID", 0)),
		BackfillYear:             getEnvInt("EXPORT_BACKFILL_YEAR", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration of the API server
func (c *Config) Validate() error {
	errs := c.validateCommon()

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.PropertyCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid property cache TTL %v: must not be negative", c.PropertyCacheTTL))
	}

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid CORS origin '%s': must be '*' or scheme://host", origin))
		}
	}

	return joinErrors(errs)
}

// ValidateExporter validates the configuration of the report exporter,
// which needs a broker and, unless in dry-run mode, a spreadsheet.
func (c *Config) ValidateExporter() error {
	errs := c.validateCommon()
	errs = c.requirePersistentBackend(errs, "the report exporter")

	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the report exporter")
	}
	set := 0
	for _, v := range []int64{c.BackfillOwnerID, c.BackfillPropertyID, int64(c.BackfillYear)} {
		if v < 0 {
			errs = append(errs, "backfill owner, property and year must not be negative")
			break
		}
		if v > 0 {
			set++
		}
	}
	if set != 0 && set != 3 {
		errs = append(errs, "EXPORT_BACKFILL_OWNER_ID, EXPORT_BACKFILL_PROPERTY_ID and EXPORT_BACKFILL_YEAR must be set together")
	}
	if c.ExportDryRun {
		return joinErrors(errs)
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for the report exporter")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	return joinErrors(errs)
}

// ValidateStorage checks only the storage and logging settings, for tools
// that open the data backend directly. Such tools share data with the API
// through the backend, so the memory backend is rejected.
func (c *Config) ValidateStorage() error {
	return joinErrors(c.requirePersistentBackend(c.validateCommon(), "standalone tools"))
}

func (c *Config) requirePersistentBackend(errs []string, who string) []string {
	if c.DataBackend == BackendMemory {
		errs = append(errs, fmt.Sprintf("data backend '%s' is not shared between processes and cannot be used by %s", BackendMemory, who))
	}
	return errs
}

func (c *Config) validateCommon() []string {
	var errs []string

	validBackends := []string{BackendMemory, BackendSQLite, BackendPostgres}
	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	return errs
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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

// Backfill reports whether a startup backfill was requested.
func (c *Config) Backfill() bool {
	return c.BackfillOwnerID > 0 && c.BackfillPropertyID > 0 && c.BackfillYear > 0
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
