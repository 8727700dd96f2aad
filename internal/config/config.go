package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for the planning tables.
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Sheets     SheetsConfig
	MongoDB    MongoDBConfig
	Reconciler ReconcilerConfig
	Alerts     AlertsConfig
	RulesFile  string
	Timezone   string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string
}

// StorageConfig selects where the line, order and schedule tables live.
type StorageConfig struct {
	Backend string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// MongoDBConfig holds settings for the metrics history. An empty URI disables it.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ReconcilerConfig holds the background scan settings.
type ReconcilerConfig struct {
	Schedule        string
	BusyPoll        time.Duration
	UnderThreshold  float64
	OverThreshold   float64
	EscalateOverdue bool
}

// AlertsConfig configures the anomaly webhook. An empty URL disables alerts.
type AlertsConfig struct {
	WebhookURL string
	Token      string
	Timeout    time.Duration
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	busyPoll, err := getenvDuration("RECONCILE_BUSY_POLL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	alertTimeout, err := getenvDuration("ALERT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	under, err := getenvFloat("RECONCILE_UNDER_THRESHOLD", 30)
	if err != nil {
		return nil, err
	}
	over, err := getenvFloat("RECONCILE_OVER_THRESHOLD", 95)
	if err != nil {
		return nil, err
	}
	escalate, err := getenvBool("RECONCILE_ESCALATE_OVERDUE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend: getenvWithDefault("STORAGE_BACKEND", BackendMemory),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "lineplan"),
		},
		Reconciler: ReconcilerConfig{
			Schedule:        getenvWithDefault("RECONCILE_SCHEDULE", "@every 5m"),
			BusyPoll:        busyPoll,
			UnderThreshold:  under,
			OverThreshold:   over,
			EscalateOverdue: escalate,
		},
		Alerts: AlertsConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
			Token:      os.Getenv("ALERT_WEBHOOK_TOKEN"),
			Timeout:    alertTimeout,
		},
		RulesFile: getenvWithDefault("RULES_FILE", "configs/production_rules.yaml"),
		Timezone:  getenvWithDefault("TIMEZONE", "UTC"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSheets:
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendSheets, BackendMemory, c.Storage.Backend)
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if c.Reconciler.Schedule == "" {
		return errors.New("RECONCILE_SCHEDULE must be provided")
	}
	if c.Reconciler.BusyPoll <= 0 {
		return errors.New("RECONCILE_BUSY_POLL must be positive")
	}
	if c.Reconciler.UnderThreshold < 0 || c.Reconciler.OverThreshold > 100 || c.Reconciler.UnderThreshold >= c.Reconciler.OverThreshold {
		return fmt.Errorf("reconciler thresholds must satisfy 0 <= under < over <= 100, got %v/%v",
			c.Reconciler.UnderThreshold, c.Reconciler.OverThreshold)
	}

	if c.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}

	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
