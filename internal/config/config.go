package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the delivery-confirmation service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Approval gate for release tasks; process-wide, read once.
	ApprovalRequired bool

	TickInterval     time.Duration
	AutoReleaseDelay time.Duration
	MaxAttempts      int
	BackoffStart     time.Duration
	BackoffCap       time.Duration

	// Fixed on-ledger party accounts. When empty the workflow engine uses
	// the message senders as the transfer parties.
	ProducerAccount     string
	CounterpartyAccount string

	ClassifierMode string

	SettlementMode    string
	SettlementHTTPURL string

	ReportEnabled  bool
	ReportPageSize int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "mazao"),
		AllowAnyOrigin:      false,
		ApprovalRequired:    false,
		TickInterval:        time.Second,
		AutoReleaseDelay:    2 * time.Second,
		MaxAttempts:         5,
		BackoffStart:        1500 * time.Millisecond,
		BackoffCap:          60 * time.Second,
		ProducerAccount:     envTrimmed("PRODUCER_ACCOUNT"),
		CounterpartyAccount: envTrimmed("COUNTERPARTY_ACCOUNT"),
		ClassifierMode:      envOrDefault("CLASSIFIER_MODE", "auto"),
		SettlementMode:      envOrDefault("SETTLEMENT_MODE", "auto"),
		SettlementHTTPURL:   envTrimmed("SETTLEMENT_HTTP_URL"),
		ReportEnabled:       true,
		ReportPageSize:      100,
		DatabaseURL:         envTrimmed("DATABASE_URL"),
		ShutdownTimeout:     15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.ApprovalRequired, err = boolFromEnv("APPROVAL_REQUIRED", cfg.ApprovalRequired)
	if err != nil {
		return Config{}, err
	}
	cfg.TickInterval, err = durationFromEnv("PLANNER_TICK_INTERVAL", cfg.TickInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AutoReleaseDelay, err = durationFromEnv("PLANNER_AUTO_RELEASE_DELAY", cfg.AutoReleaseDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxAttempts, err = intFromEnv("PLANNER_MAX_ATTEMPTS", cfg.MaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.BackoffStart, err = durationFromEnv("PLANNER_BACKOFF_START", cfg.BackoffStart)
	if err != nil {
		return Config{}, err
	}
	cfg.BackoffCap, err = durationFromEnv("PLANNER_BACKOFF_CAP", cfg.BackoffCap)
	if err != nil {
		return Config{}, err
	}
	cfg.ReportEnabled, err = boolFromEnv("REPORT_ENABLED", cfg.ReportEnabled)
	if err != nil {
		return Config{}, err
	}
	cfg.ReportPageSize, err = intFromEnv("REPORT_PAGE_SIZE", cfg.ReportPageSize)
	if err != nil {
		return Config{}, err
	}

	if cfg.TickInterval < 10*time.Millisecond {
		return Config{}, fmt.Errorf("PLANNER_TICK_INTERVAL must be at least 10ms")
	}
	if cfg.AutoReleaseDelay < 0 {
		return Config{}, fmt.Errorf("PLANNER_AUTO_RELEASE_DELAY must not be negative")
	}
	if cfg.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("PLANNER_MAX_ATTEMPTS must be positive")
	}
	if cfg.BackoffStart <= 0 {
		return Config{}, fmt.Errorf("PLANNER_BACKOFF_START must be positive")
	}
	if cfg.BackoffCap < cfg.BackoffStart {
		return Config{}, fmt.Errorf("PLANNER_BACKOFF_CAP must be at least PLANNER_BACKOFF_START")
	}
	if cfg.ReportPageSize <= 0 {
		return Config{}, fmt.Errorf("REPORT_PAGE_SIZE must be positive")
	}

	return cfg, nil
}

// PartiesConfigured reports whether both on-ledger party identifiers are set.
func (c Config) PartiesConfigured() bool {
	return c.ProducerAccount != "" && c.CounterpartyAccount != ""
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
