package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Backend names
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`
	LogLevel   string `json:"log_level"`

	// Storage
	DataDirectory string `json:"data_directory"`
	Backend       string `json:"backend"`
	DatabaseURL   string `json:"-"`
	Password      string `json:"-"` // Unlocks an encrypted data directory

	// Identity
	JWTSecret   string `json:"-"`
	DefaultUser string `json:"default_user"`

	// Calculation
	TimelineMaxDays int `json:"timeline_max_days"`

	// Snapshots and alerts
	SnapshotSchedule string          `json:"snapshot_schedule"`
	AlertThreshold   decimal.Decimal `json:"alert_threshold"`
	SMTPHost         string          `json:"smtp_host"`
	SMTPPort         string          `json:"smtp_port"`
	SMTPUsername     string          `json:"smtp_username"`
	SMTPPassword     string          `json:"-"`
	AlertFrom        string          `json:"alert_from"`
	AlertTo          []string        `json:"alert_to"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:       ":8080",
		LogLevel:         "info",
		DataDirectory:    filepath.Join(wd, "data"),
		Backend:          BackendFile,
		DefaultUser:      "default",
		TimelineMaxDays:  365,
		SnapshotSchedule: "5 0 * * *",
		AlertThreshold:   decimal.Zero,
		SMTPPort:         "587",
	}
}

// Load loads configuration from CLIP_* environment variables
func Load() *Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("CLIP_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if debug := os.Getenv("CLIP_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if level := os.Getenv("CLIP_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if dataDir := os.Getenv("CLIP_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}
	if backend := os.Getenv("CLIP_BACKEND"); backend != "" {
		cfg.Backend = strings.ToLower(backend)
	}
	cfg.DatabaseURL = os.Getenv("CLIP_DATABASE_URL")
	cfg.Password = os.Getenv("CLIP_PASSWORD")
	cfg.JWTSecret = os.Getenv("CLIP_JWT_SECRET")
	if user := os.Getenv("CLIP_DEFAULT_USER"); user != "" {
		cfg.DefaultUser = user
	}
	if days := os.Getenv("CLIP_TIMELINE_MAX_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.TimelineMaxDays = n
		} else {
			logrus.Warnf("ignoring CLIP_TIMELINE_MAX_DAYS=%q: %v", days, err)
		}
	}
	if spec, ok := os.LookupEnv("CLIP_SNAPSHOT_SCHEDULE"); ok {
		cfg.SnapshotSchedule = spec
	}
	if threshold := os.Getenv("CLIP_ALERT_THRESHOLD"); threshold != "" {
		if d, err := decimal.NewFromString(threshold); err == nil {
			cfg.AlertThreshold = d
		} else {
			logrus.Warnf("ignoring CLIP_ALERT_THRESHOLD=%q: %v", threshold, err)
		}
	}
	cfg.SMTPHost = os.Getenv("CLIP_SMTP_HOST")
	if port := os.Getenv("CLIP_SMTP_PORT"); port != "" {
		cfg.SMTPPort = port
	}
	cfg.SMTPUsername = os.Getenv("CLIP_SMTP_USER")
	cfg.SMTPPassword = os.Getenv("CLIP_SMTP_PASSWORD")
	cfg.AlertFrom = os.Getenv("CLIP_ALERT_FROM")
	if to := os.Getenv("CLIP_ALERT_TO"); to != "" {
		for _, addr := range strings.Split(to, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				cfg.AlertTo = append(cfg.AlertTo, addr)
			}
		}
	}

	cfg.ensureDirectories()
	return cfg
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("CLIP_DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q: expected %s or %s", c.Backend, BackendFile, BackendPostgres)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.TimelineMaxDays <= 0 {
		return fmt.Errorf("timeline max days must be positive, got %d", c.TimelineMaxDays)
	}
	if c.DefaultUser == "" && c.JWTSecret == "" {
		return fmt.Errorf("CLIP_DEFAULT_USER is required when CLIP_JWT_SECRET is empty")
	}
	if c.SnapshotSchedule != "" {
		if _, err := cron.ParseStandard(c.SnapshotSchedule); err != nil {
			return fmt.Errorf("invalid CLIP_SNAPSHOT_SCHEDULE: %w", err)
		}
	}
	return nil
}

// AlertsEnabled reports whether low clip emails should be sent
func (c *Config) AlertsEnabled() bool {
	return c.AlertThreshold.IsPositive() && c.SMTPHost != "" && c.AlertFrom != "" && len(c.AlertTo) > 0
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	if c.Backend != BackendFile {
		return
	}
	if err := os.MkdirAll(c.DataDirectory, 0o755); err != nil {
		logrus.Warnf("could not create directory %s: %v", c.DataDirectory, err)
	}
}

// NewLogger builds the application logger: JSON in production, text in debug
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if c.Debug {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
