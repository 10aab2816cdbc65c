// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. Values are loaded from
// environment variables with sensible defaults for local development.
type Config struct {
	DatabaseURL string

	PortalBaseURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SyncDomain         string // used to build the Google event "source.url" field

	LogLevel  string
	LogFormat string

	ServerPort string

	JobWorkerPollInterval time.Duration
	JobWorkerMaxPerRun    int
	BackgroundSyncCron    string
	SessionRetention      time.Duration
	InFlightWindow        time.Duration

	SyncRetryMax   int
	SyncRetryDelay time.Duration
}

// DefaultConfig returns a Config populated with the defaults this
// package falls back to when no environment variable is set.
func DefaultConfig() *Config {
	return &Config{
		DatabaseURL:           "postgres://localhost:5432/insper_sync?sslmode=disable",
		PortalBaseURL:         "https://sga.insper.edu.br",
		SyncDomain:            "insper-sync.example.com",
		LogLevel:              "info",
		LogFormat:             "json",
		ServerPort:            "8080",
		JobWorkerPollInterval: 30 * time.Second,
		JobWorkerMaxPerRun:    10,
		BackgroundSyncCron:    "0 3 * * *",
		SessionRetention:      30 * 24 * time.Hour,
		InFlightWindow:        30 * time.Minute,
		SyncRetryMax:          3,
		SyncRetryDelay:        60 * time.Second,
	}
}

// Load reads environment variables into a Config, starting from
// DefaultConfig. It never fails: malformed numeric/duration values are
// ignored and the default is kept. A .env file in the working
// directory is loaded first, if present, so local development doesn't
// require exporting every variable by hand; its absence is not an
// error.
func Load() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("PORTAL_BASE_URL"); v != "" {
		cfg.PortalBaseURL = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.GoogleClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URL"); v != "" {
		cfg.GoogleRedirectURL = v
	}
	if v := os.Getenv("SYNC_DOMAIN"); v != "" {
		cfg.SyncDomain = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.ServerPort = v
	}
	if v := os.Getenv("JOB_WORKER_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.JobWorkerPollInterval = d
		}
	}
	if v := os.Getenv("JOB_WORKER_MAX_PER_RUN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.JobWorkerMaxPerRun = n
		}
	}
	if v := os.Getenv("BACKGROUND_SYNC_CRON"); v != "" {
		cfg.BackgroundSyncCron = v
	}
	if v := os.Getenv("SESSION_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionRetention = d
		}
	}
	if v := os.Getenv("IN_FLIGHT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.InFlightWindow = d
		}
	}
	if v := os.Getenv("SYNC_RETRY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SyncRetryMax = n
		}
	}
	if v := os.Getenv("SYNC_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SyncRetryDelay = d
		}
	}

	return cfg
}
