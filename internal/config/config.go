// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the settings shared by the api, worker and ingest commands.
type Config struct {
	Port     string
	LogLevel string

	GeminiAPIKey         string
	GeminiBaseURL        string
	GeminiModel          string
	GeminiClient         string
	GeminiConnectTimeout time.Duration

	MaxUploadSizeBytes int64

	GCSBucket       string
	BigQueryProject string
	BigQueryDataset string

	WorkerCount int
	QueueSize   int
}

// Load reads an optional .env file from the working directory, then the
// environment. Malformed values are logged and replaced by their default.
func Load(log zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using environment and defaults")
	} else {
		log.Info().Msg(".env file loaded")
	}
	return FromEnv(log)
}

// FromEnv builds a Config from the current environment only.
func FromEnv(log zerolog.Logger) *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiClient:         getEnv("GEMINI_CLIENT", "rest"),
		GeminiConnectTimeout: getEnvAsDuration(log, "GEMINI_CONNECT_TIMEOUT", 30*time.Second),

		MaxUploadSizeBytes: getEnvAsInt64(log, "MAX_UPLOAD_SIZE_BYTES", 10*1024*1024),

		GCSBucket:       getEnv("GCS_BUCKET", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "finance"),

		WorkerCount: getEnvAsInt(log, "WORKER_COUNT", 5),
		QueueSize:   getEnvAsInt(log, "QUEUE_SIZE", 100),
	}

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; model calls will fail and extraction will use pattern fallbacks")
	}
	if cfg.WorkerCount <= 0 {
		log.Warn().Int("value", cfg.WorkerCount).Msg("WORKER_COUNT must be positive, using 5")
		cfg.WorkerCount = 5
	}
	if cfg.QueueSize <= 0 {
		log.Warn().Int("value", cfg.QueueSize).Msg("QUEUE_SIZE must be positive, using 100")
		cfg.QueueSize = 100
	}

	log.Info().
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Str("gemini_model", cfg.GeminiModel).
		Str("gemini_client", cfg.GeminiClient).
		Str("bigquery_dataset", cfg.BigQueryDataset).
		Int("workers", cfg.WorkerCount).
		Msg("Configuration loaded")

	return cfg
}

// PersistenceEnabled reports whether a BigQuery project is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.BigQueryProject != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(log zerolog.Logger, key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Str("value", valueStr).Int("default", fallback).Msg("Invalid integer, using default")
		return fallback
	}
	return value
}

func getEnvAsInt64(log zerolog.Logger, key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil || value <= 0 {
		log.Warn().Err(err).Str("key", key).Str("value", valueStr).Int64("default", fallback).Msg("Invalid size, using default")
		return fallback
	}
	return value
}

func getEnvAsDuration(log zerolog.Logger, key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		log.Warn().Err(err).Str("key", key).Str("value", valueStr).Dur("default", fallback).Msg("Invalid duration, using default")
		return fallback
	}
	return value
}
