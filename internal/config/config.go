/**
 * Configuration for the extraction worker
 *
 * Loads configuration from environment variables. All extraction knobs have
 * working defaults; only DATABASE_URL is mandatory.
 */

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docvault/extract-worker/internal/extractor"
)

// Queue driver selection
const (
	QueueDriverAsynq     = "asynq"
	QueueDriverRedisList = "redis-list"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration
	RedisURL    string
	QueueDriver string // asynq or redis-list
	QueueName   string

	// PostgreSQL configuration
	DatabaseURL string

	// Worker configuration
	WorkerConcurrency int // queue handler parallelism
	OcrConcurrency    int // CPU-bound extraction slots

	// Temporary directory for intermediate files
	TempDir string

	// Extraction defaults, overridable per environment
	OcrLanguage         string
	PrimaryLanguage     string
	MinConfidence       float64
	SaveProcessedImages bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:            getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		QueueDriver:         getEnvOrDefault("QUEUE_DRIVER", QueueDriverAsynq),
		QueueName:           getEnvOrDefault("QUEUE_NAME", "extract"),
		DatabaseURL:         getEnvOrThrow("DATABASE_URL"),
		WorkerConcurrency:   getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		OcrConcurrency:      getEnvAsIntOrDefault("OCR_CONCURRENCY", 4),
		TempDir:             getEnvOrDefault("TEMP_DIR", "/tmp/extract-worker"),
		OcrLanguage:         getEnvOrDefault("OCR_LANGUAGE", "eng"),
		PrimaryLanguage:     getEnvOrDefault("OCR_PRIMARY_LANGUAGE", "eng"),
		MinConfidence:       getEnvAsFloatOrDefault("OCR_MIN_CONFIDENCE", 30.0),
		SaveProcessedImages: getEnvAsBoolOrDefault("SAVE_PROCESSED_IMAGES", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ExtractionSettings builds the per-job extraction settings from the
// configured defaults.
func (c *Config) ExtractionSettings() extractor.Settings {
	settings := extractor.DefaultSettings()
	settings.OCRLanguage = c.OcrLanguage
	settings.PrimaryLanguage = c.PrimaryLanguage
	settings.MinConfidence = float32(c.MinConfidence)
	settings.SaveProcessedImages = c.SaveProcessedImages
	return settings
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.QueueDriver != QueueDriverAsynq && c.QueueDriver != QueueDriverRedisList {
		return fmt.Errorf("QUEUE_DRIVER must be %q or %q, got %q",
			QueueDriverAsynq, QueueDriverRedisList, c.QueueDriver)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.OcrConcurrency < 1 || c.OcrConcurrency > 64 {
		return fmt.Errorf("OCR_CONCURRENCY must be between 1 and 64, got %d", c.OcrConcurrency)
	}

	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("OCR_MIN_CONFIDENCE must be between 0 and 100, got %f", c.MinConfidence)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrThrow gets environment variable or panics when unset
func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
