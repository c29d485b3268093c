package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"hoopsight/internal/errors"
)

// Config represents the complete pipeline configuration. Every phase takes
// its store locations and season list from here rather than from implicit
// directory conventions.
type Config struct {
	Paths    PathConfig
	Seasons  []string
	Fetch    FetchConfig
	Engineer EngineerConfig
	Train    TrainConfig
}

// PathConfig holds the snapshot store locations
type PathConfig struct {
	RawDir       string // per-player raw game logs, team metrics, schedule cache
	ProcessedDir string // engineered tables, master table, archetypes
	ModelDir     string // persisted model bundles and fitted transforms
}

// FetchConfig holds the external stats-provider settings
type FetchConfig struct {
	Timeout       time.Duration
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterFrac    float64
	EmptyDayLimit int // consecutive empty schedule days before an early stop
}

// EngineerConfig holds feature-engineering settings
type EngineerConfig struct {
	Parallelism int64 // concurrent entities; rows within one entity stay sequential
}

// TrainConfig holds model-training settings
type TrainConfig struct {
	MinRows  int
	TestFrac float64
	Seed     int64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Paths: PathConfig{
			RawDir:       getEnvOrDefault("RAW_DATA_DIR", "data"),
			ProcessedDir: getEnvOrDefault("PROCESSED_DATA_DIR", "processed_data"),
			ModelDir:     getEnvOrDefault("MODEL_DIR", "models"),
		},
		Seasons: splitList(getEnvOrDefault("SEASONS", "2022-23,2023-24,2024-25,2025-26")),
		Fetch: FetchConfig{
			Timeout:       getEnvDurationOrDefault("FETCH_TIMEOUT", 60*time.Second),
			MaxAttempts:   getEnvIntOrDefault("FETCH_MAX_ATTEMPTS", 8),
			BaseDelay:     getEnvDurationOrDefault("FETCH_BASE_DELAY", 2*time.Second),
			MaxDelay:      getEnvDurationOrDefault("FETCH_MAX_DELAY", 2*time.Minute),
			JitterFrac:    getEnvFloatOrDefault("FETCH_JITTER_FRAC", 0.5),
			EmptyDayLimit: getEnvIntOrDefault("SCHEDULE_EMPTY_DAY_LIMIT", 10),
		},
		Engineer: EngineerConfig{
			Parallelism: int64(getEnvIntOrDefault("ENGINEER_PARALLELISM", 4)),
		},
		Train: TrainConfig{
			MinRows:  getEnvIntOrDefault("TRAIN_MIN_ROWS", 100),
			TestFrac: getEnvFloatOrDefault("TRAIN_TEST_FRAC", 0.2),
			Seed:     int64(getEnvIntOrDefault("TRAIN_SEED", 42)),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Paths.RawDir == "" || cfg.Paths.ProcessedDir == "" || cfg.Paths.ModelDir == "" {
		return errors.ConfigInvalid("store directories must not be empty")
	}
	if len(cfg.Seasons) == 0 {
		return errors.ConfigInvalid("at least one season is required")
	}
	if cfg.Fetch.MaxAttempts < 1 {
		return errors.ConfigInvalid("FETCH_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Engineer.Parallelism < 1 {
		return errors.ConfigInvalid("ENGINEER_PARALLELISM must be >= 1")
	}
	if cfg.Train.TestFrac <= 0 || cfg.Train.TestFrac >= 1 {
		return errors.ConfigInvalid("TRAIN_TEST_FRAC must be in (0, 1)")
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
