package config

import (
	"testing"

	"hoopsight/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.Paths.RawDir == "" || cfg.Paths.ProcessedDir == "" || cfg.Paths.ModelDir == "" {
		t.Errorf("Default paths should be set: %+v", cfg.Paths)
	}
	if len(cfg.Seasons) == 0 {
		t.Error("Default season list should not be empty")
	}
	if cfg.Train.MinRows != 100 || cfg.Train.Seed != 42 {
		t.Errorf("Training defaults drifted: %+v", cfg.Train)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SEASONS", "2024-25, 2025-26")
	t.Setenv("TRAIN_MIN_ROWS", "250")
	t.Setenv("ENGINEER_PARALLELISM", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Seasons) != 2 || cfg.Seasons[0] != "2024-25" || cfg.Seasons[1] != "2025-26" {
		t.Errorf("Season list misparsed: %v", cfg.Seasons)
	}
	if cfg.Train.MinRows != 250 {
		t.Errorf("TRAIN_MIN_ROWS override lost: %d", cfg.Train.MinRows)
	}
	if cfg.Engineer.Parallelism != 8 {
		t.Errorf("ENGINEER_PARALLELISM override lost: %d", cfg.Engineer.Parallelism)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("TRAIN_TEST_FRAC", "1.5")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected validation failure for out-of-range test fraction")
	}
	if !errors.HasCode(err, errors.CodeConfigInvalid) {
		t.Errorf("Expected %s, got %s", errors.CodeConfigInvalid, errors.GetCode(err))
	}
}
