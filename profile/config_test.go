package profile

import (
	"testing"
	"time"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %s, want 24h", cfg.CacheTTL)
	}
	if cfg.MinorThreshold != 0.1 || cfg.BreakthroughThreshold != 0.3 {
		t.Errorf("thresholds = %f/%f, want 0.1/0.3", cfg.MinorThreshold, cfg.BreakthroughThreshold)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("SELFOLGY_OPENAI_API_KEY", "sk-test")
	t.Setenv("SELFOLGY_DELTA_MINOR", "0.05")
	t.Setenv("SELFOLGY_FULL_SAMPLE_EVERY", "4")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q", cfg.OpenAIAPIKey)
	}
	if cfg.MinorThreshold != 0.05 {
		t.Errorf("MinorThreshold = %f, want 0.05", cfg.MinorThreshold)
	}

	applied := cfg.Apply(DefaultConfig)
	if applied.Thresholds.Minor != 0.05 {
		t.Errorf("applied minor threshold = %f, want 0.05", applied.Thresholds.Minor)
	}
	if applied.FullSampleEvery != 4 {
		t.Errorf("applied FullSampleEvery = %d, want 4", applied.FullSampleEvery)
	}
	if DefaultConfig.Thresholds.Minor != 0.1 {
		t.Error("Apply must not mutate the base config")
	}
}
