package config

import "testing"

func TestLoadWithoutFileOrEnvReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VectorDim != Defaults().VectorDim {
		t.Errorf("expected default vector dim, got %d", cfg.VectorDim)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load("/nonexistent/engram.yaml"); err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("ENGRAM_VECTOR_DIM", "256")
	t.Setenv("ENGRAM_AUTH_ENABLED", "true")
	t.Setenv("ENGRAM_RATE_LIMIT_PER_MINUTE", "30")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VectorDim != 256 {
		t.Errorf("expected VECTOR_DIM override to apply, got %d", cfg.VectorDim)
	}
	if !cfg.Auth.Enabled {
		t.Error("expected AUTH_ENABLED override to apply")
	}
	if cfg.RateLimit.PerMinute != 30 {
		t.Errorf("expected RATE_LIMIT_PER_MINUTE override to apply, got %d", cfg.RateLimit.PerMinute)
	}
}
