package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Kanban.Provider != "memory" {
		t.Errorf("Kanban.Provider = %q, want memory", cfg.Kanban.Provider)
	}
	if cfg.Resilience.RetryMaxAttempts != 3 {
		t.Errorf("Resilience.RetryMaxAttempts = %d, want 3", cfg.Resilience.RetryMaxAttempts)
	}
	if cfg.Reconcile.TickInterval != 60*time.Second {
		t.Errorf("Reconcile.TickInterval = %v, want 60s", cfg.Reconcile.TickInterval)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marcus.yaml")
	contents := "server:\n  port: 9090\nkanban:\n  provider: memory\nai:\n  provider: anthropic\n  api_key: test-key\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.AI.Provider != "anthropic" {
		t.Errorf("AI.Provider = %q, want anthropic", cfg.AI.Provider)
	}
	if cfg.AI.APIKey != "test-key" {
		t.Errorf("AI.APIKey = %q, want test-key", cfg.AI.APIKey)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marcus.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("MARCUS_SERVER_PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 (env override)", cfg.Server.Port)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load should not error on a missing file: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want default 3000", cfg.Server.Port)
	}
}

func TestConfig_AdapterConversions(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	retry := cfg.ToRetryConfig()
	if retry.MaxAttempts != 3 {
		t.Errorf("ToRetryConfig().MaxAttempts = %d, want 3", retry.MaxAttempts)
	}

	breaker := cfg.ToBreakerConfig()
	if breaker.FailureThreshold != 5 {
		t.Errorf("ToBreakerConfig().FailureThreshold = %d, want 5", breaker.FailureThreshold)
	}

	scoring := cfg.ToScoringConfig()
	if scoring.SkillWeight != 0.5 {
		t.Errorf("ToScoringConfig().SkillWeight = %v, want 0.5", scoring.SkillWeight)
	}
}
