package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("SYSWARD_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got error: %v", err)
	}
	if cfg.LLM.Model != defaultModel {
		t.Fatalf("expected default model %q, got %q", defaultModel, cfg.LLM.Model)
	}
	if cfg.Exec.Timeout != 60 {
		t.Fatalf("expected default timeout 60, got %d", cfg.Exec.Timeout)
	}
	if cfg.Exec.MaxOutputLines != 100 {
		t.Fatalf("expected default max output lines 100, got %d", cfg.Exec.MaxOutputLines)
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	t.Setenv("SYSWARD_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `llm:
  model: qwen2.5
exec:
  timeout_seconds: 15
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Model != "qwen2.5" {
		t.Fatalf("expected model override qwen2.5, got %q", cfg.LLM.Model)
	}
	if cfg.Exec.Timeout != 15 {
		t.Fatalf("expected timeout override 15, got %d", cfg.Exec.Timeout)
	}
	// Unspecified fields keep defaults
	if cfg.Exec.MaxOutputLines != 100 {
		t.Fatalf("expected default max output lines 100, got %d", cfg.Exec.MaxOutputLines)
	}
	if cfg.LLM.APIURL != defaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.LLM.APIURL)
	}
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [not: a: map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SYSWARD_API_URL", "http://example.test/v1/chat/completions")
	t.Setenv("SYSWARD_MODEL", "test-model")
	t.Setenv("SYSWARD_TIMEOUT", "5")
	t.Setenv("SYSWARD_RULES", "/tmp/rules.yaml")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.APIURL != "http://example.test/v1/chat/completions" {
		t.Fatalf("expected env api url, got %q", cfg.LLM.APIURL)
	}
	if cfg.LLM.Model != "test-model" {
		t.Fatalf("expected env model, got %q", cfg.LLM.Model)
	}
	if cfg.Exec.Timeout != 5 {
		t.Fatalf("expected env timeout 5, got %d", cfg.Exec.Timeout)
	}
	if cfg.RulesPath != "/tmp/rules.yaml" {
		t.Fatalf("expected env rules path, got %q", cfg.RulesPath)
	}
}

func TestGroqKeyImpliesCloudDefaults(t *testing.T) {
	t.Setenv("SYSWARD_API_KEY", "gsk_test")
	t.Setenv("SYSWARD_API_URL", "")
	t.Setenv("SYSWARD_MODEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.APIURL != defaultGroqURL {
		t.Fatalf("expected groq url when key set, got %q", cfg.LLM.APIURL)
	}
	if cfg.LLM.Model != defaultGroqModel {
		t.Fatalf("expected groq model when key set, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "gsk_test" {
		t.Fatalf("expected env api key, got %q", cfg.LLM.APIKey)
	}
}

func TestExecContext(t *testing.T) {
	cfg := Default()
	cfg.Exec.Timeout = 7
	cfg.Exec.MaxOutputLines = 3

	ec := cfg.ExecContext(true)
	if !ec.DryRun {
		t.Fatal("expected dry-run to carry through")
	}
	if ec.Timeout != 7*time.Second {
		t.Fatalf("expected 7s timeout, got %s", ec.Timeout)
	}
	if ec.MaxOutputLines != 3 {
		t.Fatalf("expected 3 max output lines, got %d", ec.MaxOutputLines)
	}
}
