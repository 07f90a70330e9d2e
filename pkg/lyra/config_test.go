package lyra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
transports:
  provider: mock
vendors:
  recognition:
    provider: mock
  generation:
    provider: mock
  synthesis:
    provider: mock
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("log defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Session.MaxHistory != 12 {
		t.Fatalf("max_history = %d, want 12", cfg.Session.MaxHistory)
	}
	if cfg.Session.PendingAudioMaxFrames != 400 {
		t.Fatalf("pending_audio_max_frames = %d, want 400", cfg.Session.PendingAudioMaxFrames)
	}
	if cfg.Session.SampleRate != 8000 {
		t.Fatalf("sample_rate = %d, want 8000", cfg.Session.SampleRate)
	}
	if !cfg.Privacy.RedactPII {
		t.Fatal("redact_pii default should be true")
	}
}

func TestLoadConfigRequiresProviders(t *testing.T) {
	path := writeConfig(t, `
transports:
  provider: mock
vendors:
  recognition:
    provider: mock
  generation:
    provider: mock
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for missing synthesis provider")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DG_KEY", "secret-key")
	path := writeConfig(t, `
transports:
  provider: mock
vendors:
  recognition:
    provider: deepgram
    settings:
      api_key: ${TEST_DG_KEY}
  generation:
    provider: mock
  synthesis:
    provider: mock
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Vendors.Recognition.Settings["api_key"]; got != "secret-key" {
		t.Fatalf("api_key = %v, want expanded env value", got)
	}
}

func TestProviderRegistryRejectsUnknownProvider(t *testing.T) {
	r := NewProviderRegistry()
	cfg := Config{}
	cfg.Vendors.Generation.Provider = "nope"
	if _, err := r.BuildGenerator(cfg); err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestProviderRegistryBuildsMocks(t *testing.T) {
	r := NewProviderRegistry()
	cfg := Config{}
	cfg.Vendors.Recognition.Provider = "Mock"
	cfg.Vendors.Generation.Provider = "mock"
	cfg.Vendors.Synthesis.Provider = "MOCK"

	if _, err := r.BuildRecognizer(cfg, "MZ1", "CA1", "trace"); err != nil {
		t.Fatalf("BuildRecognizer: %v", err)
	}
	if _, err := r.BuildGenerator(cfg); err != nil {
		t.Fatalf("BuildGenerator: %v", err)
	}
	if _, err := r.BuildSynthesizer(cfg); err != nil {
		t.Fatalf("BuildSynthesizer: %v", err)
	}
}
