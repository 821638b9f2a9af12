package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("address = %s, want 0.0.0.0:8080", cfg.Server.Address())
	}
	if cfg.Providers.RatePerMinute != 30 {
		t.Errorf("provider rate = %d, want 30", cfg.Providers.RatePerMinute)
	}
	if cfg.Providers.Timeout().Seconds() != 60 {
		t.Errorf("provider timeout = %s, want 60s", cfg.Providers.Timeout())
	}
	if cfg.Providers.APIKey != "" {
		t.Error("no API key should be configured by default")
	}
	if len(cfg.Vision.ProviderOrder) != 2 || cfg.Vision.ProviderOrder[0] != "anthropic" {
		t.Errorf("vision order = %v, want anthropic first", cfg.Vision.ProviderOrder)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %s, want info", cfg.Log.Level)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AUTOPILOT_SERVER_PORT", "9090")
	t.Setenv("AUTOPILOT_PROVIDERS_API_KEY", "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Providers.APIKey != "from-env" {
		t.Errorf("api key = %q, want env override", cfg.Providers.APIKey)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 7070
providers:
  base_url: https://transform.internal
  rate_per_minute: 5
auth:
  api_keys:
    - key-one
    - key-two
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070 from file", cfg.Server.Port)
	}
	if cfg.Providers.BaseURL != "https://transform.internal" {
		t.Errorf("base url = %s", cfg.Providers.BaseURL)
	}
	if cfg.Providers.RatePerMinute != 5 {
		t.Errorf("rate = %d, want 5", cfg.Providers.RatePerMinute)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("api keys = %v, want two entries", cfg.Auth.APIKeys)
	}
	// Untouched keys keep their defaults.
	if cfg.Providers.TimeoutSeconds != 60 {
		t.Errorf("timeout = %d, want default 60", cfg.Providers.TimeoutSeconds)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("an explicitly named missing config file should fail loudly")
	}
}
