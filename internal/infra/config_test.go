package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fxrate_go/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
storage:
  path: /tmp/fx.db
api:
  rates:
    timeout_sec: 3
history:
  default_days: 90
  persist_generated: true
  seed: 7
export:
  format: parquet
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Path != "/tmp/fx.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
	if cfg.API.Rates.TimeoutSec != 3 || cfg.History.DefaultDays != 90 || !cfg.History.PersistGenerated {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.History.Seed != 7 {
		t.Errorf("history seed = %d", cfg.History.Seed)
	}
	if cfg.Export.Format != "parquet" {
		t.Errorf("export format = %q", cfg.Export.Format)
	}
	// Keys absent from the file keep defaults.
	if len(cfg.API.Rates.URLs) != len(DefaultRateURLs) || cfg.Logging.Level != "info" {
		t.Errorf("defaults not kept: urls=%v level=%q", cfg.API.Rates.URLs, cfg.Logging.Level)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.History.DefaultDays != 30 {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("FXRATE_DB_PATH", "/data/env.db")
	t.Setenv("FXRATE_LOG_LEVEL", "DEBUG")
	t.Setenv("FXRATE_RATES_URLS", "http://a.example/rates, http://b.example/rates")

	cfg, err := LoadConfig(writeConfig(t, "storage:\n  path: /tmp/file.db\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Path != "/data/env.db" {
		t.Errorf("env should override path, got %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.API.Rates.URLs) != 2 || cfg.API.Rates.URLs[1] != "http://b.example/rates" {
		t.Errorf("urls = %v", cfg.API.Rates.URLs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.API.Rates.URLs = []string{"ftp://x"} }, "api.rates.urls"},
		{"zero timeout", func(c *Config) { c.API.Rates.TimeoutSec = 0 }, "api.rates.timeout_sec"},
		{"negative retries", func(c *Config) { c.API.Rates.MaxRetries = -1 }, "api.rates.max_retries"},
		{"zero days", func(c *Config) { c.History.DefaultDays = 0 }, "history.default_days"},
		{"bad format", func(c *Config) { c.Export.Format = "xlsx" }, "export.format"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			var cfgErr *domain.ConfigError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}
