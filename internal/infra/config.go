package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fxrate_go/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultRateURLs are the USD-based endpoints tried in order.
var DefaultRateURLs = []string{
	"https://api.exchangerate.host/latest?base=USD",
	"https://api.fxratesapi.com/latest?base=USD",
}

// Config holds every application setting.
// After LoadConfig reads the file, environment variables override selected values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Storage struct {
		Path string `yaml:"path"` // empty = per-user default
	} `yaml:"storage"`

	API struct {
		Rates struct {
			URLs       []string `yaml:"urls"`
			TimeoutSec int      `yaml:"timeout_sec"`
			MaxRetries int      `yaml:"max_retries"`
		} `yaml:"rates"`
	} `yaml:"api"`

	History struct {
		DefaultDays      int    `yaml:"default_days"`
		PersistGenerated bool   `yaml:"persist_generated"`
		Seed             uint64 `yaml:"seed"` // 0 = nondeterministic simulation
	} `yaml:"history"`

	Export struct {
		Format string `yaml:"format"`
		Dir    string `yaml:"dir"`
	} `yaml:"export"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "fxrate"
	cfg.App.Version = "1.0.0"
	cfg.API.Rates.URLs = append([]string(nil), DefaultRateURLs...)
	cfg.API.Rates.TimeoutSec = 10
	cfg.API.Rates.MaxRetries = 2
	cfg.History.DefaultDays = 30
	cfg.Export.Format = "csv"
	cfg.Export.Dir = "exports"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads and parses the config file. Keys missing from the file keep
// their DefaultConfig values. A missing file returns an error wrapping
// domain.ErrConfigNotFound.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Environment overrides win over the file
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to DefaultConfig (with env overrides)
// when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, domain.ErrConfigNotFound) {
		cfg = DefaultConfig()
		overrideWithEnv(cfg)
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	for _, u := range c.API.Rates.URLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return &domain.ConfigError{Field: "api.rates.urls", Err: fmt.Errorf("invalid URL: %s", u)}
		}
	}
	if c.API.Rates.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "api.rates.timeout_sec", Err: errors.New("must be positive")}
	}
	if c.API.Rates.MaxRetries < 0 {
		return &domain.ConfigError{Field: "api.rates.max_retries", Err: errors.New("must not be negative")}
	}
	if c.History.DefaultDays < 1 {
		return &domain.ConfigError{Field: "history.default_days", Err: domain.ErrInvalidDays}
	}

	switch c.Export.Format {
	case "csv", "json", "parquet":
	default:
		return &domain.ConfigError{Field: "export.format", Err: fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, c.Export.Format)}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level: %s", c.Logging.Level)}
	}

	return nil
}

// overrideWithEnv overwrites settings with environment variables when present.
func overrideWithEnv(cfg *Config) {
	if path := os.Getenv("FXRATE_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("FXRATE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if urls := os.Getenv("FXRATE_RATES_URLS"); urls != "" {
		var list []string
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				list = append(list, u)
			}
		}
		cfg.API.Rates.URLs = list
	}
}
