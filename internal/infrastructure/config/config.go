package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Layout    LayoutConfig
	Registry  RegistryConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"8000"`
	Host           string   `envconfig:"HOST" default:"0.0.0.0"`
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path       string        `envconfig:"LAUNCHER_DB" default:"launcher.db"`
	CommitIdle time.Duration `envconfig:"STORE_COMMIT_IDLE" default:"2s"`
}

// LayoutConfig holds page capacities and the sort locale.
type LayoutConfig struct {
	ListPageCapacity   int    `envconfig:"LIST_PAGE_CAPACITY" default:"20"`
	FolderPageCapacity int    `envconfig:"FOLDER_PAGE_CAPACITY" default:"12"`
	FolderMaxItems     int    `envconfig:"FOLDER_MAX_ITEMS" default:"12"`
	HomePageCapacity   int    `envconfig:"HOME_PAGE_CAPACITY" default:"4"`
	SortLocale         string `envconfig:"SORT_LOCALE" default:"en"`
}

// RegistryConfig holds app catalog configuration.
type RegistryConfig struct {
	AppsDir  string        `envconfig:"APPS_DIR" default:"apps"`
	Watch    bool          `envconfig:"APPS_WATCH" default:"true"`
	Debounce time.Duration `envconfig:"APPS_DEBOUNCE" default:"500ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Path:       "launcher.db",
			CommitIdle: 2 * time.Second,
		},
		Layout: LayoutConfig{
			ListPageCapacity:   20,
			FolderPageCapacity: 12,
			FolderMaxItems:     12,
			HomePageCapacity:   4,
			SortLocale:         "en",
		},
		Registry: RegistryConfig{
			AppsDir:  "apps",
			Watch:    true,
			Debounce: 500 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	var errs []error
	capacities := []struct {
		name string
		v    int
	}{
		{"LIST_PAGE_CAPACITY", c.Layout.ListPageCapacity},
		{"FOLDER_PAGE_CAPACITY", c.Layout.FolderPageCapacity},
		{"FOLDER_MAX_ITEMS", c.Layout.FolderMaxItems},
		{"HOME_PAGE_CAPACITY", c.Layout.HomePageCapacity},
	}
	for _, cp := range capacities {
		if cp.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", cp.name, cp.v))
		}
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("LAUNCHER_DB must not be empty"))
	}
	if c.Store.CommitIdle <= 0 {
		errs = append(errs, fmt.Errorf("STORE_COMMIT_IDLE must be positive, got %s", c.Store.CommitIdle))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimit.RequestsPerSecond))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
