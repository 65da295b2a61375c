package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())

	// Store config
	assert.Equal(t, "launcher.db", cfg.Store.Path)
	assert.Equal(t, 2*time.Second, cfg.Store.CommitIdle)

	// Layout config
	assert.Equal(t, 20, cfg.Layout.ListPageCapacity)
	assert.Equal(t, 12, cfg.Layout.FolderPageCapacity)
	assert.Equal(t, 12, cfg.Layout.FolderMaxItems)
	assert.Equal(t, 4, cfg.Layout.HomePageCapacity)
	assert.Equal(t, "en", cfg.Layout.SortLocale)

	// Registry config
	assert.Equal(t, "apps", cfg.Registry.AppsDir)
	assert.True(t, cfg.Registry.Watch)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                 "9000",
		"HOST":                 "127.0.0.1",
		"CORS_ORIGINS":         "http://a.test,http://b.test",
		"LAUNCHER_DB":          "/var/lib/launcher/items.db",
		"STORE_COMMIT_IDLE":    "750ms",
		"LIST_PAGE_CAPACITY":   "24",
		"FOLDER_PAGE_CAPACITY": "9",
		"FOLDER_MAX_ITEMS":     "27",
		"HOME_PAGE_CAPACITY":   "6",
		"SORT_LOCALE":          "sv",
		"APPS_DIR":             "/usr/share/apps",
		"APPS_WATCH":           "false",
		"LOG_LEVEL":            "debug",
		"LOG_DEV":              "true",
		"RATE_LIMIT_RPS":       "500",
		"RATE_LIMIT_BURST":     "1000",
		"RATE_LIMIT_ENABLED":   "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/var/lib/launcher/items.db", cfg.Store.Path)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.CommitIdle)
	assert.Equal(t, LayoutConfig{
		ListPageCapacity:   24,
		FolderPageCapacity: 9,
		FolderMaxItems:     27,
		HomePageCapacity:   6,
		SortLocale:         "sv",
	}, cfg.Layout)
	assert.Equal(t, "/usr/share/apps", cfg.Registry.AppsDir)
	assert.False(t, cfg.Registry.Watch)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 20, cfg.Layout.ListPageCapacity)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero list capacity", "LIST_PAGE_CAPACITY", "0"},
		{"negative folder cap", "FOLDER_MAX_ITEMS", "-1"},
		{"zero home capacity", "HOME_PAGE_CAPACITY", "0"},
		{"unparsable capacity", "FOLDER_PAGE_CAPACITY", "twelve"},
		{"zero commit idle", "STORE_COMMIT_IDLE", "0s"},
		{"empty db path", "LAUNCHER_DB", ""},
		{"zero rps", "RATE_LIMIT_RPS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg, "falls back to defaults")
		})
	}
}

func TestRateLimitDisabledSkipsRPSCheck(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.RateLimit.Enabled)
}
