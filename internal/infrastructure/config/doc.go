// Package config provides 12-factor configuration management for the launcher backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS origins)
//   - Store: SQLite file path and idle commit delay
//   - Layout: page capacities and sort locale
//   - Registry: apps directory and watch settings
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - LAUNCHER_DB, STORE_COMMIT_IDLE
//   - LIST_PAGE_CAPACITY, FOLDER_PAGE_CAPACITY, FOLDER_MAX_ITEMS, HOME_PAGE_CAPACITY, SORT_LOCALE
//   - APPS_DIR, APPS_WATCH, APPS_DEBOUNCE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
