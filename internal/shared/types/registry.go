package types

import "time"

// AppInfo describes an installed application as reported by the app catalog.
type AppInfo struct {
	AppID     string `json:"id" yaml:"id" toml:"id" binding:"required"`
	Label     string `json:"label" yaml:"label" toml:"label"`
	IconPath  string `json:"icon" yaml:"icon" toml:"icon"`
	Exec      string `json:"exec" yaml:"exec" toml:"exec"`
	Removable bool   `json:"removable" yaml:"removable" toml:"removable"`
	Badge     int    `json:"badge,omitempty" yaml:"badge" toml:"badge"`
}

// CatalogStats contains app catalog statistics
type CatalogStats struct {
	TotalApps   int        `json:"total_apps"`
	Removable   int        `json:"removable"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}
