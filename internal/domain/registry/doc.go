// Package registry provides the application catalog for the launcher.
//
// The catalog is the set of applications installed on the device. Each
// application is described by a manifest file under the apps directory.
//
// Components:
//   - Catalog: scans the apps directory and answers Apps/Lookup queries;
//     Register and Unregister write or delete a manifest for install
//     notifications so the next scan agrees with them
//   - Watcher: rescans on filesystem changes and reports what changed
//
// Manifest Formats:
//   - YAML (.yaml, .yml), JSON (.json) and TOML (.toml)
//   - Required: id. Optional: label, icon, exec, removable, badge
//   - Labels are reduced to plain text before they reach the launcher
//
// Example Manifest:
//
//	id: org.example.mail
//	label: Mail
//	icon: icons/mail.png
//	exec: mail --new-window
//	removable: true
//
// Example Usage:
//
//	catalog := registry.NewCatalog(appsDir, logger)
//	diff, err := catalog.Scan(ctx)
//	app, ok := catalog.Lookup("org.example.mail")
package registry
