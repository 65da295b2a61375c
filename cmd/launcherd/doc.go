// Command launcherd runs the homescreen launcher daemon.
//
// It reads configuration from the environment (see the config package),
// lets command-line flags override it, loads the launcher tree from the
// database or the apps directory and serves the HTTP API until SIGINT or
// SIGTERM. Pending writes are committed before exit.
//
// Usage:
//
//	launcherd -port 8000 -db /var/lib/launcher/launcher.db -apps /usr/share/apps
package main
