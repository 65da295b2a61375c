// Package server assembles the launcher daemon.
//
// New opens the store, scans the app directory, loads the launcher tree and
// builds the gin router with the HTTP API, the /stream WebSocket and the
// Prometheus /metrics endpoint. Run starts the event loop, the catalog
// watcher and the HTTP listener, and on shutdown commits pending writes
// through the loop before closing the store.
//
// Example Usage:
//
//	srv, err := server.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
