// Package http provides HTTP handlers and routing for the launcher REST API.
//
// Handlers translate requests into model calls and submit them to the event
// loop, so the launcher model is only ever touched from one goroutine.
//
// Endpoints:
//   - Health: / and /health, /metrics/json
//   - Tree: /tree, /items/:id, /items/:id/children, /search?app_id=
//   - Editing: /items/:id/move, /items/:id/label, /items/:id/geometry, /items/:id/check
//   - Apps: POST /apps, DELETE /apps/:appId, PUT /apps/:appId/badge
//   - Folders: POST /folders, DELETE /folders/:id, /folders/:id/items, /folders/:id/release
//   - Maintenance: /sort, /tidy, /store/rebuild
//   - Home: /home/pages, /widgets, /widgets/:id
//   - Logging: GET and PUT /log/level, when WithLogLevel was called
//
// Status Codes:
//   - 404: unknown item or app
//   - 409: folder full
//   - 400: malformed request or a move the layout does not allow
//   - 503: store circuit open or event loop stopped
//   - 500: store write failed; the in-memory change is kept
//
// Example Usage:
//
//	handlers := http.NewHandlers(model, loop, catalog, metrics, logger)
//	handlers.Register(router)
package http
