// Package ws streams launcher view notifications to WebSocket clients.
//
// The Hub implements the launcher's Presenter. Every notification is
// encoded once and queued on each client's buffered send channel; a client
// whose queue is full misses that event and should resynchronize with
// GET /tree after its next refresh.
//
// Message Types (Server → Client):
//   - item_uninstalled: an item's rendering should be dropped
//   - refresh: the subtree rooted at id should be redrawn
//   - render: a rendering should be created for item
//
// Client frames are read and discarded; the connection is kept alive with
// ping/pong control frames.
//
// Example Usage:
//
//	hub := ws.NewHub(ws.Options{Metrics: metrics, Logger: logger})
//	router.GET("/stream", hub.HandleConnection)
package ws
