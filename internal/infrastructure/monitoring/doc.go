/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the launcher
backend, tracking HTTP requests, the launcher tree, the SQLite store and
stream clients.

# Features

- HTTP request metrics (latency, throughput, size)
- Tree size and overflow cascade metrics
- Store write and commit outcomes
- Catalog size and rescans
- WebSocket connection metrics
- Uptime

Metrics satisfies launcher.Metrics and store.Observer directly, so the same
value is handed to the model and the store.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg)))
*/
package monitoring
