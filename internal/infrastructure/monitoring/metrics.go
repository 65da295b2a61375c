package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Launcher tree metrics
	TreeNodes       prometheus.Gauge
	RepositionPages prometheus.Histogram
	CascadesTotal   prometheus.Counter
	CatalogApps     prometheus.Gauge
	CatalogRescans  prometheus.Counter

	// Store metrics
	StoreWrites     *prometheus.CounterVec
	StoreCommits    *prometheus.CounterVec
	StoreCommitHeld prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSDropped     prometheus.Counter

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	TreeNodes         int64   `json:"tree_nodes"`
	StoreFailures     int64   `json:"store_failures"`
	ActiveConnections int64   `json:"active_connections"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector registered with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Launcher tree metrics
		TreeNodes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_tree_nodes",
				Help: "Number of nodes in the launcher tree",
			},
		),
		RepositionPages: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_cascade_pages",
				Help:    "Pages touched by overflow cascades",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		CascadesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_cascades_total",
				Help: "Total number of overflow cascades",
			},
		),
		CatalogApps: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_catalog_apps",
				Help: "Number of apps in the catalog",
			},
		),
		CatalogRescans: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_catalog_rescans_total",
				Help: "Total number of catalog rescans that changed something",
			},
		),

		// Store metrics
		StoreWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_store_writes_total",
				Help: "Total number of store writes",
			},
			[]string{"op", "status"},
		),
		StoreCommits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_store_commits_total",
				Help: "Total number of store commits",
			},
			[]string{"status"},
		),
		StoreCommitHeld: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_store_transaction_held_seconds",
				Help:    "How long a write transaction stayed open before commit",
				Buckets: []float64{.01, .1, .5, 1, 2, 5, 10, 30},
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WSDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_ws_dropped_total",
				Help: "Messages dropped because a client fell behind",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "launcher_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetNodes sets the current tree size
func (m *Metrics) SetNodes(n int) {
	m.TreeNodes.Set(float64(n))
	m.mu.Lock()
	m.snapshot.TreeNodes = int64(n)
	m.mu.Unlock()
}

// ObserveCascade records an overflow cascade across pages
func (m *Metrics) ObserveCascade(pages int) {
	m.CascadesTotal.Inc()
	m.RepositionPages.Observe(float64(pages))
}

// ObserveWrite records a store write outcome
func (m *Metrics) ObserveWrite(op string, err error) {
	m.StoreWrites.WithLabelValues(op, status(err)).Inc()
	if err != nil {
		m.mu.Lock()
		m.snapshot.StoreFailures++
		m.mu.Unlock()
	}
}

// ObserveCommit records a store commit outcome
func (m *Metrics) ObserveCommit(held time.Duration, err error) {
	m.StoreCommits.WithLabelValues(status(err)).Inc()
	m.StoreCommitHeld.Observe(held.Seconds())
}

// SetCatalogApps sets the number of apps in the catalog
func (m *Metrics) SetCatalogApps(count int) {
	m.CatalogApps.Set(float64(count))
}

// IncCatalogRescans counts a catalog rescan that produced a change
func (m *Metrics) IncCatalogRescans() {
	m.CatalogRescans.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSDropped counts a message dropped for a slow client
func (m *Metrics) IncWSDropped() {
	m.WSDropped.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.TotalRequests > 0 {
		s.AvgDurationMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
