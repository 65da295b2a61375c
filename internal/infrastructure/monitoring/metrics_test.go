package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value reads a single counter or gauge
func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	m, ok := <-ch
	require.True(t, ok, "collector produced no metric")

	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	}
	require.FailNow(t, "not a counter or gauge")
	return 0
}

func TestStoreObserver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveWrite("upsert", nil)
	m.ObserveWrite("upsert", nil)
	m.ObserveWrite("delete", errors.New("disk full"))
	m.ObserveCommit(1500*time.Millisecond, nil)

	assert.Equal(t, 2.0, value(t, m.StoreWrites.WithLabelValues("upsert", "ok")))
	assert.Equal(t, 1.0, value(t, m.StoreWrites.WithLabelValues("delete", "error")))
	assert.Equal(t, 1.0, value(t, m.StoreCommits.WithLabelValues("ok")))
	assert.Equal(t, int64(1), m.Snapshot().StoreFailures)
}

func TestTreeMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetNodes(42)
	m.ObserveCascade(3)
	m.ObserveCascade(1)

	assert.Equal(t, 42.0, value(t, m.TreeNodes))
	assert.Equal(t, 2.0, value(t, m.CascadesTotal))
	assert.Equal(t, int64(42), m.Snapshot().TreeNodes)
}

func TestWSMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.RecordWSMessage("out", "refresh")
	m.IncWSDropped()

	assert.Equal(t, 1.0, value(t, m.WSConnections))
	assert.Equal(t, 1.0, value(t, m.WSMessages.WithLabelValues("out", "refresh")))
	assert.Equal(t, 1.0, value(t, m.WSDropped))
	assert.Equal(t, int64(1), m.Snapshot().ActiveConnections)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(Handler(reg)))

	for _, path := range []string{"/items/1", "/items/2", "/nowhere"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, value(t, m.RequestsTotal.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, value(t, m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "launcher_http_requests_total"))
	assert.True(t, strings.Contains(body, "launcher_uptime_seconds"))
}

func TestMiddlewareSkipsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(Middleware(m, "/metrics"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(Handler(reg)))

	for _, path := range []string{"/metrics", "/health", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, int64(1), m.Snapshot().TotalRequests)
	assert.Equal(t, 0.0, value(t, m.RequestsTotal.WithLabelValues("GET", "/metrics", "200")))
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
