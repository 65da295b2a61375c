package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/domain/launcher"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// Executor runs fn on the goroutine that owns the model and waits for it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// CatalogStats reports on the app catalog.
type CatalogStats interface {
	Stats() types.CatalogStats
}

// StoreHealth reports on the store's write path.
type StoreHealth interface {
	Health() resilience.Stats
}

// Handlers contains all HTTP handlers. Every model access is submitted
// through the executor; handlers never touch the model directly.
type Handlers struct {
	model   *launcher.Model
	loop    Executor
	catalog CatalogStats
	metrics *monitoring.Metrics
	store   StoreHealth
	levels  LevelControl
	logger  *zap.Logger
	started time.Time
}

// NewHandlers creates a new handler set. catalog and metrics may be nil.
func NewHandlers(
	model *launcher.Model,
	loop Executor,
	catalog CatalogStats,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		model:   model,
		loop:    loop,
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
		started: time.Now(),
	}
}

// WithStore adds the store's breaker state to /health.
func (h *Handlers) WithStore(store StoreHealth) *Handlers {
	h.store = store
	return h
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Tree
	r.GET("/tree", h.Tree)
	r.GET("/items/:id", h.GetItem)
	r.GET("/items/:id/children", h.GetChildren)
	r.POST("/items/:id/move", h.MoveItem)
	r.PUT("/items/:id/label", h.RenameItem)
	r.PUT("/items/:id/geometry", h.SetGeometry)
	r.POST("/items/:id/check", h.CheckItem)
	r.GET("/checked/count", h.CountChecked)
	r.GET("/search", h.Search)

	// App notifications
	r.POST("/apps", h.InstallApp)
	r.DELETE("/apps/:appId", h.UninstallApp)
	r.PUT("/apps/:appId/badge", h.SetBadge)

	// Folders
	r.POST("/folders", h.MergeFolder)
	r.DELETE("/folders/:id", h.DeleteFolder)
	r.POST("/folders/:id/items", h.AddToFolder)
	r.POST("/folders/:id/release", h.ReleaseFromFolder)

	// Maintenance
	r.POST("/sort", h.SortAll)
	r.POST("/tidy", h.Tidy)
	r.POST("/store/rebuild", h.Rebuild)

	// Home screen
	r.POST("/home/pages", h.AddHomePage)
	r.POST("/widgets", h.AddWidget)
	r.DELETE("/widgets/:id", h.RemoveWidget)

	r.GET("/metrics/json", h.MetricsJSON)

	if h.levels != nil {
		r.GET("/log/level", h.GetLogLevel)
		r.PUT("/log/level", h.SetLogLevel)
	}
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "launcher",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	var nodes int
	var roots launcher.Roots
	if err := h.loop.Do(c.Request.Context(), func() {
		nodes = h.model.Len()
		roots = h.model.Roots()
	}); err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{
		"status":         "healthy",
		"nodes":          nodes,
		"roots":          roots,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if h.catalog != nil {
		resp["catalog"] = h.catalog.Stats()
	}
	if h.store != nil {
		st := h.store.Health()
		resp["store"] = st
		if st.State != resilience.StateClosed {
			resp["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// MetricsJSON returns the metrics snapshot
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// run executes fn on the loop and writes its result as JSON. A nil result
// is answered with {"success": true}.
func (h *Handlers) run(c *gin.Context, fn func() (any, error)) {
	var (
		out any
		err error
	)
	if lerr := h.loop.Do(c.Request.Context(), func() { out, err = fn() }); lerr != nil {
		h.fail(c, lerr)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = gin.H{"success": true}
	}
	c.JSON(http.StatusOK, out)
}
