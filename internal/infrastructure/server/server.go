package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/homescreen/internal/api/http"
	"github.com/GriffinCanCode/homescreen/internal/api/middleware"
	"github.com/GriffinCanCode/homescreen/internal/api/ws"
	"github.com/GriffinCanCode/homescreen/internal/domain/launcher"
	"github.com/GriffinCanCode/homescreen/internal/domain/registry"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/config"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/eventloop"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/logging"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/tracing"
)

const (
	// ShutdownTimeout bounds how long in-flight requests get on shutdown
	ShutdownTimeout = 10 * time.Second

	loopQueue = 256

	streamUpgradeRPS   = 10
	streamUpgradeBurst = 20
)

// Server wires the launcher model to its store, catalog, HTTP API and event
// stream. Every model access goes through the event loop.
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	loop     *eventloop.Loop
	store    *store.Store
	catalog  *registry.Catalog
	watcher  *registry.Watcher
	model    *launcher.Model
	hub      *ws.Hub
	router   *gin.Engine
	http     *http.Server
}

// New builds every component and loads the launcher tree. The event loop
// is not running yet, so loading touches the model directly.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}
	logger.Info("Initializing launcher server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("store", cfg.Store.Path),
		zap.String("apps_dir", cfg.Registry.AppsDir),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)
	tracer := tracing.New("launcherd", logger.Component("tracing"))
	loop := eventloop.New(logger.Component("eventloop"), loopQueue)

	breakerLog := logger.Component("breaker")
	breaker := resilience.New("store", resilience.Settings{
		OnStateChange: func(name string, from, to resilience.State) {
			breakerLog.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	st, err := store.Open(ctx, store.Options{
		Path:       cfg.Store.Path,
		CommitIdle: cfg.Store.CommitIdle,
		Scheduler:  loop,
		Breaker:    breaker,
		Observer:   metrics,
		Logger:     logger.Component("store"),
	})
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	catalog := registry.NewCatalog(cfg.Registry.AppsDir, logger.Component("registry"))
	if _, err := catalog.Scan(ctx); err != nil {
		logger.Warn("Initial app scan failed", zap.Error(err))
	}
	metrics.SetCatalogApps(len(catalog.Apps()))

	hub := ws.NewHub(ws.Options{
		Origins: cfg.Server.AllowedOrigins,
		Metrics: metrics,
		Logger:  logger.Component("ws"),
	})

	model, err := launcher.New(launcher.Options{
		Store:     st,
		Catalog:   catalog,
		Presenter: hub,
		Layout: launcher.Layout{
			ListPageCapacity:   cfg.Layout.ListPageCapacity,
			FolderPageCapacity: cfg.Layout.FolderPageCapacity,
			FolderMaxItems:     cfg.Layout.FolderMaxItems,
			HomePageCapacity:   cfg.Layout.HomePageCapacity,
		},
		Comparator: launcher.DefaultComparator(cfg.Layout.SortLocale),
		Metrics:    metrics,
		Logger:     logger.Component("launcher"),
	})
	if err != nil {
		_ = st.Close()
		tracer.Close()
		return nil, err
	}

	err = tracer.Trace(ctx, "launcher.load", func(ctx context.Context) error {
		strategy, err := model.LoadAuto(ctx)
		if err == nil {
			logger.Info("Launcher tree loaded",
				zap.Stringer("strategy", strategy),
				zap.Int("nodes", model.Len()))
		}
		return err
	})
	if err != nil {
		_ = st.Close()
		tracer.Close()
		return nil, fmt.Errorf("load launcher: %w", err)
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics,
		tracer:   tracer,
		loop:     loop,
		store:    st,
		catalog:  catalog,
		model:    model,
		hub:      hub,
	}
	if cfg.Registry.Watch {
		s.watcher = registry.NewWatcher(catalog, s.onCatalogChange,
			registry.WithDebounce(cfg.Registry.Debounce),
			registry.WithLogger(logger.Component("watcher")))
	}
	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	httpLog := s.logger.Component("http")
	router.Use(middleware.Recovery(httpLog))
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(middleware.Logger(httpLog))
	router.Use(monitoring.Middleware(s.metrics, "/stream", "/metrics"))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(s.config.Server.AllowedOrigins...)))
	if rl := s.config.RateLimit; rl.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", rl.RequestsPerSecond),
			zap.Int("burst", rl.Burst),
		)
		cfg := middleware.DefaultRateLimitConfig()
		cfg.RequestsPerSecond = rl.RequestsPerSecond
		cfg.Burst = rl.Burst
		router.Use(middleware.RateLimit(cfg))
	}

	handlers := api.NewHandlers(s.model, s.loop, s.catalog, s.metrics, httpLog).
		WithStore(s.store).
		WithLogLevel(s.logger)
	handlers.Register(router)

	router.GET("/stream",
		middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: streamUpgradeRPS,
			Burst:             streamUpgradeBurst,
		}),
		s.hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(monitoring.Handler(s.registry)))
	return router
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled or a component fails, then shuts the
// HTTP server down, commits pending writes and stops the event loop.
func (s *Server) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go func() {
		if err := s.loop.Run(loopCtx); err != nil {
			s.logger.Error("Event loop failed", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		stopLoop()
		<-s.loop.Done()
		return errors.Join(fmt.Errorf("listen: %w", err), s.close())
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	if s.watcher != nil {
		g.Go(func() error {
			return s.watcher.Run(gctx)
		})
	}
	g.Go(func() error {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server...")
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	runErr := g.Wait()

	flushErr := s.flush()
	stopLoop()
	<-s.loop.Done()

	return errors.Join(runErr, flushErr, s.close())
}

// flush commits pending writes from the loop so no idle timer fires
// mid-commit.
func (s *Server) flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var flushErr error
	if err := s.loop.Do(ctx, func() { flushErr = s.model.Flush(ctx) }); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return flushErr
}

func (s *Server) close() error {
	err := s.store.Close()
	if err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
	}
	s.tracer.Close()
	_ = s.logger.Sync()
	return err
}

// onCatalogChange runs on the watcher goroutine and hands the diff to the
// loop.
func (s *Server) onCatalogChange(diff registry.Diff) {
	s.metrics.IncCatalogRescans()
	s.metrics.SetCatalogApps(len(s.catalog.Apps()))
	if !s.loop.Post(func() { s.applyDiff(diff) }) {
		s.logger.Warn("Event loop stopped, dropping catalog change")
	}
}

func (s *Server) applyDiff(diff registry.Diff) {
	_ = s.tracer.Trace(context.Background(), "registry.apply", func(context.Context) error {
		var errs []error
		for _, app := range diff.Installed {
			if _, err := s.model.OnAppInstalled(app); err != nil {
				errs = append(errs, fmt.Errorf("install %s: %w", app.AppID, err))
			}
		}
		for _, appID := range diff.Uninstalled {
			if err := s.model.OnAppUninstalled(appID); err != nil && !errors.Is(err, launcher.ErrInvalidNode) {
				errs = append(errs, fmt.Errorf("uninstall %s: %w", appID, err))
			}
		}
		for _, app := range diff.Updated {
			if err := s.model.OnBadgeChanged(app.AppID, app.Badge); err != nil && !errors.Is(err, launcher.ErrInvalidNode) {
				errs = append(errs, fmt.Errorf("badge %s: %w", app.AppID, err))
			}
		}
		err := errors.Join(errs...)
		if err != nil {
			s.logger.Warn("Catalog change partly applied", zap.Error(err))
		}
		s.logger.Info("Catalog change applied",
			zap.Int("installed", len(diff.Installed)),
			zap.Int("uninstalled", len(diff.Uninstalled)),
			zap.Int("updated", len(diff.Updated)))
		return err
	})
}
