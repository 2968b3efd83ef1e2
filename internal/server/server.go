package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sensorwatch-lab/sensorwatch/internal/metrics"
)

const (
	healthTimeout          = 2 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouteRegistrar mounts a service's routes.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

type Config struct {
	Addr            string
	Mode            string
	ShutdownTimeout time.Duration
}

type Server struct {
	Engine *gin.Engine
	Addr   string

	store           HealthChecker
	shutdownTimeout time.Duration
}

// New builds the engine with /health and, when gatherer is non-nil, /metrics.
func New(cfg Config, store HealthChecker, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	// Set Gin mode based on configuration
	if cfg.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if m != nil {
		r.Use(m.Middleware())
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		Engine:          r,
		Addr:            cfg.Addr,
		store:           store,
		shutdownTimeout: shutdownTimeout,
	}

	// Health check endpoint with store connectivity verification
	r.GET("/health", s.healthHandler)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Register mounts the routes of each service on the engine.
func (s *Server) Register(services ...RouteRegistrar) {
	for _, svc := range services {
		svc.RegisterRoutes(s.Engine)
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			slog.Error("Health check failed: reading store unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "reading store unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}
