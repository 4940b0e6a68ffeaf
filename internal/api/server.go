package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/symmetryops/pulse-core/internal/aggregator"
	"github.com/symmetryops/pulse-core/internal/api/handlers"
	"github.com/symmetryops/pulse-core/internal/api/middleware"
	"github.com/symmetryops/pulse-core/internal/config"
	"github.com/symmetryops/pulse-core/internal/monitoring"
	"github.com/symmetryops/pulse-core/internal/services"
	"github.com/symmetryops/pulse-core/pkg/logger"
)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	backends   *services.Backends
	aggregator *aggregator.Aggregator
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, log logger.Logger, backends *services.Backends, agg *aggregator.Aggregator) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:     cfg,
		logger:     log,
		backends:   backends,
		aggregator: agg,
		router:     router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(s.logger))

	if s.config.Monitoring.Enabled {
		s.router.Use(monitoring.HTTPMetricsMiddleware())
		monitoring.SetupPrometheusMetrics(s.router, s.config.Monitoring.MetricsPath)
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.config, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")

	metricsHandler := handlers.NewMetricsHandler(s.aggregator, s.logger)
	v1.GET("/metrics/infrastructure", metricsHandler.GetInfrastructureMetrics)
	v1.GET("/metrics/database", metricsHandler.GetDatabaseMetrics)
	v1.GET("/metrics/llm", metricsHandler.GetLLMMetrics)
	v1.GET("/metrics/errors", metricsHandler.GetErrorMetrics)
	v1.GET("/metrics/deployments", metricsHandler.GetDeploymentMetadata)

	if s.config.WebSocket.Enabled {
		stream := handlers.NewStreamHandler(s.aggregator, s.config.WebSocket, s.logger)
		v1.GET("/ws/overview", stream.HandleOverviewStream)
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("PULSE-CORE API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down PULSE-CORE gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.backends.Close()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
