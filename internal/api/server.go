package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/internal/api/handlers"
	"github.com/platformbuilds/vigil-core/internal/api/middleware"
	"github.com/platformbuilds/vigil-core/internal/config"
	"github.com/platformbuilds/vigil-core/internal/intelligence"
	"github.com/platformbuilds/vigil-core/internal/monitoring"
	"github.com/platformbuilds/vigil-core/pkg/cache"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

// Engines bundles the analytic components the server exposes.
type Engines struct {
	Anomaly    *intelligence.AnomalyDetector
	Predictive *intelligence.PredictiveAlertGenerator
	RootCause  *intelligence.RootCauseAnalyzer
	Capacity   *intelligence.CapacityPlanner
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	cache      cache.ValkeyCache
	manager    *alerting.Manager
	engines    Engines
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	valkeyCache cache.ValkeyCache,
	manager *alerting.Manager,
	engines Engines,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:  cfg,
		logger:  log,
		cache:   valkeyCache,
		manager: manager,
		engines: engines,
		router:  router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// CORS for VIGIL-UI communication
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))

	// Request logging
	s.router.Use(middleware.RequestLogger(s.logger))

	// Prometheus request metrics
	s.router.Use(middleware.MetricsMiddleware())

	// Rate limiting backed by the Valkey cache
	s.router.Use(middleware.RateLimiter(s.cache))

	// OpenAPI specification
	s.router.StaticFile("/api/openapi.yaml", "api/openapi.yaml")

	// Swagger UI via gin-swagger; visit /swagger/index.html
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.yaml")))

	// Prometheus metrics endpoint
	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.manager, s.cache, s.logger)

	// Public health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	// Root redirect to Swagger UI for convenience
	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	v1 := s.router.Group("/api/v1")

	// Back-compat: expose health under /api/v1 as well
	v1.GET("/health", healthHandler.HealthCheck)
	v1.GET("/ready", healthHandler.ReadinessCheck)

	// Alert rule and alert lifecycle endpoints
	alertHandler := handlers.NewAlertHandler(s.manager, s.logger)
	v1.GET("/rules", alertHandler.GetRules)
	v1.GET("/alerts", alertHandler.GetActiveAlerts)
	v1.GET("/alerts/history", alertHandler.GetAlertHistory)
	v1.POST("/alerts/fire", alertHandler.FireAlert)
	v1.POST("/alerts/:ruleId/resolve", alertHandler.ResolveAlert)

	// Incident lifecycle endpoints
	incidentHandler := handlers.NewIncidentHandler(s.manager, s.logger)
	v1.GET("/incidents", incidentHandler.GetIncidents)
	v1.POST("/incidents", incidentHandler.CreateIncident)
	v1.GET("/incidents/:id", incidentHandler.GetIncident)
	v1.PUT("/incidents/:id/status", incidentHandler.UpdateIncidentStatus)

	// Notification channel endpoints
	channelHandler := handlers.NewChannelHandler(s.manager, s.logger)
	v1.GET("/channels", channelHandler.GetChannels)
	v1.POST("/channels/test", channelHandler.TestChannels)

	// Intelligence endpoints (anomalies, predictions, RCA, capacity)
	intelligenceHandler := handlers.NewIntelligenceHandler(
		s.engines.Anomaly,
		s.engines.Predictive,
		s.engines.RootCause,
		s.engines.Capacity,
		s.manager,
		s.cache,
		s.logger,
		time.Duration(s.config.Intelligence.CacheTTL)*time.Second,
		s.config.Intelligence.Predict.MinProbability,
	)
	v1.POST("/intelligence/anomalies", intelligenceHandler.DetectAnomalies)
	v1.POST("/intelligence/predictions", intelligenceHandler.AnalyzePredictions)
	v1.POST("/intelligence/rca/:incidentId", intelligenceHandler.AnalyzeRootCause)
	v1.POST("/intelligence/capacity", intelligenceHandler.PlanCapacity)
	v1.GET("/intelligence/summary", intelligenceHandler.GetSummary)

	// WebSocket stream of alert updates
	ws := handlers.NewWebSocketHandler(s.manager, s.logger)
	v1.GET("/ws/alerts", ws.HandleAlertsStream)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("VIGIL-CORE REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down VIGIL-CORE gracefully")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
