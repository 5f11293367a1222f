package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/pkg/cache"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

const serviceVersion = "v1.0.0"

type HealthHandler struct {
	manager *alerting.Manager
	cache   cache.ValkeyCache
	logger  logger.Logger
}

func NewHealthHandler(manager *alerting.Manager, c cache.ValkeyCache, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		manager: manager,
		cache:   c,
		logger:  logger,
	}
}

// GET /health - Quick health check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "vigil-core",
		"version":   serviceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - Readiness check: the cache must answer a short probe and the
// alert manager must be serving reads.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	probeKey := fmt.Sprintf("ready:%d", time.Now().UnixNano())
	cacheErr := h.cache.Set(ctx, probeKey, "1", 1*time.Second)

	rules := h.manager.ListRules()

	status := "healthy"
	httpStatus := http.StatusOK
	if cacheErr != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	resp := gin.H{
		"status":    status,
		"service":   "vigil-core",
		"version":   serviceVersion,
		"rules":     len(rules),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if cacheErr != nil {
		resp["error"] = cacheErr.Error()
	}
	c.JSON(httpStatus, resp)
}
