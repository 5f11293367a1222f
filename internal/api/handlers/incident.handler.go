package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/internal/models"
	"github.com/platformbuilds/vigil-core/internal/tracing"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

type IncidentHandler struct {
	manager *alerting.Manager
	logger  logger.Logger
	tracer  *tracing.AnalysisTracer
}

func NewIncidentHandler(manager *alerting.Manager, logger logger.Logger) *IncidentHandler {
	return &IncidentHandler{
		manager: manager,
		logger:  logger,
		tracer:  tracing.NewAnalysisTracer("vigil-core"),
	}
}

// CreateIncidentRequest is the POST /incidents payload.
type CreateIncidentRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	Severity        string   `json:"severity" binding:"required"`
	Priority        string   `json:"priority"`
	AffectedService string   `json:"affectedService"`
	RelatedAlerts   []string `json:"relatedAlerts"`
	Tags            []string `json:"tags"`
}

// UpdateIncidentStatusRequest is the PUT /incidents/:id/status payload.
type UpdateIncidentStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Author  string `json:"author"`
	Message string `json:"message"`
}

// POST /api/v1/incidents - Open a new incident
func (h *IncidentHandler) CreateIncident(c *gin.Context) {
	var req CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid request",
			"message": err.Error(),
		})
		return
	}

	severity := models.AlertSeverity(req.Severity)
	if !models.ValidSeverity(severity) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid severity",
			"message": "severity must be one of critical, high, medium, low",
		})
		return
	}

	incident := h.manager.CreateIncident(
		req.Title,
		req.Description,
		severity,
		req.Priority,
		req.AffectedService,
		req.RelatedAlerts,
		req.Tags,
	)

	c.JSON(http.StatusCreated, gin.H{
		"status":    "success",
		"data":      gin.H{"incident": incident},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /api/v1/incidents - List incidents with aggregated statistics
func (h *IncidentHandler) GetIncidents(c *gin.Context) {
	incidents := h.manager.GetIncidents()
	stats := h.manager.GetIncidentStatistics()

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"incidents":  incidents,
			"statistics": stats,
			"total":      len(incidents),
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /api/v1/incidents/:id - Fetch a single incident
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	incident, err := h.manager.GetIncident(c.Param("id"))
	if err != nil {
		h.respondIncidentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"incident": incident},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// PUT /api/v1/incidents/:id/status - Advance the incident state machine
func (h *IncidentHandler) UpdateIncidentStatus(c *gin.Context) {
	var req UpdateIncidentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid request",
			"message": err.Error(),
		})
		return
	}

	_, span := h.tracer.StartIncidentSpan(c.Request.Context(), "transition", c.Param("id"))
	incident, err := h.manager.UpdateIncidentStatus(
		c.Param("id"),
		models.IncidentStatus(req.Status),
		req.Author,
		req.Message,
	)
	if err != nil {
		h.tracer.RecordError(span, err)
		span.End()
		h.respondIncidentError(c, err)
		return
	}
	span.End()

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"incident": incident},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *IncidentHandler) respondIncidentError(c *gin.Context, err error) {
	var notFound *alerting.UnknownIncidentError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"error":   "unknown incident",
			"message": err.Error(),
		})
		return
	}

	var invalidTransition *alerting.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		c.JSON(http.StatusConflict, gin.H{
			"status":  "error",
			"error":   "invalid status transition",
			"message": err.Error(),
		})
		return
	}

	h.logger.Error("Incident operation failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status": "error",
		"error":  "incident operation failed",
	})
}
