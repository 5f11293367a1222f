package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/internal/models"
	"github.com/platformbuilds/vigil-core/internal/tracing"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

// DefaultHistoryResponseLimit caps how many resolved alerts list endpoints return.
const DefaultHistoryResponseLimit = 10

type AlertHandler struct {
	manager *alerting.Manager
	logger  logger.Logger
	tracer  *tracing.AnalysisTracer
}

func NewAlertHandler(manager *alerting.Manager, logger logger.Logger) *AlertHandler {
	return &AlertHandler{
		manager: manager,
		logger:  logger,
		tracer:  tracing.NewAnalysisTracer("vigil-core"),
	}
}

// FireAlertRequest is the POST /alerts/fire payload.
type FireAlertRequest struct {
	RuleID      string            `json:"ruleId" binding:"required"`
	Severity    string            `json:"severity"`
	Message     string            `json:"message"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// GET /api/v1/rules - List configured alert rules
func (h *AlertHandler) GetRules(c *gin.Context) {
	rules := h.manager.ListRules()
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"rules": rules, "total": len(rules)},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /api/v1/alerts - List currently firing alerts
func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	alerts := h.manager.GetActiveAlerts()
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"alerts": alerts, "total": len(alerts)},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /api/v1/alerts/history - Recent resolved alerts, oldest first
func (h *AlertHandler) GetAlertHistory(c *gin.Context) {
	limit := DefaultHistoryResponseLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"error":   "invalid limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	history := h.manager.GetAlertHistory(limit)
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"alerts": history, "total": len(history)},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// POST /api/v1/alerts/fire - Fire (or re-fire) an alert for a rule
func (h *AlertHandler) FireAlert(c *gin.Context) {
	var req FireAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid request",
			"message": err.Error(),
		})
		return
	}

	severity := models.AlertSeverity(req.Severity)
	if req.Severity == "" {
		// Fall back to the rule's configured severity
		rule, err := h.manager.GetRule(req.RuleID)
		if err != nil {
			h.respondRuleError(c, err)
			return
		}
		severity = rule.Severity
	} else if !models.ValidSeverity(severity) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid severity",
			"message": "severity must be one of critical, high, medium, low",
		})
		return
	}

	_, span := h.tracer.StartAlertSpan(c.Request.Context(), "fire", req.RuleID)
	alert, err := h.manager.FireAlert(req.RuleID, severity, req.Message, req.Value, req.Labels, req.Annotations)
	if err != nil {
		h.tracer.RecordError(span, err)
		span.End()
		h.respondRuleError(c, err)
		return
	}
	span.End()

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"alert": alert},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// POST /api/v1/alerts/:ruleId/resolve - Resolve the rule's active alert
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	ruleID := c.Param("ruleId")

	_, span := h.tracer.StartAlertSpan(c.Request.Context(), "resolve", ruleID)
	alert, err := h.manager.ResolveAlert(ruleID)
	if err != nil {
		h.tracer.RecordError(span, err)
		span.End()
		h.respondRuleError(c, err)
		return
	}
	span.End()

	if alert == nil {
		// Nothing was firing; resolution is idempotent
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"data":      gin.H{"resolved": false},
			"message":   "no active alert for rule",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"resolved": true, "alert": alert},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *AlertHandler) respondRuleError(c *gin.Context, err error) {
	var unknownRule *alerting.UnknownRuleError
	if errors.As(err, &unknownRule) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"error":   "unknown rule",
			"message": err.Error(),
		})
		return
	}

	h.logger.Error("Alert operation failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status": "error",
		"error":  "alert operation failed",
	})
}
