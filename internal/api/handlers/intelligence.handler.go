package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/internal/intelligence"
	"github.com/platformbuilds/vigil-core/internal/models"
	"github.com/platformbuilds/vigil-core/internal/tracing"
	"github.com/platformbuilds/vigil-core/pkg/cache"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

// IntelligenceHandler fronts the analytic engines. Anomaly scores and
// predictions are computed per request; root-cause and capacity outputs are
// cached read-through so repeated reads stay cheap.
type IntelligenceHandler struct {
	anomaly        *intelligence.AnomalyDetector
	predictive     *intelligence.PredictiveAlertGenerator
	rootCause      *intelligence.RootCauseAnalyzer
	capacity       *intelligence.CapacityPlanner
	manager        *alerting.Manager
	cache          cache.ValkeyCache
	logger         logger.Logger
	tracer         *tracing.AnalysisTracer
	cacheTTL       time.Duration
	minProbability float64

	mu      sync.Mutex
	summary analysisSummary
}

// analysisSummary accumulates counters across analysis runs for the
// intelligence-wide summary endpoint.
type analysisSummary struct {
	SamplesScored         int       `json:"samples_scored"`
	AnomaliesDetected     int       `json:"anomalies_detected"`
	PredictionsGenerated  int       `json:"predictions_generated"`
	PredictiveAlertsFired int       `json:"predictive_alerts_fired"`
	RCARuns               int       `json:"rca_runs"`
	CapacityPlans         int       `json:"capacity_plans"`
	LastRCAConfidence     float64   `json:"last_rca_confidence"`
	LastCapacitySavings   float64   `json:"last_capacity_savings"`
	LastAnalysisAt        time.Time `json:"last_analysis_at"`
}

func NewIntelligenceHandler(
	anomaly *intelligence.AnomalyDetector,
	predictive *intelligence.PredictiveAlertGenerator,
	rootCause *intelligence.RootCauseAnalyzer,
	capacity *intelligence.CapacityPlanner,
	manager *alerting.Manager,
	valkeyCache cache.ValkeyCache,
	logger logger.Logger,
	cacheTTL time.Duration,
	minProbability float64,
) *IntelligenceHandler {
	return &IntelligenceHandler{
		anomaly:        anomaly,
		predictive:     predictive,
		rootCause:      rootCause,
		capacity:       capacity,
		manager:        manager,
		cache:          valkeyCache,
		logger:         logger,
		tracer:         tracing.NewAnalysisTracer("vigil-core"),
		cacheTTL:       cacheTTL,
		minProbability: minProbability,
	}
}

// DetectAnomaliesRequest is the POST /intelligence/anomalies payload.
type DetectAnomaliesRequest struct {
	Metric     string      `json:"metric" binding:"required"`
	Values     []float64   `json:"values" binding:"required"`
	Timestamps []time.Time `json:"timestamps" binding:"required"`
}

// AnalyzePredictionsRequest is the POST /intelligence/predictions payload.
type AnalyzePredictionsRequest struct {
	Series map[string]models.MetricSeries `json:"series" binding:"required"`
}

// CapacityPlanRequest is the POST /intelligence/capacity payload.
type CapacityPlanRequest struct {
	Service        string `json:"service" binding:"required"`
	HorizonMinutes int    `json:"horizonMinutes" binding:"required"`
}

// POST /api/v1/intelligence/anomalies - Score a metric series for anomalies
func (h *IntelligenceHandler) DetectAnomalies(c *gin.Context) {
	var req DetectAnomaliesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid request",
			"message": err.Error(),
		})
		return
	}

	ctx, span := h.tracer.StartAnalysisSpan(c.Request.Context(), "anomaly")
	start := time.Now()
	scores, err := h.anomaly.Detect(ctx, req.Metric, req.Values, req.Timestamps)
	h.tracer.RecordAnalysisMetrics(span, time.Since(start), int64(len(scores)), err == nil)
	if err != nil {
		h.tracer.RecordError(span, err)
		span.End()
		h.respondAnalysisError(c, err)
		return
	}
	span.End()

	anomalies := 0
	for _, s := range scores {
		if s.IsAnomaly {
			anomalies++
		}
	}

	h.mu.Lock()
	h.summary.SamplesScored += len(scores)
	h.summary.AnomaliesDetected += anomalies
	h.summary.LastAnalysisAt = time.Now()
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"metric":    req.Metric,
			"scores":    scores,
			"total":     len(scores),
			"anomalies": anomalies,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// POST /api/v1/intelligence/predictions - Forecast threshold breaches
//
// Predictions whose probability clears the configured policy also fire a
// candidate alert through the alert manager when a rule watches that metric.
func (h *IntelligenceHandler) AnalyzePredictions(c *gin.Context) {
	var req AnalyzePredictionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid request",
			"message": err.Error(),
		})
		return
	}

	ctx, span := h.tracer.StartAnalysisSpan(c.Request.Context(), "predictive")
	start := time.Now()
	alerts, err := h.predictive.Analyze(ctx, req.Series)
	h.tracer.RecordAnalysisMetrics(span, time.Since(start), int64(len(alerts)), err == nil)
	if err != nil {
		h.tracer.RecordError(span, err)
		span.End()
		h.respondAnalysisError(c, err)
		return
	}
	span.End()

	fired := h.fireCandidateAlerts(alerts)

	h.mu.Lock()
	h.summary.PredictionsGenerated += len(alerts)
	h.summary.PredictiveAlertsFired += fired
	h.summary.LastAnalysisAt = time.Now()
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"predictiveAlerts": alerts,
			"total":            len(alerts),
			"alertsFired":      fired,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// fireCandidateAlerts turns high-probability predictions into real alerts for
// rules that watch the predicted metric.
func (h *IntelligenceHandler) fireCandidateAlerts(alerts []*models.PredictiveAlert) int {
	rules := h.manager.ListRules()
	byMetric := make(map[string]models.AlertRule, len(rules))
	for _, r := range rules {
		if r.Enabled {
			byMetric[r.Metric] = r
		}
	}

	fired := 0
	for _, pa := range alerts {
		if pa.Probability < h.minProbability {
			continue
		}
		rule, ok := byMetric[pa.Prediction.Metric]
		if !ok {
			continue
		}
		labels := map[string]string{
			"source":      "predictive",
			"probability": fmt.Sprintf("%.2f", pa.Probability),
		}
		if _, err := h.manager.FireAlert(rule.ID, pa.Severity, pa.Message, pa.Prediction.CurrentValue, labels, nil); err != nil {
			h.logger.Error("Failed to fire predictive alert", "ruleId", rule.ID, "error", err)
			continue
		}
		fired++
	}
	return fired
}

// POST /api/v1/intelligence/rca/:incidentId - Correlate an incident's signals
func (h *IntelligenceHandler) AnalyzeRootCause(c *gin.Context) {
	incidentID := c.Param("incidentId")

	cacheKey := fmt.Sprintf("rca:%s", incidentID)
	cacheCtx, cacheSpan := h.tracer.StartCacheOperationSpan(c.Request.Context(), "get", cacheKey)
	cached, cacheErr := h.cache.GetCachedAnalysisResult(cacheCtx, cacheKey)
	cacheSpan.End()
	if cacheErr == nil {
		var analysis models.RootCauseAnalysis
		if json.Unmarshal(cached, &analysis) == nil {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, gin.H{
				"status":    "success",
				"data":      gin.H{"analysis": analysis},
				"timestamp": time.Now().Format(time.RFC3339),
			})
			return
		}
	}

	ctx, span := h.tracer.StartAnalysisSpan(c.Request.Context(), "rca")
	start := time.Now()
	analysis, err := h.rootCause.Analyze(ctx, incidentID)
	h.tracer.RecordAnalysisMetrics(span, time.Since(start), 1, err == nil)
	if err != nil {
		h.tracer.RecordError(span, err)
		span.End()
		h.respondAnalysisError(c, err)
		return
	}
	span.End()

	h.cache.CacheAnalysisResult(c.Request.Context(), cacheKey, analysis, h.cacheTTL)

	h.mu.Lock()
	h.summary.RCARuns++
	h.summary.LastRCAConfidence = analysis.Confidence
	h.summary.LastAnalysisAt = time.Now()
	h.mu.Unlock()

	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"analysis": analysis},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// POST /api/v1/intelligence/capacity - Forecast resource demand for a service
func (h *IntelligenceHandler) PlanCapacity(c *gin.Context) {
	var req CapacityPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid request",
			"message": err.Error(),
		})
		return
	}

	horizon := time.Duration(req.HorizonMinutes) * time.Minute

	cacheKey := fmt.Sprintf("capacity:%s:%d", req.Service, req.HorizonMinutes)
	cacheCtx, cacheSpan := h.tracer.StartCacheOperationSpan(c.Request.Context(), "get", cacheKey)
	cached, cacheErr := h.cache.GetCachedAnalysisResult(cacheCtx, cacheKey)
	cacheSpan.End()
	if cacheErr == nil {
		var plan models.CapacityPlan
		if json.Unmarshal(cached, &plan) == nil {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, gin.H{
				"status":    "success",
				"data":      gin.H{"plan": plan},
				"timestamp": time.Now().Format(time.RFC3339),
			})
			return
		}
	}

	ctx, span := h.tracer.StartAnalysisSpan(c.Request.Context(), "capacity")
	start := time.Now()
	plan, err := h.capacity.Plan(ctx, req.Service, horizon)
	h.tracer.RecordAnalysisMetrics(span, time.Since(start), 1, err == nil)
	if err != nil {
		h.tracer.RecordError(span, err)
		span.End()
		h.respondAnalysisError(c, err)
		return
	}
	span.End()

	h.cache.CacheAnalysisResult(c.Request.Context(), cacheKey, plan, h.cacheTTL)

	h.mu.Lock()
	h.summary.CapacityPlans++
	h.summary.LastCapacitySavings = plan.Cost.Savings
	h.summary.LastAnalysisAt = time.Now()
	h.mu.Unlock()

	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"plan": plan},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /api/v1/intelligence/summary - Aggregated engine and alerting state
func (h *IntelligenceHandler) GetSummary(c *gin.Context) {
	h.mu.Lock()
	summary := h.summary
	h.mu.Unlock()

	active := h.manager.GetActiveAlerts()
	stats := h.manager.GetIncidentStatistics()

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"analysis":     summary,
			"activeAlerts": len(active),
			"incidents":    stats,
			"engines": gin.H{
				"anomaly":    "healthy",
				"predictive": "healthy",
				"rootCause":  "healthy",
				"capacity":   "healthy",
			},
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *IntelligenceHandler) respondAnalysisError(c *gin.Context, err error) {
	var invalidInput *intelligence.InvalidInputError
	if errors.As(err, &invalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"error":   "invalid input",
			"message": err.Error(),
		})
		return
	}

	var notFound *intelligence.IncidentNotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"error":   "unknown incident",
			"message": err.Error(),
		})
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusRequestTimeout, gin.H{
			"status": "error",
			"error":  "analysis cancelled",
		})
		return
	}

	h.logger.Error("Analysis failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status": "error",
		"error":  "analysis failed",
	})
}
