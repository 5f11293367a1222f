// ================================
// internal/metrics/metrics.go - Self-monitoring for VIGIL-CORE
// ================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Alert lifecycle metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_alerts_fired_total",
			Help: "Total number of alert fire operations, including dedup re-fires",
		},
		[]string{"rule_id", "severity", "deduplicated"},
	)

	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_alerts_resolved_total",
			Help: "Total number of alerts moved to history",
		},
		[]string{"rule_id"},
	)

	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_core_alerts_active",
			Help: "Number of currently firing alerts",
		},
	)

	// Incident metrics
	IncidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_incidents_created_total",
			Help: "Total number of incidents created",
		},
		[]string{"severity"},
	)

	IncidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_incident_transitions_total",
			Help: "Total number of incident status transitions",
		},
		[]string{"from", "to"},
	)

	// Notification channel testing
	ChannelTests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_channel_tests_total",
			Help: "Total number of simulated notification dispatch attempts",
		},
		[]string{"channel_type", "success"},
	)

	// Intelligence engine metrics
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_core_analysis_duration_seconds",
			Help:    "Intelligence analysis duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"analysis"}, // anomaly, predictive, rca, capacity
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_anomalies_detected_total",
			Help: "Total number of samples scored as anomalous",
		},
		[]string{"metric", "severity"},
	)

	PredictiveAlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_predictive_alerts_total",
			Help: "Total number of predictive alerts generated",
		},
		[]string{"severity"},
	)

	// Valkey cache metrics
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_core_cache_requests_total",
			Help: "Total number of cache requests",
		},
		[]string{"operation", "result"}, // get/set/delete, hit/miss/error
	)

	// WebSocket alert stream
	ActiveStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_core_stream_clients_active",
			Help: "Number of connected alert stream clients",
		},
	)
)
