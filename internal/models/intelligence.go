package models

import "time"

// MetricSeries is an ordered sequence of samples for one metric. Timestamps
// are strictly increasing and values/timestamps have equal length.
type MetricSeries struct {
	Metric     string      `json:"metric"`
	Values     []float64   `json:"values"`
	Timestamps []time.Time `json:"timestamps"`
}

// AnomalyScore grades a single sample against the rolling baseline that
// preceded it. One score per (metric, timestamp); ephemeral, produced on demand.
type AnomalyScore struct {
	Timestamp  time.Time              `json:"timestamp"`
	Metric     string                 `json:"metric"`
	Value      float64                `json:"value"`
	Score      float64                `json:"score"` // normalized [0,1]
	Threshold  float64                `json:"threshold"`
	IsAnomaly  bool                   `json:"is_anomaly"`
	Severity   AlertSeverity          `json:"severity,omitempty"`
	Confidence float64                `json:"confidence"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Model      string                 `json:"model"`
}

// Prediction describes the projected breach behind a predictive alert.
type Prediction struct {
	Metric          string        `json:"metric"`
	CurrentValue    float64       `json:"current_value"`
	PredictedValue  float64       `json:"predicted_value"`
	Threshold       float64       `json:"threshold"`
	Slope           float64       `json:"slope"` // units per second
	TimeToBreach    time.Duration `json:"time_to_breach_ms"`
	BreachTime      time.Time     `json:"breach_time"`
	TrendConsistency float64      `json:"trend_consistency"` // R-squared of the fit
}

// PredictiveAlert is a forecast-based warning emitted before a threshold is
// actually breached. Regenerated on every analysis run.
type PredictiveAlert struct {
	ID          string        `json:"id"`
	Prediction  Prediction    `json:"prediction"`
	Probability float64       `json:"probability"` // [0,1]
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// RootCauseCandidate is one ranked explanation for an incident.
type RootCauseCandidate struct {
	Description string   `json:"description"`
	AlertID     string   `json:"alert_id,omitempty"`
	RuleID      string   `json:"rule_id,omitempty"`
	Service     string   `json:"service,omitempty"`
	Score       float64  `json:"score"`
	Evidence    []string `json:"evidence,omitempty"`
}

// CorrelatedSignal links two alerts that share labels or overlap in time.
type CorrelatedSignal struct {
	AlertID     string  `json:"alert_id"`
	RuleID      string  `json:"rule_id"`
	Correlation string  `json:"correlation"` // shared_labels, time_overlap
	Strength    float64 `json:"strength"`
}

// TimelineEvent is one entry in the reconstructed chronology of an incident.
type TimelineEvent struct {
	Time     time.Time     `json:"time"`
	Event    string        `json:"event"`
	Source   string        `json:"source"`
	Severity AlertSeverity `json:"severity,omitempty"`
}

// RootCauseAnalysis is the confidence-scored explanation produced for an
// incident. Candidates may be empty when no clear cause is found; that is a
// low-confidence result, not an error.
type RootCauseAnalysis struct {
	IncidentID  string               `json:"incident_id"`
	Confidence  float64              `json:"confidence"` // [0,1]
	Candidates  []RootCauseCandidate `json:"candidates"`
	Correlated  []CorrelatedSignal   `json:"correlated_signals"`
	Timeline    []TimelineEvent      `json:"timeline"`
	AnalyzedAt  time.Time            `json:"analyzed_at"`
}

type ResourceType string

const (
	ResourceCPU     ResourceType = "cpu"
	ResourceMemory  ResourceType = "memory"
	ResourceStorage ResourceType = "storage"
	ResourceNetwork ResourceType = "network"
)

// ResourceForecast projects one resource's utilization to the planning horizon.
type ResourceForecast struct {
	Resource         ResourceType `json:"resource"`
	CurrentUtilization float64    `json:"current_utilization"`
	ProjectedUtilization float64  `json:"projected_utilization"`
	Trend            string       `json:"trend"` // up, down, stable
	Confidence       float64      `json:"confidence"`
}

// CapacityRecommendation suggests a sizing action for one resource.
type CapacityRecommendation struct {
	Resource       ResourceType `json:"resource"`
	Action         string       `json:"action"` // scale_up, scale_down, hold
	ChangePercent  float64      `json:"change_percent"`
	Rationale      string       `json:"rationale"`
	Priority       int          `json:"priority"` // 1 is most urgent
}

// CostAnalysis compares the current cost trajectory to an optimized one.
// Savings is clamped to zero when the optimized plan is not cheaper.
type CostAnalysis struct {
	CurrentMonthlyCost   float64 `json:"current_monthly_cost"`
	ProjectedMonthlyCost float64 `json:"projected_monthly_cost"`
	OptimizedMonthlyCost float64 `json:"optimized_monthly_cost"`
	Savings              float64 `json:"savings"`
	Currency             string  `json:"currency"`
}

// CapacityPlan is the full forecast + recommendation bundle for one service.
type CapacityPlan struct {
	Service         string                   `json:"service"`
	Horizon         time.Duration            `json:"horizon_ms"`
	Forecasts       []ResourceForecast       `json:"forecasts"`
	Recommendations []CapacityRecommendation `json:"recommendations"`
	Cost            CostAnalysis             `json:"cost_analysis"`
	GeneratedAt     time.Time                `json:"generated_at"`
}
