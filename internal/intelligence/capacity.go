package intelligence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/platformbuilds/vigil-core/internal/metrics"
	"github.com/platformbuilds/vigil-core/internal/models"
)

// UsageSource supplies historical utilization series per service and
// resource. The engine ships with a simulated source; a real metrics backend
// implements the same interface.
type UsageSource interface {
	UtilizationHistory(ctx context.Context, service string, resource models.ResourceType, window time.Duration) (models.MetricSeries, error)
}

// CapacityConfig tunes forecasting and the cost model.
type CapacityConfig struct {
	// HistoryWindow is how much utilization history feeds the trend fit.
	HistoryWindow time.Duration
	// MonthlyCost is the current monthly spend per resource type.
	MonthlyCost map[models.ResourceType]float64
	// ScaleUpAt / ScaleDownAt are projected-utilization bounds that trigger
	// recommendations.
	ScaleUpAt   float64
	ScaleDownAt float64
	// SafetyMargin is headroom applied when sizing scale actions.
	SafetyMargin float64
}

func DefaultCapacityConfig() CapacityConfig {
	return CapacityConfig{
		HistoryWindow: 7 * 24 * time.Hour,
		MonthlyCost: map[models.ResourceType]float64{
			models.ResourceCPU:     420,
			models.ResourceMemory:  260,
			models.ResourceStorage: 130,
			models.ResourceNetwork: 95,
		},
		ScaleUpAt:    80,
		ScaleDownAt:  30,
		SafetyMargin: 0.2,
	}
}

var plannedResources = []models.ResourceType{
	models.ResourceCPU,
	models.ResourceMemory,
	models.ResourceStorage,
	models.ResourceNetwork,
}

// CapacityPlanner forecasts per-resource demand from historical utilization
// trends and prices the result. Stateless over its UsageSource.
type CapacityPlanner struct {
	source UsageSource
	cfg    CapacityConfig
}

func NewCapacityPlanner(source UsageSource, cfg CapacityConfig) *CapacityPlanner {
	def := DefaultCapacityConfig()
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if len(cfg.MonthlyCost) == 0 {
		cfg.MonthlyCost = def.MonthlyCost
	}
	if cfg.ScaleUpAt <= 0 {
		cfg.ScaleUpAt = def.ScaleUpAt
	}
	if cfg.ScaleDownAt <= 0 {
		cfg.ScaleDownAt = def.ScaleDownAt
	}
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	return &CapacityPlanner{source: source, cfg: cfg}
}

// Plan forecasts the service's resource demand over the horizon and produces
// ranked recommendations plus a cost analysis. Savings is non-negative: a plan
// that is not cheaper reports zero savings, never negative.
func (p *CapacityPlanner) Plan(ctx context.Context, service string, horizon time.Duration) (*models.CapacityPlan, error) {
	if service == "" {
		return nil, &InvalidInputError{Reason: "service must not be empty"}
	}
	if horizon <= 0 {
		return nil, &InvalidInputError{Reason: "planning horizon must be positive"}
	}

	started := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues("capacity").Observe(time.Since(started).Seconds())
	}()

	plan := &models.CapacityPlan{
		Service:     service,
		Horizon:     horizon,
		GeneratedAt: time.Now(),
	}

	for _, resource := range plannedResources {
		if err := ctx.Err(); err != nil {
			return plan, err
		}
		series, err := p.source.UtilizationHistory(ctx, service, resource, p.cfg.HistoryWindow)
		if err != nil {
			return nil, fmt.Errorf("utilization history for %s/%s: %w", service, resource, err)
		}
		forecast := p.forecastResource(resource, series, horizon)
		plan.Forecasts = append(plan.Forecasts, forecast)
		if rec, ok := p.recommend(forecast); ok {
			plan.Recommendations = append(plan.Recommendations, rec)
		}
	}

	sort.SliceStable(plan.Recommendations, func(i, j int) bool {
		return plan.Recommendations[i].Priority < plan.Recommendations[j].Priority
	})
	plan.Cost = p.costAnalysis(plan.Forecasts, plan.Recommendations)
	return plan, nil
}

// forecastResource fits the same linear trend the predictive generator uses
// and projects it to the horizon. Short histories degrade confidence, they do
// not fail the plan.
func (p *CapacityPlanner) forecastResource(resource models.ResourceType, series models.MetricSeries, horizon time.Duration) models.ResourceForecast {
	forecast := models.ResourceForecast{Resource: resource}
	n := len(series.Values)
	if n == 0 {
		forecast.Trend = "stable"
		forecast.Confidence = 0.1
		return forecast
	}

	current := series.Values[n-1]
	forecast.CurrentUtilization = current

	if n < 2 {
		forecast.ProjectedUtilization = current
		forecast.Trend = "stable"
		forecast.Confidence = 0.2
		return forecast
	}

	t0 := series.Timestamps[0]
	xs := make([]float64, n)
	for i, ts := range series.Timestamps {
		xs[i] = ts.Sub(t0).Seconds()
	}
	slope, intercept, r2 := linearFit(xs, series.Values)

	lastX := xs[n-1]
	projected := intercept + slope*(lastX+horizon.Seconds())
	forecast.ProjectedUtilization = math.Max(0, math.Min(projected, 100))

	perDay := slope * 86400
	switch {
	case perDay > 0.5:
		forecast.Trend = "up"
	case perDay < -0.5:
		forecast.Trend = "down"
	default:
		forecast.Trend = "stable"
	}
	forecast.Confidence = clamp01(0.3 + 0.7*r2)
	return forecast
}

// recommend turns one forecast into a sizing action, if any is warranted.
func (p *CapacityPlanner) recommend(f models.ResourceForecast) (models.CapacityRecommendation, bool) {
	switch {
	case f.ProjectedUtilization >= p.cfg.ScaleUpAt:
		over := f.ProjectedUtilization - p.cfg.ScaleUpAt
		change := math.Ceil(over * (1 + p.cfg.SafetyMargin))
		if change < 10 {
			change = 10
		}
		priority := 2
		if f.ProjectedUtilization >= 95 {
			priority = 1
		}
		return models.CapacityRecommendation{
			Resource:      f.Resource,
			Action:        "scale_up",
			ChangePercent: change,
			Rationale:     fmt.Sprintf("%s projected at %.1f%% utilization, above the %.0f%% ceiling", f.Resource, f.ProjectedUtilization, p.cfg.ScaleUpAt),
			Priority:      priority,
		}, true
	case f.ProjectedUtilization > 0 && f.ProjectedUtilization <= p.cfg.ScaleDownAt && f.Trend != "up":
		under := p.cfg.ScaleDownAt - f.ProjectedUtilization
		change := math.Floor(under * (1 - p.cfg.SafetyMargin))
		if change < 5 {
			return models.CapacityRecommendation{}, false
		}
		return models.CapacityRecommendation{
			Resource:      f.Resource,
			Action:        "scale_down",
			ChangePercent: change,
			Rationale:     fmt.Sprintf("%s projected at %.1f%% utilization, below the %.0f%% floor", f.Resource, f.ProjectedUtilization, p.cfg.ScaleDownAt),
			Priority:      3,
		}, true
	}
	return models.CapacityRecommendation{}, false
}

// costAnalysis prices the current trajectory against the recommended one.
// Scale-downs reduce spend proportionally; scale-ups add spend and therefore
// never show as savings — the delta is clamped at zero.
func (p *CapacityPlanner) costAnalysis(forecasts []models.ResourceForecast, recs []models.CapacityRecommendation) models.CostAnalysis {
	var current, projected, optimized float64
	recByResource := make(map[models.ResourceType]models.CapacityRecommendation, len(recs))
	for _, r := range recs {
		recByResource[r.Resource] = r
	}

	for _, f := range forecasts {
		rate := p.cfg.MonthlyCost[f.Resource]
		current += rate

		// Without intervention an over-capacity resource gets emergency
		// headroom priced at a premium.
		trajectory := rate
		if f.ProjectedUtilization >= p.cfg.ScaleUpAt {
			trajectory = rate * (1 + 1.5*(f.ProjectedUtilization-p.cfg.ScaleUpAt)/100)
		}
		projected += trajectory

		opt := rate
		if rec, ok := recByResource[f.Resource]; ok {
			switch rec.Action {
			case "scale_up":
				opt = rate * (1 + rec.ChangePercent/100)
			case "scale_down":
				opt = rate * (1 - rec.ChangePercent/100)
			}
		}
		optimized += opt
	}

	savings := projected - optimized
	if savings < 0 {
		savings = 0
	}
	return models.CostAnalysis{
		CurrentMonthlyCost:   math.Round(current*100) / 100,
		ProjectedMonthlyCost: math.Round(projected*100) / 100,
		OptimizedMonthlyCost: math.Round(optimized*100) / 100,
		Savings:              math.Round(savings*100) / 100,
		Currency:             "USD",
	}
}
