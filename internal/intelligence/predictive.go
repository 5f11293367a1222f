package intelligence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/platformbuilds/vigil-core/internal/metrics"
	"github.com/platformbuilds/vigil-core/internal/models"
)

// PredictiveConfig tunes trend-based forecasting.
type PredictiveConfig struct {
	// Horizon is how far ahead a projected breach still produces an alert.
	Horizon time.Duration
	// DangerThresholds maps metric names to their breach levels; metrics not
	// listed fall back to DefaultThreshold.
	DangerThresholds map[string]float64
	// DefaultThreshold applies to metrics without an explicit entry.
	DefaultThreshold float64
}

func DefaultPredictiveConfig() PredictiveConfig {
	return PredictiveConfig{
		Horizon:          time.Hour,
		DefaultThreshold: 90,
	}
}

// PredictiveAlertGenerator fits a linear trend per metric and emits an alert
// when the extrapolation crosses the metric's danger threshold within the
// forecast horizon. Stateless; safe for concurrent use.
type PredictiveAlertGenerator struct {
	cfg PredictiveConfig
}

func NewPredictiveAlertGenerator(cfg PredictiveConfig) *PredictiveAlertGenerator {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultPredictiveConfig().Horizon
	}
	if cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = DefaultPredictiveConfig().DefaultThreshold
	}
	return &PredictiveAlertGenerator{cfg: cfg}
}

// Analyze trends every series and returns the alerts for metrics heading into
// their danger zone. Metrics with fewer than two samples cannot be trended and
// are skipped; a flat or receding trend produces no alert. On cancellation the
// alerts generated so far are returned together with the context error.
func (g *PredictiveAlertGenerator) Analyze(ctx context.Context, series map[string]models.MetricSeries) ([]*models.PredictiveAlert, error) {
	started := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues("predictive").Observe(time.Since(started).Seconds())
	}()

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	var alerts []*models.PredictiveAlert
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return alerts, err
		}
		if alert := g.analyzeMetric(name, series[name]); alert != nil {
			metrics.PredictiveAlertsGenerated.WithLabelValues(string(alert.Severity)).Inc()
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (g *PredictiveAlertGenerator) analyzeMetric(name string, s models.MetricSeries) *models.PredictiveAlert {
	if len(s.Values) < 2 || len(s.Values) != len(s.Timestamps) {
		return nil
	}

	threshold := g.cfg.DefaultThreshold
	if t, ok := g.cfg.DangerThresholds[name]; ok {
		threshold = t
	}

	t0 := s.Timestamps[0]
	xs := make([]float64, len(s.Values))
	for i, ts := range s.Timestamps {
		xs[i] = ts.Sub(t0).Seconds()
	}
	slope, _, r2 := linearFit(xs, s.Values)

	last := s.Values[len(s.Values)-1]
	lastTS := s.Timestamps[len(s.Timestamps)-1]

	var timeToBreach time.Duration
	switch {
	case last >= threshold:
		// Already in the danger zone; the breach is now.
		timeToBreach = 0
	case slope <= 0:
		// Flat or receding trend never crosses an upper threshold.
		return nil
	default:
		seconds := (threshold - last) / slope
		timeToBreach = time.Duration(seconds * float64(time.Second))
		if timeToBreach > g.cfg.Horizon {
			return nil
		}
	}

	// Closer and steadier crossings carry higher probability.
	proximity := 1 - float64(timeToBreach)/float64(g.cfg.Horizon)
	probability := clamp01(0.6*proximity + 0.4*r2)

	severity := models.SeverityLow
	switch {
	case probability > 0.8:
		severity = models.SeverityHigh
	case probability > 0.5:
		severity = models.SeverityMedium
	}

	breachAt := lastTS.Add(timeToBreach)
	return &models.PredictiveAlert{
		ID: uuid.NewString(),
		Prediction: models.Prediction{
			Metric:           name,
			CurrentValue:     last,
			PredictedValue:   threshold,
			Threshold:        threshold,
			Slope:            slope,
			TimeToBreach:     timeToBreach,
			BreachTime:       breachAt,
			TrendConsistency: r2,
		},
		Probability: probability,
		Severity:    severity,
		Message:     fmt.Sprintf("%s is trending toward %.2f and is projected to breach in %s", name, threshold, timeToBreach.Round(time.Second)),
		GeneratedAt: time.Now(),
	}
}
