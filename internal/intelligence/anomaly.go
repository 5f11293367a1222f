package intelligence

import (
	"context"
	"math"
	"time"

	"github.com/platformbuilds/vigil-core/internal/metrics"
	"github.com/platformbuilds/vigil-core/internal/models"
)

const anomalyModelID = "rolling-zscore-v1"

// AnomalyDetectorConfig tunes the rolling-baseline detector.
type AnomalyDetectorConfig struct {
	// WindowSize is the number of trailing samples forming the baseline.
	WindowSize int
	// Threshold is the score above which a sample is flagged anomalous.
	Threshold float64
}

func DefaultAnomalyDetectorConfig() AnomalyDetectorConfig {
	return AnomalyDetectorConfig{WindowSize: 20, Threshold: 0.5}
}

// AnomalyDetector scores metric samples against a rolling mean/stddev
// baseline. It is stateless across calls and deterministic for a given input.
type AnomalyDetector struct {
	cfg AnomalyDetectorConfig
}

func NewAnomalyDetector(cfg AnomalyDetectorConfig) *AnomalyDetector {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultAnomalyDetectorConfig().WindowSize
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultAnomalyDetectorConfig().Threshold
	}
	return &AnomalyDetector{cfg: cfg}
}

// Detect produces one AnomalyScore per sample. Early samples are scored
// against whatever history exists (cold start: lower confidence, never an
// error). On cancellation the scores computed so far are returned together
// with the context error.
func (d *AnomalyDetector) Detect(ctx context.Context, metric string, values []float64, timestamps []time.Time) ([]*models.AnomalyScore, error) {
	if len(values) == 0 || len(timestamps) == 0 {
		return nil, &InvalidInputError{Reason: "values and timestamps must be non-empty"}
	}
	if len(values) != len(timestamps) {
		return nil, &InvalidInputError{Reason: "values and timestamps must have equal length"}
	}

	started := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues("anomaly").Observe(time.Since(started).Seconds())
	}()

	scores := make([]*models.AnomalyScore, 0, len(values))
	for i, v := range values {
		if err := ctx.Err(); err != nil {
			return scores, err
		}

		lo := i - d.cfg.WindowSize
		if lo < 0 {
			lo = 0
		}
		window := values[lo:i]

		score := d.scoreSample(v, window)
		s := &models.AnomalyScore{
			Timestamp:  timestamps[i],
			Metric:     metric,
			Value:      v,
			Score:      score,
			Threshold:  d.cfg.Threshold,
			IsAnomaly:  score > d.cfg.Threshold,
			Confidence: d.confidence(len(window)),
			Model:      anomalyModelID,
			Context: map[string]interface{}{
				"window_size": len(window),
			},
		}
		switch {
		case score > 0.8:
			s.Severity = models.SeverityHigh
		case score > d.cfg.Threshold:
			s.Severity = models.SeverityMedium
		}
		if s.IsAnomaly {
			metrics.AnomaliesDetected.WithLabelValues(metric, string(s.Severity)).Inc()
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// scoreSample maps the sample's deviation from the window baseline onto [0,1)
// with a saturating exponential: three baseline deviations land just above the
// default threshold, five well into the high band.
func (d *AnomalyDetector) scoreSample(v float64, window []float64) float64 {
	if len(window) == 0 {
		return 0
	}

	var sum float64
	for _, w := range window {
		sum += w
	}
	mean := sum / float64(len(window))

	var ss float64
	for _, w := range window {
		ss += (w - mean) * (w - mean)
	}
	std := math.Sqrt(ss / float64(len(window)))

	dev := math.Abs(v - mean)
	if std == 0 {
		if dev == 0 {
			return 0
		}
		// Any departure from a perfectly flat baseline is maximally unusual.
		return 0.99
	}

	z := dev / std
	return 1 - math.Exp(-z/3.0)
}

// confidence ramps from low cold-start values up to 1 once the full window is
// available.
func (d *AnomalyDetector) confidence(windowLen int) float64 {
	if windowLen >= d.cfg.WindowSize {
		return 1
	}
	return 0.2 + 0.8*float64(windowLen)/float64(d.cfg.WindowSize)
}
