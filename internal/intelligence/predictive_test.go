package intelligence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigil-core/internal/models"
)

func risingSeries(metric string, start, step float64, n int) models.MetricSeries {
	s := models.MetricSeries{Metric: metric}
	t0 := time.Unix(1700000000, 0)
	for i := 0; i < n; i++ {
		s.Values = append(s.Values, start+step*float64(i))
		s.Timestamps = append(s.Timestamps, t0.Add(time.Duration(i)*time.Minute))
	}
	return s
}

func TestAnalyze_RisingTrendProducesAlert(t *testing.T) {
	g := NewPredictiveAlertGenerator(PredictiveConfig{
		Horizon:          time.Hour,
		DefaultThreshold: 70,
	})

	// 10 -> 55 over 10 minutes; the trend crosses 70 well inside the horizon.
	series := map[string]models.MetricSeries{
		"cpu_usage": risingSeries("cpu_usage", 10, 5, 10),
	}
	alerts, err := g.Analyze(context.Background(), series)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "cpu_usage", a.Prediction.Metric)
	assert.Greater(t, a.Probability, 0.8, "steep consistent trend close to breach")
	assert.Equal(t, models.SeverityHigh, a.Severity)
	assert.Greater(t, a.Prediction.Slope, 0.0)
	assert.Greater(t, a.Prediction.TimeToBreach, time.Duration(0))
	assert.LessOrEqual(t, a.Prediction.TimeToBreach, time.Hour)
}

func TestAnalyze_FlatAndFallingTrendsProduceNothing(t *testing.T) {
	g := NewPredictiveAlertGenerator(DefaultPredictiveConfig())

	series := map[string]models.MetricSeries{
		"flat":    risingSeries("flat", 40, 0, 10),
		"falling": risingSeries("falling", 60, -2, 10),
	}
	alerts, err := g.Analyze(context.Background(), series)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAnalyze_ShortSeriesSkippedWithoutAborting(t *testing.T) {
	g := NewPredictiveAlertGenerator(PredictiveConfig{Horizon: time.Hour, DefaultThreshold: 70})

	series := map[string]models.MetricSeries{
		"lonely":    risingSeries("lonely", 50, 5, 1), // single sample, cannot trend
		"cpu_usage": risingSeries("cpu_usage", 10, 5, 10),
	}
	alerts, err := g.Analyze(context.Background(), series)
	require.NoError(t, err)
	require.Len(t, alerts, 1, "short series skipped, the rest still processed")
	assert.Equal(t, "cpu_usage", alerts[0].Prediction.Metric)
}

func TestAnalyze_BreachBeyondHorizonSkipped(t *testing.T) {
	g := NewPredictiveAlertGenerator(PredictiveConfig{Horizon: time.Minute, DefaultThreshold: 1000})

	series := map[string]models.MetricSeries{
		"slow_growth": risingSeries("slow_growth", 10, 0.1, 10),
	}
	alerts, err := g.Analyze(context.Background(), series)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAnalyze_AlreadyBreached(t *testing.T) {
	g := NewPredictiveAlertGenerator(PredictiveConfig{Horizon: time.Hour, DefaultThreshold: 50})

	series := map[string]models.MetricSeries{
		"cpu_usage": risingSeries("cpu_usage", 40, 2, 10), // last value 58, above threshold
	}
	alerts, err := g.Analyze(context.Background(), series)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, time.Duration(0), alerts[0].Prediction.TimeToBreach)
	assert.Greater(t, alerts[0].Probability, 0.8)
}

func TestAnalyze_PerMetricThresholdOverride(t *testing.T) {
	g := NewPredictiveAlertGenerator(PredictiveConfig{
		Horizon:          time.Hour,
		DefaultThreshold: 1000, // default never crossed
		DangerThresholds: map[string]float64{"queue_depth": 60},
	})

	series := map[string]models.MetricSeries{
		"queue_depth": risingSeries("queue_depth", 10, 5, 10),
		"other":       risingSeries("other", 10, 5, 10),
	}
	alerts, err := g.Analyze(context.Background(), series)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "queue_depth", alerts[0].Prediction.Metric)
	assert.Equal(t, 60.0, alerts[0].Prediction.Threshold)
}

func TestAnalyze_CancelledContextReturnsPartial(t *testing.T) {
	g := NewPredictiveAlertGenerator(DefaultPredictiveConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alerts, err := g.Analyze(ctx, map[string]models.MetricSeries{
		"cpu_usage": risingSeries("cpu_usage", 10, 5, 10),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, alerts)
}
