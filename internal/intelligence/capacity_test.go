package intelligence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigil-core/internal/models"
)

// rampSource returns the same utilization ramp for every resource.
type rampSource struct {
	start float64
	step  float64 // per sample, hourly samples
	n     int
}

func (r *rampSource) UtilizationHistory(ctx context.Context, service string, resource models.ResourceType, window time.Duration) (models.MetricSeries, error) {
	s := models.MetricSeries{Metric: string(resource) + "_utilization"}
	t0 := time.Unix(1700000000, 0)
	for i := 0; i < r.n; i++ {
		s.Values = append(s.Values, r.start+r.step*float64(i))
		s.Timestamps = append(s.Timestamps, t0.Add(time.Duration(i)*time.Hour))
	}
	return s, nil
}

func TestPlan_InvalidInput(t *testing.T) {
	p := NewCapacityPlanner(NewSimulatedUsageSource(1), DefaultCapacityConfig())

	var invalid *InvalidInputError

	_, err := p.Plan(context.Background(), "", time.Hour)
	require.Error(t, err)
	assert.True(t, errors.As(err, &invalid))

	_, err = p.Plan(context.Background(), "checkout", -time.Hour)
	require.Error(t, err)
	assert.True(t, errors.As(err, &invalid))
}

func TestPlan_CoversAllResources(t *testing.T) {
	p := NewCapacityPlanner(NewSimulatedUsageSource(3), DefaultCapacityConfig())

	plan, err := p.Plan(context.Background(), "checkout", 7*24*time.Hour)
	require.NoError(t, err)

	require.Len(t, plan.Forecasts, 4)
	seen := map[models.ResourceType]bool{}
	for _, f := range plan.Forecasts {
		seen[f.Resource] = true
		assert.GreaterOrEqual(t, f.ProjectedUtilization, 0.0)
		assert.LessOrEqual(t, f.ProjectedUtilization, 100.0)
		assert.GreaterOrEqual(t, f.Confidence, 0.0)
		assert.LessOrEqual(t, f.Confidence, 1.0)
	}
	for _, r := range plannedResources {
		assert.True(t, seen[r], "missing forecast for %s", r)
	}
}

func TestPlan_SavingsNeverNegative(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		p := NewCapacityPlanner(NewSimulatedUsageSource(seed), DefaultCapacityConfig())
		plan, err := p.Plan(context.Background(), "svc", 30*24*time.Hour)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, plan.Cost.Savings, 0.0, "seed %d produced negative savings", seed)
	}
}

func TestPlan_GrowthTriggersScaleUp(t *testing.T) {
	// 40% growing 0.5%/hour; projected over a week lands well above 80%.
	p := NewCapacityPlanner(&rampSource{start: 40, step: 0.5, n: 48}, DefaultCapacityConfig())

	plan, err := p.Plan(context.Background(), "checkout", 7*24*time.Hour)
	require.NoError(t, err)

	require.NotEmpty(t, plan.Recommendations)
	for _, rec := range plan.Recommendations {
		assert.Equal(t, "scale_up", rec.Action)
		assert.GreaterOrEqual(t, rec.ChangePercent, 10.0)
	}
	// Recommendations come ranked, most urgent first.
	for i := 1; i < len(plan.Recommendations); i++ {
		assert.LessOrEqual(t, plan.Recommendations[i-1].Priority, plan.Recommendations[i].Priority)
	}
}

func TestPlan_IdleTriggersScaleDown(t *testing.T) {
	p := NewCapacityPlanner(&rampSource{start: 10, step: 0, n: 48}, DefaultCapacityConfig())

	plan, err := p.Plan(context.Background(), "batch-worker", 7*24*time.Hour)
	require.NoError(t, err)

	require.NotEmpty(t, plan.Recommendations)
	for _, rec := range plan.Recommendations {
		assert.Equal(t, "scale_down", rec.Action)
	}
	assert.Greater(t, plan.Cost.Savings, 0.0, "shrinking an idle service saves money")
}

func TestPlan_DeterministicForSeed(t *testing.T) {
	a := NewCapacityPlanner(NewSimulatedUsageSource(11), DefaultCapacityConfig())
	b := NewCapacityPlanner(NewSimulatedUsageSource(11), DefaultCapacityConfig())

	planA, err := a.Plan(context.Background(), "svc", 7*24*time.Hour)
	require.NoError(t, err)
	planB, err := b.Plan(context.Background(), "svc", 7*24*time.Hour)
	require.NoError(t, err)

	require.Len(t, planB.Forecasts, len(planA.Forecasts))
	for i := range planA.Forecasts {
		assert.InDelta(t, planA.Forecasts[i].ProjectedUtilization, planB.Forecasts[i].ProjectedUtilization, 1e-9)
	}
	assert.Equal(t, planA.Cost, planB.Cost)
}
