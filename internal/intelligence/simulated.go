package intelligence

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/platformbuilds/vigil-core/internal/models"
)

// SimulatedUsageSource synthesizes utilization histories so capacity planning
// works without a live metrics backend. Series are deterministic per
// (service, resource) for a fixed seed, which keeps plans stable between
// calls and tests reproducible.
type SimulatedUsageSource struct {
	seed int64
	// SampleInterval spaces the generated samples; defaults to one hour.
	SampleInterval time.Duration
}

func NewSimulatedUsageSource(seed int64) *SimulatedUsageSource {
	return &SimulatedUsageSource{seed: seed, SampleInterval: time.Hour}
}

func (s *SimulatedUsageSource) UtilizationHistory(ctx context.Context, service string, resource models.ResourceType, window time.Duration) (models.MetricSeries, error) {
	if err := ctx.Err(); err != nil {
		return models.MetricSeries{}, err
	}

	interval := s.SampleInterval
	if interval <= 0 {
		interval = time.Hour
	}
	n := int(window / interval)
	if n < 2 {
		n = 2
	}

	h := fnv.New64a()
	h.Write([]byte(service))
	h.Write([]byte(resource))
	rng := rand.New(rand.NewSource(s.seed ^ int64(h.Sum64())))

	base := 25 + rng.Float64()*40      // starting utilization 25-65%
	drift := (rng.Float64() - 0.3) * 2 // mostly growing, units per day
	amplitude := 2 + rng.Float64()*6   // daily cycle

	start := time.Now().Add(-window).Truncate(interval)
	series := models.MetricSeries{
		Metric:     string(resource) + "_utilization",
		Values:     make([]float64, 0, n),
		Timestamps: make([]time.Time, 0, n),
	}
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * interval)
		days := float64(i) * interval.Hours() / 24
		cycle := amplitude * math.Sin(2*math.Pi*days)
		noise := (rng.Float64() - 0.5) * 3
		v := base + drift*days + cycle + noise
		if v < 1 {
			v = 1
		}
		if v > 100 {
			v = 100
		}
		series.Values = append(series.Values, v)
		series.Timestamps = append(series.Timestamps, ts)
	}
	return series, nil
}
