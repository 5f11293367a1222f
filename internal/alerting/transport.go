package alerting

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/platformbuilds/vigil-core/internal/models"
)

// ChannelTransport performs a single dispatch attempt against a notification
// channel. The engine ships with a simulated transport; real senders (SMTP,
// webhooks, chat APIs) implement the same interface and can be swapped in
// without touching the manager.
type ChannelTransport interface {
	Send(ctx context.Context, channel models.NotificationChannel) (models.ChannelTestResult, error)
}

// SimulatedTransport fakes dispatch with a bounded random latency and a
// random success/failure outcome. Seedable so tests are reproducible.
type SimulatedTransport struct {
	mu          sync.Mutex
	rng         *rand.Rand
	BaseLatency time.Duration
	MaxJitter   time.Duration
	FailureRate float64
}

func NewSimulatedTransport(seed int64) *SimulatedTransport {
	return &SimulatedTransport{
		rng:         rand.New(rand.NewSource(seed)),
		BaseLatency: 20 * time.Millisecond,
		MaxJitter:   180 * time.Millisecond,
		FailureRate: 0.1,
	}
}

// Send waits out the simulated latency (abandoning the attempt if ctx is
// cancelled first) and rolls the outcome.
func (t *SimulatedTransport) Send(ctx context.Context, channel models.NotificationChannel) (models.ChannelTestResult, error) {
	t.mu.Lock()
	latency := t.BaseLatency
	if t.MaxJitter > 0 {
		latency += time.Duration(t.rng.Int63n(int64(t.MaxJitter)))
	}
	success := t.rng.Float64() >= t.FailureRate
	t.mu.Unlock()

	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return models.ChannelTestResult{}, ctx.Err()
	case <-timer.C:
	}

	res := models.ChannelTestResult{
		ChannelID: channel.ID,
		Channel:   channel.Name,
		Type:      channel.Type,
		Success:   success,
		Latency:   latency,
		TestedAt:  time.Now(),
	}
	if !success {
		res.Error = "simulated dispatch failure"
	}
	return res, nil
}
