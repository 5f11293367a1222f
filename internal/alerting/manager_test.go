package alerting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigil-core/internal/models"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

func newTestManager(t *testing.T, historyLimit int) *Manager {
	t.Helper()
	m := NewManager(historyLimit, NewSimulatedTransport(42), logger.New("error"))
	m.ReplaceRules([]models.AlertRule{
		{ID: "high-cpu-usage", Name: "High CPU usage", Metric: "cpu_usage", Condition: "gt", Threshold: 90, Severity: models.SeverityCritical, Enabled: true},
		{ID: "high-memory-usage", Name: "High memory usage", Metric: "memory_usage", Condition: "gt", Threshold: 85, Severity: models.SeverityHigh, Enabled: true},
		{ID: "disk-full", Name: "Disk almost full", Metric: "disk_usage", Condition: "gt", Threshold: 95, Severity: models.SeverityHigh, Enabled: false},
	})
	return m
}

func TestFireAlert_UnknownRule(t *testing.T) {
	m := newTestManager(t, 10)
	_, err := m.FireAlert("no-such-rule", models.SeverityLow, "msg", 1, nil, nil)
	require.Error(t, err)
	var unknownRule *UnknownRuleError
	assert.True(t, errors.As(err, &unknownRule))
	assert.Equal(t, "no-such-rule", unknownRule.RuleID)
}

func TestFireAlert_DedupInvariant(t *testing.T) {
	m := newTestManager(t, 10)

	first, err := m.FireAlert("high-cpu-usage", models.SeverityCritical, "cpu at 92%", 92, map[string]string{"host": "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusFiring, first.Status)

	// Re-firing N times must never create a second active alert for the rule.
	for i := 0; i < 5; i++ {
		_, err := m.FireAlert("high-cpu-usage", models.SeverityCritical, "", float64(93+i), map[string]string{"zone": "eu"}, nil)
		require.NoError(t, err)
	}

	active := m.GetActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID, "re-fire must update in place, not replace")
	assert.Equal(t, 97.0, active[0].Value, "latest observed value wins")
	assert.Equal(t, "cpu at 92%", active[0].Message)
	assert.Equal(t, "a", active[0].Labels["host"])
	assert.Equal(t, "eu", active[0].Labels["zone"], "labels merge on re-fire")
}

func TestResolveAlert_Idempotent(t *testing.T) {
	m := newTestManager(t, 10)

	_, err := m.FireAlert("high-cpu-usage", models.SeverityCritical, "msg", 95, nil, nil)
	require.NoError(t, err)

	resolved, err := m.ResolveAlert("high-cpu-usage")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
	require.NotNil(t, resolved.EndsAt)

	// Second resolve is a no-op, not an error, and history gains no entry.
	again, err := m.ResolveAlert("high-cpu-usage")
	require.NoError(t, err)
	assert.Nil(t, again)

	// Resolving a rule that never fired is also a no-op.
	never, err := m.ResolveAlert("high-memory-usage")
	require.NoError(t, err)
	assert.Nil(t, never)

	assert.Empty(t, m.GetActiveAlerts())
	assert.Len(t, m.GetAlertHistory(10), 1)
}

func TestAlertHistory_OrderingAndEviction(t *testing.T) {
	m := NewManager(3, NewSimulatedTransport(1), logger.New("error"))
	var rules []models.AlertRule
	for i := 0; i < 5; i++ {
		rules = append(rules, models.AlertRule{ID: fmt.Sprintf("r%d", i), Name: fmt.Sprintf("rule %d", i), Threshold: 1, Severity: models.SeverityLow, Enabled: true})
	}
	m.ReplaceRules(rules)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("r%d", i)
		_, err := m.FireAlert(id, models.SeverityLow, "m", float64(i), nil, nil)
		require.NoError(t, err)
		_, err = m.ResolveAlert(id)
		require.NoError(t, err)
	}

	// Capacity 3: r0 and r1 evicted FIFO, r2..r4 remain oldest-first.
	hist := m.GetAlertHistory(0)
	require.Len(t, hist, 3)
	assert.Equal(t, "r2", hist[0].RuleID)
	assert.Equal(t, "r3", hist[1].RuleID)
	assert.Equal(t, "r4", hist[2].RuleID)

	// Limit caps to the most recent entries, order preserved.
	capped := m.GetAlertHistory(2)
	require.Len(t, capped, 2)
	assert.Equal(t, "r3", capped[0].RuleID)
	assert.Equal(t, "r4", capped[1].RuleID)
}

func TestEndToEnd_FireResolveFlow(t *testing.T) {
	m := newTestManager(t, 10)

	alert, err := m.FireAlert("high-cpu-usage", models.SeverityCritical, "cpu pegged", 99, nil, nil)
	require.NoError(t, err)

	active := m.GetActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "high-cpu-usage", active[0].RuleID)
	assert.Equal(t, models.AlertStatusFiring, active[0].Status)
	assert.Equal(t, alert.ID, active[0].ID)

	_, err = m.ResolveAlert("high-cpu-usage")
	require.NoError(t, err)
	assert.Empty(t, m.GetActiveAlerts())

	hist := m.GetAlertHistory(10)
	require.Len(t, hist, 1)
	assert.Equal(t, models.AlertStatusResolved, hist[0].Status)
}

func TestCreateIncident_SeedsTimeline(t *testing.T) {
	m := newTestManager(t, 10)

	inc := m.CreateIncident("DB down", "primary unreachable", models.SeverityHigh, "p1", "db", []string{"high-cpu-usage"}, []string{"database"})
	assert.Equal(t, models.IncidentStatusOpen, inc.Status)
	require.Len(t, inc.Timeline, 1)
	assert.Equal(t, models.UpdateTypeCreation, inc.Timeline[0].Type)
	assert.Equal(t, 1, inc.Metrics.AlertCount)

	// Related alert IDs are best-effort hints; unknown IDs are accepted.
	loose := m.CreateIncident("ghost", "", models.SeverityLow, "p3", "", []string{"does-not-exist"}, nil)
	assert.Equal(t, []string{"does-not-exist"}, loose.RelatedAlerts)
}

func TestUpdateIncidentStatus_ForwardOnly(t *testing.T) {
	m := newTestManager(t, 10)
	inc := m.CreateIncident("DB down", "d", models.SeverityHigh, "p1", "db", []string{"high-cpu-usage"}, nil)

	steps := []models.IncidentStatus{
		models.IncidentStatusInvestigating,
		models.IncidentStatusResolved,
		models.IncidentStatusClosed,
	}
	for i, s := range steps {
		got, err := m.UpdateIncidentStatus(inc.ID, s, "alice", "step")
		require.NoError(t, err)
		assert.Equal(t, s, got.Status)
		// creation entry + one entry per transition
		assert.Len(t, got.Timeline, i+2)
	}

	// closed is terminal
	_, err := m.UpdateIncidentStatus(inc.ID, models.IncidentStatusOpen, "bob", "reopen?")
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, string(models.IncidentStatusClosed), invalid.From)

	// state unchanged after a rejected transition
	cur, err := m.GetIncident(inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusClosed, cur.Status)
	assert.Len(t, cur.Timeline, 4)
}

func TestUpdateIncidentStatus_ReopenFromResolved(t *testing.T) {
	m := newTestManager(t, 10)
	inc := m.CreateIncident("flaky", "d", models.SeverityMedium, "p2", "svc", nil, nil)

	_, err := m.UpdateIncidentStatus(inc.ID, models.IncidentStatusResolved, "alice", "fixed")
	require.NoError(t, err)

	// resolved -> investigating is the one allowed backward edge
	got, err := m.UpdateIncidentStatus(inc.ID, models.IncidentStatusInvestigating, "bob", "it came back")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusInvestigating, got.Status)

	// but resolved -> open is not
	_, err = m.UpdateIncidentStatus(inc.ID, models.IncidentStatusResolved, "bob", "fixed again")
	require.NoError(t, err)
	_, err = m.UpdateIncidentStatus(inc.ID, models.IncidentStatusOpen, "bob", "nope")
	var invalid *InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

func TestUpdateIncidentStatus_UnknownIncident(t *testing.T) {
	m := newTestManager(t, 10)
	_, err := m.UpdateIncidentStatus("missing", models.IncidentStatusInvestigating, "alice", "m")
	var unknown *UnknownIncidentError
	assert.True(t, errors.As(err, &unknown))
}

func TestIncidentEndToEnd_CreateThenInvestigate(t *testing.T) {
	m := newTestManager(t, 10)
	inc := m.CreateIncident("DB down", "", models.SeverityHigh, "p1", "db", []string{"high-cpu-usage"}, nil)

	got, err := m.UpdateIncidentStatus(inc.ID, models.IncidentStatusInvestigating, "alice", "looking into it")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusInvestigating, got.Status)
	require.Len(t, got.Timeline, 2)
	assert.Equal(t, models.UpdateTypeCreation, got.Timeline[0].Type)
	assert.Equal(t, models.UpdateTypeStatusChange, got.Timeline[1].Type)
	assert.Equal(t, "looking into it", got.Timeline[1].Message)
}

func TestGetIncidentStatistics_FreshCounts(t *testing.T) {
	m := newTestManager(t, 10)

	a := m.CreateIncident("a", "", models.SeverityHigh, "p1", "", nil, nil)
	m.CreateIncident("b", "", models.SeverityHigh, "p2", "", nil, nil)
	m.CreateIncident("c", "", models.SeverityLow, "p3", "", nil, nil)

	_, err := m.UpdateIncidentStatus(a.ID, models.IncidentStatusResolved, "alice", "done")
	require.NoError(t, err)

	stats := m.GetIncidentStatistics()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 2, stats.ByStatus[models.IncidentStatusOpen])
	assert.Equal(t, 1, stats.ByStatus[models.IncidentStatusResolved])
	assert.Equal(t, 2, stats.BySeverity[models.SeverityHigh])
	assert.Equal(t, 1, stats.BySeverity[models.SeverityLow])
}

func TestTestNotificationChannels_SkipsDisabled(t *testing.T) {
	m := newTestManager(t, 10)
	m.ReplaceChannels([]models.NotificationChannel{
		{ID: "c1", Name: "ops email", Type: models.ChannelEmail, Enabled: true},
		{ID: "c2", Name: "ops chat", Type: models.ChannelChat, Enabled: true},
		{ID: "c3", Name: "legacy hook", Type: models.ChannelWebhook, Enabled: false},
	})

	results := m.TestNotificationChannels(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ChannelID)
	assert.Equal(t, "c2", results[1].ChannelID)
	for _, r := range results {
		assert.Greater(t, r.Latency, time.Duration(0))
	}
}

func TestTestNotificationChannels_CancelReturnsPartialResults(t *testing.T) {
	m := newTestManager(t, 10)
	tr := NewSimulatedTransport(7)
	tr.BaseLatency = 50 * time.Millisecond
	tr.MaxJitter = 0
	m.transport = tr
	m.ReplaceChannels([]models.NotificationChannel{
		{ID: "c1", Name: "ops email", Type: models.ChannelEmail, Enabled: true},
		{ID: "c2", Name: "ops chat", Type: models.ChannelChat, Enabled: true},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	results := m.TestNotificationChannels(ctx)
	assert.Empty(t, results, "attempts abandoned before latency elapses produce no results")
}

func TestSubscribe_ReceivesFiredAlerts(t *testing.T) {
	m := newTestManager(t, 10)
	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	_, err := m.FireAlert("high-cpu-usage", models.SeverityCritical, "m", 91, nil, nil)
	require.NoError(t, err)

	select {
	case a := <-ch:
		assert.Equal(t, "high-cpu-usage", a.RuleID)
		assert.Equal(t, models.AlertStatusFiring, a.Status)
	case <-time.After(time.Second):
		t.Fatal("no alert delivered to subscriber")
	}
}

func TestConcurrentFireAndRead(t *testing.T) {
	m := newTestManager(t, 10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_, _ = m.FireAlert("high-cpu-usage", models.SeverityCritical, "m", float64(i), nil, nil)
		}
	}()
	for i := 0; i < 200; i++ {
		_ = m.GetActiveAlerts()
		_ = m.GetIncidentStatistics()
	}
	<-done

	active := m.GetActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, 199.0, active[0].Value)
}
