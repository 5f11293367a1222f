package alerting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platformbuilds/vigil-core/internal/metrics"
	"github.com/platformbuilds/vigil-core/internal/models"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

// DefaultHistoryLimit bounds the alert history when no limit is configured.
const DefaultHistoryLimit = 100

// Manager is the single source of truth for rule, alert, incident and
// notification channel state. All access to its collections goes through one
// reader/writer lock; none of its operations perform I/O while holding it.
type Manager struct {
	mu sync.RWMutex

	rules     map[string]*models.AlertRule
	active    map[string]*models.Alert // keyed by rule ID, at most one firing alert per rule
	history   []*models.Alert          // resolution order, oldest first
	incidents map[string]*models.Incident
	channels  []*models.NotificationChannel

	historyLimit int
	transport    ChannelTransport
	logger       logger.Logger

	subMu sync.Mutex
	subs  map[chan *models.Alert]struct{}
}

// NewManager creates an empty manager. Rules and channels are loaded
// afterwards via ReplaceRules/ReplaceChannels (startup load and hot reload use
// the same path).
func NewManager(historyLimit int, transport ChannelTransport, log logger.Logger) *Manager {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if transport == nil {
		transport = NewSimulatedTransport(time.Now().UnixNano())
	}
	return &Manager{
		rules:        make(map[string]*models.AlertRule),
		active:       make(map[string]*models.Alert),
		incidents:    make(map[string]*models.Incident),
		historyLimit: historyLimit,
		transport:    transport,
		logger:       log,
		subs:         make(map[chan *models.Alert]struct{}),
	}
}

// ReplaceRules atomically swaps the rule set. Active alerts for rules that
// disappear are left in place; they resolve normally.
func (m *Manager) ReplaceRules(rules []models.AlertRule) {
	next := make(map[string]*models.AlertRule, len(rules))
	for i := range rules {
		r := rules[i]
		next[r.ID] = &r
	}
	m.mu.Lock()
	m.rules = next
	m.mu.Unlock()
	m.logger.Info("Alert rules replaced", "count", len(rules))
}

// ReplaceChannels atomically swaps the notification channel set.
func (m *Manager) ReplaceChannels(channels []models.NotificationChannel) {
	next := make([]*models.NotificationChannel, 0, len(channels))
	for i := range channels {
		c := channels[i]
		next = append(next, &c)
	}
	m.mu.Lock()
	m.channels = next
	m.mu.Unlock()
	m.logger.Info("Notification channels replaced", "count", len(channels))
}

// ListRules returns a snapshot of all rules sorted by ID.
func (m *Manager) ListRules() []models.AlertRule {
	m.mu.RLock()
	out := make([]models.AlertRule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, *r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetRule returns a copy of one rule.
func (m *Manager) GetRule(ruleID string) (models.AlertRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[ruleID]
	if !ok {
		return models.AlertRule{}, &UnknownRuleError{RuleID: ruleID}
	}
	return *r, nil
}

// FireAlert fires the rule with the observed value. If the rule already has an
// active alert the existing alert is updated in place; firing is idempotent
// and the at-most-one-active-alert-per-rule invariant always holds.
func (m *Manager) FireAlert(ruleID string, severity models.AlertSeverity, message string, value float64, labels, annotations map[string]string) (*models.Alert, error) {
	now := time.Now()

	m.mu.Lock()
	rule, ok := m.rules[ruleID]
	if !ok {
		m.mu.Unlock()
		return nil, &UnknownRuleError{RuleID: ruleID}
	}

	deduplicated := "false"
	alert, exists := m.active[ruleID]
	if exists {
		alert.Value = value
		alert.Severity = severity
		if message != "" {
			alert.Message = message
		}
		mergeLabels(alert.Labels, labels)
		mergeLabels(alert.Annotations, annotations)
		alert.UpdatedAt = now
		deduplicated = "true"
	} else {
		alert = &models.Alert{
			ID:          uuid.NewString(),
			RuleID:      ruleID,
			Status:      models.AlertStatusFiring,
			Severity:    severity,
			Message:     message,
			Value:       value,
			Threshold:   rule.Threshold,
			Labels:      copyLabels(labels),
			Annotations: copyLabels(annotations),
			StartsAt:    now,
			UpdatedAt:   now,
		}
		m.active[ruleID] = alert
		metrics.ActiveAlerts.Set(float64(len(m.active)))
	}
	out := cloneAlert(alert)
	m.mu.Unlock()

	metrics.AlertsFired.WithLabelValues(ruleID, string(severity), deduplicated).Inc()
	m.logger.Info("Alert fired", "ruleId", ruleID, "severity", severity, "value", value, "deduplicated", deduplicated == "true")
	m.publish(out)
	return out, nil
}

// ResolveAlert resolves the rule's active alert, if any, and appends it to the
// bounded history. Resolving a rule with no active alert is a no-op.
func (m *Manager) ResolveAlert(ruleID string) (*models.Alert, error) {
	now := time.Now()

	m.mu.Lock()
	alert, ok := m.active[ruleID]
	if !ok {
		m.mu.Unlock()
		return nil, nil
	}
	alert.Status = models.AlertStatusResolved
	alert.EndsAt = &now
	alert.UpdatedAt = now
	delete(m.active, ruleID)

	m.history = append(m.history, alert)
	if len(m.history) > m.historyLimit {
		// Evict oldest first; history preserves resolution order.
		m.history = m.history[len(m.history)-m.historyLimit:]
	}
	metrics.ActiveAlerts.Set(float64(len(m.active)))
	out := cloneAlert(alert)
	m.mu.Unlock()

	metrics.AlertsResolved.WithLabelValues(ruleID).Inc()
	m.logger.Info("Alert resolved", "ruleId", ruleID, "alertId", out.ID)
	m.publish(out)
	return out, nil
}

// GetActiveAlerts returns a snapshot of all firing alerts sorted by start time.
func (m *Manager) GetActiveAlerts() []*models.Alert {
	m.mu.RLock()
	out := make([]*models.Alert, 0, len(m.active))
	for _, a := range m.active {
		out = append(out, cloneAlert(a))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

// GetAlertHistory returns up to limit of the most recent resolved alerts,
// oldest first. limit <= 0 returns the full bounded history.
func (m *Manager) GetAlertHistory(limit int) []*models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.Alert, 0, n)
	for _, a := range m.history[len(m.history)-n:] {
		out = append(out, cloneAlert(a))
	}
	return out
}

// CreateIncident allocates a new open incident with a seeded creation entry on
// its timeline. Related alert IDs are recorded as given; they are best-effort
// correlation hints and are not validated against active alerts or history.
func (m *Manager) CreateIncident(title, description string, severity models.AlertSeverity, priority, affectedService string, relatedAlertIDs, tags []string) *models.Incident {
	now := time.Now()
	inc := &models.Incident{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     description,
		Status:          models.IncidentStatusOpen,
		Severity:        severity,
		Priority:        priority,
		AffectedService: affectedService,
		RelatedAlerts:   append([]string(nil), relatedAlertIDs...),
		Tags:            append([]string(nil), tags...),
		Timeline: []models.IncidentUpdate{{
			Timestamp: now,
			Author:    "system",
			Type:      models.UpdateTypeCreation,
			Message:   "Incident created",
		}},
		Metrics:   models.IncidentMetrics{AlertCount: len(relatedAlertIDs)},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.incidents[inc.ID] = inc
	out := cloneIncident(inc)
	m.mu.Unlock()

	metrics.IncidentsCreated.WithLabelValues(string(severity)).Inc()
	m.logger.Info("Incident created", "incidentId", out.ID, "title", title, "severity", severity, "relatedAlerts", len(relatedAlertIDs))
	return out
}

// incidentRank orders statuses for the forward-only state machine.
var incidentRank = map[models.IncidentStatus]int{
	models.IncidentStatusOpen:          0,
	models.IncidentStatusInvestigating: 1,
	models.IncidentStatusResolved:      2,
	models.IncidentStatusClosed:        3,
}

// UpdateIncidentStatus advances the incident state machine and appends one
// timeline entry recording the transition. Backward transitions are rejected
// except the explicit reopen path resolved -> investigating; closed is
// terminal.
func (m *Manager) UpdateIncidentStatus(incidentID string, newStatus models.IncidentStatus, author, message string) (*models.Incident, error) {
	if _, ok := incidentRank[newStatus]; !ok {
		return nil, &InvalidTransitionError{IncidentID: incidentID, From: "", To: string(newStatus)}
	}
	now := time.Now()

	m.mu.Lock()
	inc, ok := m.incidents[incidentID]
	if !ok {
		m.mu.Unlock()
		return nil, &UnknownIncidentError{IncidentID: incidentID}
	}

	old := inc.Status
	if !transitionAllowed(old, newStatus) {
		m.mu.Unlock()
		return nil, &InvalidTransitionError{IncidentID: incidentID, From: string(old), To: string(newStatus)}
	}

	inc.Status = newStatus
	inc.UpdatedAt = now
	inc.Timeline = append(inc.Timeline, models.IncidentUpdate{
		Timestamp: now,
		Author:    author,
		Type:      models.UpdateTypeStatusChange,
		Message:   message,
		OldValue:  string(old),
		NewValue:  string(newStatus),
	})
	if newStatus == models.IncidentStatusResolved && inc.Metrics.TimeToResolve == 0 {
		inc.Metrics.TimeToResolve = now.Sub(inc.CreatedAt)
	}
	out := cloneIncident(inc)
	m.mu.Unlock()

	metrics.IncidentTransitions.WithLabelValues(string(old), string(newStatus)).Inc()
	m.logger.Info("Incident status updated", "incidentId", incidentID, "from", old, "to", newStatus, "author", author)
	return out, nil
}

func transitionAllowed(from, to models.IncidentStatus) bool {
	if from == to {
		return false
	}
	if from == models.IncidentStatusClosed {
		return false
	}
	// Explicit reopen path.
	if from == models.IncidentStatusResolved && to == models.IncidentStatusInvestigating {
		return true
	}
	return incidentRank[to] > incidentRank[from]
}

// GetIncident returns a copy of one incident.
func (m *Manager) GetIncident(incidentID string) (*models.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inc, ok := m.incidents[incidentID]
	if !ok {
		return nil, &UnknownIncidentError{IncidentID: incidentID}
	}
	return cloneIncident(inc), nil
}

// GetIncidents returns a snapshot of all incidents, newest first.
func (m *Manager) GetIncidents() []*models.Incident {
	m.mu.RLock()
	out := make([]*models.Incident, 0, len(m.incidents))
	for _, inc := range m.incidents {
		out = append(out, cloneIncident(inc))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// GetIncidentStatistics aggregates counts by status and severity, computed
// fresh on every call.
func (m *Manager) GetIncidentStatistics() models.IncidentStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := models.IncidentStatistics{
		ByStatus:   make(map[models.IncidentStatus]int),
		BySeverity: make(map[models.AlertSeverity]int),
	}
	for _, inc := range m.incidents {
		stats.Total++
		stats.ByStatus[inc.Status]++
		stats.BySeverity[inc.Severity]++
		if inc.Status.Active() {
			stats.Active++
		}
	}
	return stats
}

// GetChannels returns a snapshot of all notification channels.
func (m *Manager) GetChannels() []models.NotificationChannel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.NotificationChannel, 0, len(m.channels))
	for _, c := range m.channels {
		out = append(out, *c)
	}
	return out
}

// TestNotificationChannels simulates one dispatch per enabled channel. Channels
// are tested concurrently so total wall time is the slowest channel, not the
// sum. On cancellation in-flight attempts are abandoned and the results that
// already completed are returned. No engine state is mutated.
func (m *Manager) TestNotificationChannels(ctx context.Context) []models.ChannelTestResult {
	channels := m.GetChannels()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []models.ChannelTestResult
	)
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		wg.Add(1)
		go func(ch models.NotificationChannel) {
			defer wg.Done()
			res, err := m.transport.Send(ctx, ch)
			if err != nil {
				// Cancelled before the simulated dispatch finished.
				return
			}
			metrics.ChannelTests.WithLabelValues(string(ch.Type), boolLabel(res.Success)).Inc()
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].ChannelID < results[j].ChannelID })
	return results
}

// Subscribe registers a live alert stream consumer. The returned channel
// receives fired and resolved alerts; slow consumers have events dropped
// rather than blocking the manager.
func (m *Manager) Subscribe() chan *models.Alert {
	ch := make(chan *models.Alert, 16)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()
	return ch
}

// Unsubscribe removes a stream consumer and closes its channel.
func (m *Manager) Unsubscribe(ch chan *models.Alert) {
	m.subMu.Lock()
	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
	m.subMu.Unlock()
}

func (m *Manager) publish(alert *models.Alert) {
	m.subMu.Lock()
	for ch := range m.subs {
		select {
		case ch <- alert:
		default:
		}
	}
	m.subMu.Unlock()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func mergeLabels(dst map[string]string, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func copyLabels(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func cloneAlert(a *models.Alert) *models.Alert {
	c := *a
	c.Labels = copyLabels(a.Labels)
	c.Annotations = copyLabels(a.Annotations)
	if a.EndsAt != nil {
		t := *a.EndsAt
		c.EndsAt = &t
	}
	return &c
}

func cloneIncident(inc *models.Incident) *models.Incident {
	c := *inc
	c.RelatedAlerts = append([]string(nil), inc.RelatedAlerts...)
	c.Tags = append([]string(nil), inc.Tags...)
	c.Timeline = append([]models.IncidentUpdate(nil), inc.Timeline...)
	return &c
}
