package intelligence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/platformbuilds/vigil-core/internal/metrics"
	"github.com/platformbuilds/vigil-core/internal/models"
)

// AlertSource exposes the alert manager state the analyzer reads. The
// alerting.Manager satisfies it.
type AlertSource interface {
	GetIncident(incidentID string) (*models.Incident, error)
	GetActiveAlerts() []*models.Alert
	GetAlertHistory(limit int) []*models.Alert
}

// RootCauseConfig tunes correlation windows and scoring.
type RootCauseConfig struct {
	// OverlapWindow is how far around the incident creation time alerts are
	// considered temporally related.
	OverlapWindow time.Duration
	// ClusterWindow is the spread within which contributing alerts count as
	// one temporal cluster, raising confidence.
	ClusterWindow time.Duration
}

func DefaultRootCauseConfig() RootCauseConfig {
	return RootCauseConfig{
		OverlapWindow: 30 * time.Minute,
		ClusterWindow: 5 * time.Minute,
	}
}

// RootCauseAnalyzer correlates an incident's related alerts with temporally
// overlapping signals into a ranked, confidence-scored explanation. Stateless
// over the AlertSource it is given.
type RootCauseAnalyzer struct {
	source AlertSource
	cfg    RootCauseConfig
}

func NewRootCauseAnalyzer(source AlertSource, cfg RootCauseConfig) *RootCauseAnalyzer {
	if cfg.OverlapWindow <= 0 {
		cfg.OverlapWindow = DefaultRootCauseConfig().OverlapWindow
	}
	if cfg.ClusterWindow <= 0 {
		cfg.ClusterWindow = DefaultRootCauseConfig().ClusterWindow
	}
	return &RootCauseAnalyzer{source: source, cfg: cfg}
}

// Analyze builds the RootCauseAnalysis for an incident. An incident with no
// contributing alerts yields a low-confidence result with empty candidates —
// that is not an error. Only an unknown incident fails.
func (a *RootCauseAnalyzer) Analyze(ctx context.Context, incidentID string) (*models.RootCauseAnalysis, error) {
	started := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues("rca").Observe(time.Since(started).Seconds())
	}()

	incident, err := a.source.GetIncident(incidentID)
	if err != nil {
		return nil, &IncidentNotFoundError{IncidentID: incidentID, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contributing := a.gatherContributing(incident)

	analysis := &models.RootCauseAnalysis{
		IncidentID: incidentID,
		Candidates: a.rankCandidates(contributing),
		Correlated: a.correlateSignals(contributing),
		Timeline:   a.buildTimeline(incident, contributing),
		Confidence: a.confidence(incident, contributing),
		AnalyzedAt: time.Now(),
	}
	return analysis, nil
}

// gatherContributing collects the incident's related alerts plus any alert
// whose start falls inside the overlap window, oldest first.
func (a *RootCauseAnalyzer) gatherContributing(incident *models.Incident) []*models.Alert {
	related := make(map[string]struct{}, len(incident.RelatedAlerts))
	for _, id := range incident.RelatedAlerts {
		related[id] = struct{}{}
	}

	windowStart := incident.CreatedAt.Add(-a.cfg.OverlapWindow)
	windowEnd := incident.CreatedAt.Add(a.cfg.OverlapWindow)

	seen := make(map[string]struct{})
	var out []*models.Alert
	add := func(alert *models.Alert) {
		if _, dup := seen[alert.ID]; dup {
			return
		}
		_, isRelated := related[alert.ID]
		if !isRelated {
			// Related alert IDs may reference rules when correlation is
			// best-effort; accept either.
			_, isRelated = related[alert.RuleID]
		}
		overlaps := !alert.StartsAt.Before(windowStart) && !alert.StartsAt.After(windowEnd)
		if isRelated || overlaps {
			seen[alert.ID] = struct{}{}
			out = append(out, alert)
		}
	}
	for _, alert := range a.source.GetActiveAlerts() {
		add(alert)
	}
	for _, alert := range a.source.GetAlertHistory(0) {
		add(alert)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

// rankCandidates scores earliest-firing alerts highest, boosted by how many
// later alerts corroborate them through shared labels or services.
func (a *RootCauseAnalyzer) rankCandidates(contributing []*models.Alert) []models.RootCauseCandidate {
	candidates := make([]models.RootCauseCandidate, 0, len(contributing))
	for i, alert := range contributing {
		// Position decay: the first firing signal is the strongest lead.
		score := 0.9 / float64(i+1)

		var evidence []string
		evidence = append(evidence, fmt.Sprintf("fired at %s (position %d of %d)", alert.StartsAt.Format(time.RFC3339), i+1, len(contributing)))

		corroborating := 0
		for j, other := range contributing {
			if i == j {
				continue
			}
			if shared := sharedLabels(alert, other); shared > 0 {
				corroborating++
				evidence = append(evidence, fmt.Sprintf("shares %d label(s) with alert on rule %s", shared, other.RuleID))
			}
		}
		score = clamp01(score + 0.05*float64(corroborating))

		candidates = append(candidates, models.RootCauseCandidate{
			Description: fmt.Sprintf("Rule %s fired first on this signal group: %s", alert.RuleID, alert.Message),
			AlertID:     alert.ID,
			RuleID:      alert.RuleID,
			Service:     alert.Labels["service"],
			Score:       score,
			Evidence:    evidence,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	return candidates
}

// correlateSignals links alerts that share labels or overlap in time.
func (a *RootCauseAnalyzer) correlateSignals(contributing []*models.Alert) []models.CorrelatedSignal {
	var signals []models.CorrelatedSignal
	for i := 1; i < len(contributing); i++ {
		first := contributing[0]
		alert := contributing[i]
		if shared := sharedLabels(first, alert); shared > 0 {
			strength := clamp01(float64(shared) / float64(maxInt(len(first.Labels), 1)))
			signals = append(signals, models.CorrelatedSignal{
				AlertID:     alert.ID,
				RuleID:      alert.RuleID,
				Correlation: "shared_labels",
				Strength:    strength,
			})
			continue
		}
		gap := alert.StartsAt.Sub(first.StartsAt)
		if gap <= a.cfg.ClusterWindow {
			signals = append(signals, models.CorrelatedSignal{
				AlertID:     alert.ID,
				RuleID:      alert.RuleID,
				Correlation: "time_overlap",
				Strength:    clamp01(1 - float64(gap)/float64(a.cfg.ClusterWindow)),
			})
		}
	}
	return signals
}

// buildTimeline merges incident updates and alert lifecycle events into one
// chronological view.
func (a *RootCauseAnalyzer) buildTimeline(incident *models.Incident, contributing []*models.Alert) []models.TimelineEvent {
	events := make([]models.TimelineEvent, 0, len(incident.Timeline)+2*len(contributing))
	for _, u := range incident.Timeline {
		events = append(events, models.TimelineEvent{
			Time:   u.Timestamp,
			Event:  fmt.Sprintf("incident %s: %s", u.Type, u.Message),
			Source: "incident",
		})
	}
	for _, alert := range contributing {
		events = append(events, models.TimelineEvent{
			Time:     alert.StartsAt,
			Event:    fmt.Sprintf("alert fired on rule %s", alert.RuleID),
			Source:   "alert",
			Severity: alert.Severity,
		})
		if alert.EndsAt != nil {
			events = append(events, models.TimelineEvent{
				Time:     *alert.EndsAt,
				Event:    fmt.Sprintf("alert resolved on rule %s", alert.RuleID),
				Source:   "alert",
				Severity: alert.Severity,
			})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events
}

// confidence rises with corroborating, temporally clustered signals and falls
// back to a floor when nothing contributed.
func (a *RootCauseAnalyzer) confidence(incident *models.Incident, contributing []*models.Alert) float64 {
	if len(contributing) == 0 {
		return 0.1
	}

	clustered := 0
	first := contributing[0].StartsAt
	for _, alert := range contributing {
		if alert.StartsAt.Sub(first) <= a.cfg.ClusterWindow {
			clustered++
		}
	}
	clusterRatio := float64(clustered) / float64(len(contributing))

	confidence := 0.2 + 0.1*float64(len(contributing)) + 0.3*clusterRatio
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

func sharedLabels(a, b *models.Alert) int {
	n := 0
	for k, v := range a.Labels {
		if bv, ok := b.Labels[k]; ok && bv == v {
			n++
		}
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
