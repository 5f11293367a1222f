package models

import "time"

type IncidentStatus string

const (
	IncidentStatusOpen          IncidentStatus = "open"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// Active reports whether the status counts as an open investigation for
// reporting purposes.
func (s IncidentStatus) Active() bool {
	return s == IncidentStatusOpen || s == IncidentStatusInvestigating
}

type IncidentUpdateType string

const (
	UpdateTypeCreation     IncidentUpdateType = "creation"
	UpdateTypeStatusChange IncidentUpdateType = "status_change"
	UpdateTypeComment      IncidentUpdateType = "comment"
)

// IncidentUpdate is one append-only audit entry on an incident timeline.
type IncidentUpdate struct {
	Timestamp time.Time          `json:"timestamp"`
	Author    string             `json:"author"`
	Type      IncidentUpdateType `json:"type"`
	Message   string             `json:"message"`
	OldValue  string             `json:"old_value,omitempty"`
	NewValue  string             `json:"new_value,omitempty"`
}

// IncidentMetrics carries summary figures computed at creation or during
// the incident lifecycle.
type IncidentMetrics struct {
	TimeToDetect  time.Duration `json:"time_to_detect_ms,omitempty"`
	TimeToResolve time.Duration `json:"time_to_resolve_ms,omitempty"`
	AlertCount    int           `json:"alert_count"`
}

// Incident correlates one or more alerts with a human-managed investigation.
// Incidents are never deleted, only closed.
type Incident struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Status          IncidentStatus   `json:"status"`
	Severity        AlertSeverity    `json:"severity"`
	Priority        string           `json:"priority"`
	AffectedService string           `json:"affected_service,omitempty"`
	RelatedAlerts   []string         `json:"related_alerts"`
	Tags            []string         `json:"tags,omitempty"`
	Timeline        []IncidentUpdate `json:"timeline"`
	Metrics         IncidentMetrics  `json:"metrics"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IncidentStatistics aggregates incident counts by status and severity.
// Computed fresh on every call; the incident map is the single source of truth.
type IncidentStatistics struct {
	Total      int                    `json:"total"`
	Active     int                    `json:"active"`
	ByStatus   map[IncidentStatus]int `json:"by_status"`
	BySeverity map[AlertSeverity]int  `json:"by_severity"`
}
