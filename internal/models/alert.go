package models

import "time"

type AlertStatus string

const (
	AlertStatusFiring   AlertStatus = "firing"
	AlertStatusResolved AlertStatus = "resolved"
)

type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityHigh     AlertSeverity = "high"
	SeverityMedium   AlertSeverity = "medium"
	SeverityLow      AlertSeverity = "low"
)

// ValidSeverity reports whether s is one of the recognised severity levels.
func ValidSeverity(s AlertSeverity) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// AlertRule is a named threshold condition watching a single metric. Rules are
// loaded at startup (or via hot reload) and are immutable afterwards except for
// the Enabled flag.
type AlertRule struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Metric    string        `json:"metric" yaml:"metric"`
	Condition string        `json:"condition" yaml:"condition"` // gt, gte, lt, lte
	Threshold float64       `json:"threshold" yaml:"threshold"`
	Severity  AlertSeverity `json:"severity" yaml:"severity"`
	Enabled   bool          `json:"enabled" yaml:"enabled"`
}

// Alert is a single firing (or resolved) occurrence of a rule. At most one
// alert per rule is ever in the firing state.
type Alert struct {
	ID          string            `json:"id"`
	RuleID      string            `json:"rule_id"`
	Status      AlertStatus       `json:"status"`
	Severity    AlertSeverity     `json:"severity"`
	Message     string            `json:"message"`
	Value       float64           `json:"value"`
	Threshold   float64           `json:"threshold"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	StartsAt    time.Time         `json:"starts_at"`
	EndsAt      *time.Time        `json:"ends_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelWebhook ChannelType = "webhook"
	ChannelChat    ChannelType = "chat"
)

// NotificationChannel is a static delivery target. The engine only tests
// channels; real delivery belongs to an external notifier.
type NotificationChannel struct {
	ID      string      `json:"id" yaml:"id"`
	Name    string      `json:"name" yaml:"name"`
	Type    ChannelType `json:"type" yaml:"type"`
	Target  string      `json:"target,omitempty" yaml:"target"`
	Enabled bool        `json:"enabled" yaml:"enabled"`
}

// ChannelTestResult is the outcome of one simulated dispatch attempt.
type ChannelTestResult struct {
	ChannelID string        `json:"channel_id"`
	Channel   string        `json:"channel"`
	Type      ChannelType   `json:"type"`
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
	TestedAt  time.Time     `json:"tested_at"`
}
