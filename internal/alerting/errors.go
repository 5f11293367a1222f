package alerting

import "fmt"

// UnknownRuleError is returned when an operation references a rule ID that is
// not loaded.
type UnknownRuleError struct {
	RuleID string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown alert rule: %s", e.RuleID)
}

// UnknownIncidentError is returned when an operation references an incident ID
// that does not exist.
type UnknownIncidentError struct {
	IncidentID string
}

func (e *UnknownIncidentError) Error() string {
	return fmt.Sprintf("unknown incident: %s", e.IncidentID)
}

// InvalidTransitionError is returned when an incident status change violates
// the forward-only state machine.
type InvalidTransitionError struct {
	IncidentID string
	From       string
	To         string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid incident status transition %s -> %s for incident %s", e.From, e.To, e.IncidentID)
}
