package intelligence

import "fmt"

// InvalidInputError is returned when a caller supplies series the engines
// cannot analyze at all (empty or mismatched lengths). Degraded data, such as
// short windows, is handled with lower-confidence results instead.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// IncidentNotFoundError is returned by root cause analysis when the incident
// does not exist in the alert manager.
type IncidentNotFoundError struct {
	IncidentID string
	Err        error
}

func (e *IncidentNotFoundError) Error() string {
	return fmt.Sprintf("incident not found: %s", e.IncidentID)
}

func (e *IncidentNotFoundError) Unwrap() error { return e.Err }
