package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSeverity(t *testing.T) {
	for _, s := range []AlertSeverity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		assert.True(t, ValidSeverity(s), string(s))
	}
	assert.False(t, ValidSeverity("urgent"))
	assert.False(t, ValidSeverity(""))
}

func TestIncidentStatusActive(t *testing.T) {
	assert.True(t, IncidentStatusOpen.Active())
	assert.True(t, IncidentStatusInvestigating.Active())
	assert.False(t, IncidentStatusResolved.Active())
	assert.False(t, IncidentStatusClosed.Active())
}

func TestAlertOmitsEndsAtUntilResolved(t *testing.T) {
	a := Alert{
		ID:       "a1",
		RuleID:   "r1",
		Status:   AlertStatusFiring,
		Severity: SeverityHigh,
		StartsAt: time.Now(),
	}
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "ends_at")

	now := time.Now()
	a.Status = AlertStatusResolved
	a.EndsAt = &now
	raw, err = json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ends_at")
}
