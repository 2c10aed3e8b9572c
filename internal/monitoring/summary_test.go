package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-monitoring/pkg/models"
)

func TestSummarizeHealthChecks_CountsAndAverage(t *testing.T) {
	now := time.Now()
	checks := []models.HealthCheck{
		{ServiceName: "api", Status: models.CheckStatusPass, ResponseTimeMs: 100, CreatedAt: now},
		{ServiceName: "postgres", Status: models.CheckStatusFail, ResponseTimeMs: 200, CreatedAt: now.Add(-time.Minute)},
		{ServiceName: "github", Status: models.CheckStatusTimeout, ResponseTimeMs: 10000, CreatedAt: now.Add(-2 * time.Minute)},
		{ServiceName: "worker_pool", Status: models.CheckStatusWarning, ResponseTimeMs: 100, CreatedAt: now.Add(-3 * time.Minute)},
	}

	summary := SummarizeHealthChecks(checks)

	assert.Equal(t, 4, summary.TotalChecks)
	assert.Equal(t, 1, summary.PassingChecks)
	assert.Equal(t, 1, summary.FailingChecks)
	assert.Equal(t, 1, summary.WarningChecks)
	assert.Equal(t, 1, summary.TimeoutChecks)
	assert.InDelta(t, 2600.0, summary.AverageResponseTime, 0.001)
	assert.Len(t, summary.Services, 4)
}

func TestSummarizeHealthChecks_LatestStatusPerService(t *testing.T) {
	now := time.Now()
	// Rows arrive newest first; the newest row for a service wins.
	checks := []models.HealthCheck{
		{ServiceName: "api", Status: models.CheckStatusFail, ResponseTimeMs: 500, CreatedAt: now},
		{ServiceName: "api", Status: models.CheckStatusPass, ResponseTimeMs: 90, CreatedAt: now.Add(-30 * time.Second)},
		{ServiceName: "api", Status: models.CheckStatusPass, ResponseTimeMs: 85, CreatedAt: now.Add(-time.Minute)},
	}

	summary := SummarizeHealthChecks(checks)

	assert.Equal(t, 3, summary.TotalChecks)
	assert.Equal(t, 2, summary.PassingChecks)
	assert.Equal(t, 1, summary.FailingChecks)

	require.Len(t, summary.Services, 1)
	assert.Equal(t, "api", summary.Services[0].ServiceName)
	assert.Equal(t, models.CheckStatusFail, summary.Services[0].Status)
	assert.Equal(t, int64(500), summary.Services[0].ResponseTimeMs)
	assert.Equal(t, now, summary.Services[0].LastCheck)
}

func TestSummarizeHealthChecks_Empty(t *testing.T) {
	summary := SummarizeHealthChecks(nil)

	assert.Equal(t, 0, summary.TotalChecks)
	assert.Equal(t, 0.0, summary.AverageResponseTime)
	assert.NotNil(t, summary.Services)
	assert.Empty(t, summary.Services)
}

func TestSummarizeIncidents_CountsAndResolutionTime(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	resolved := started.Add(2 * time.Hour)

	incidents := []models.Incident{
		{Status: models.IncidentStatusOpen, Severity: models.SeverityCritical, StartedAt: started},
		{Status: models.IncidentStatusInvestigating, Severity: models.SeverityHigh, StartedAt: started},
		{Status: models.IncidentStatusResolved, Severity: models.SeverityLow, StartedAt: started, ResolvedAt: &resolved},
		{Status: models.IncidentStatusClosed, Severity: models.SeverityMedium, StartedAt: started},
	}

	summary := SummarizeIncidents(incidents)

	assert.Equal(t, 4, summary.TotalIncidents)
	assert.Equal(t, 2, summary.OpenIncidents)
	assert.Equal(t, 1, summary.CriticalIncidents)
	assert.InDelta(t, 2.0, summary.AverageResolutionTime, 0.001)
	assert.Len(t, summary.RecentIncidents, 4)
}

func TestSummarizeIncidents_UnresolvedExcludedFromAverage(t *testing.T) {
	started := time.Now().Add(-5 * time.Hour)
	incidents := []models.Incident{
		{Status: models.IncidentStatusOpen, StartedAt: started},
		{Status: models.IncidentStatusInvestigating, StartedAt: started},
	}

	summary := SummarizeIncidents(incidents)

	assert.Equal(t, 0.0, summary.AverageResolutionTime)
}

func TestSummarizeIncidents_RecentCappedAtTen(t *testing.T) {
	incidents := make([]models.Incident, 15)
	for i := range incidents {
		incidents[i] = models.Incident{ID: string(rune('a' + i)), Status: models.IncidentStatusOpen}
	}

	summary := SummarizeIncidents(incidents)

	require.Len(t, summary.RecentIncidents, 10)
	assert.Equal(t, incidents[0].ID, summary.RecentIncidents[0].ID)
	assert.Equal(t, incidents[9].ID, summary.RecentIncidents[9].ID)
}

func TestSummarizeIncidents_Empty(t *testing.T) {
	summary := SummarizeIncidents(nil)

	assert.Equal(t, 0, summary.TotalIncidents)
	assert.Equal(t, 0.0, summary.AverageResolutionTime)
	assert.NotNil(t, summary.RecentIncidents)
	assert.Empty(t, summary.RecentIncidents)
}

func TestSummarizeAlerts_Counts(t *testing.T) {
	alerts := []models.Alert{
		{Name: "cpu", IsEnabled: true, IsTriggered: true, Severity: models.SeverityCritical},
		{Name: "mem", IsEnabled: true, IsTriggered: false, Severity: models.SeverityLow},
		// Disabled alerts still count as triggered when their flag is set.
		{Name: "disk", IsEnabled: false, IsTriggered: true, Severity: models.SeverityHigh},
	}

	summary := SummarizeAlerts(alerts)

	assert.Equal(t, 3, summary.TotalAlerts)
	assert.Equal(t, 2, summary.EnabledAlerts)
	assert.Equal(t, 2, summary.TriggeredAlerts)
	assert.Equal(t, 1, summary.CriticalAlerts)

	require.Len(t, summary.RecentTriggers, 2)
	assert.Equal(t, "cpu", summary.RecentTriggers[0].Name)
	assert.Equal(t, "disk", summary.RecentTriggers[1].Name)
}

func TestSummarizeAlerts_Empty(t *testing.T) {
	summary := SummarizeAlerts(nil)

	assert.Equal(t, 0, summary.TotalAlerts)
	assert.NotNil(t, summary.RecentTriggers)
	assert.Empty(t, summary.RecentTriggers)
}
