package monitoring

import "studio-monitoring/pkg/models"

const recentLimit = 10

// SummarizeHealthChecks folds a set of health-check rows into status counts,
// a mean response time, and a per-service table of latest statuses. Rows are
// expected newest first; the first row seen for a service name is its latest
// status. Empty input yields zero counts and a zero average.
func SummarizeHealthChecks(checks []models.HealthCheck) models.HealthCheckSummary {
	summary := models.HealthCheckSummary{
		Services: []models.ServiceStatus{},
	}

	var totalResponseTime int64
	seen := make(map[string]struct{})

	for _, check := range checks {
		summary.TotalChecks++
		totalResponseTime += check.ResponseTimeMs

		switch check.Status {
		case models.CheckStatusPass:
			summary.PassingChecks++
		case models.CheckStatusFail:
			summary.FailingChecks++
		case models.CheckStatusWarning:
			summary.WarningChecks++
		case models.CheckStatusTimeout:
			summary.TimeoutChecks++
		}

		if _, ok := seen[check.ServiceName]; ok {
			continue
		}
		seen[check.ServiceName] = struct{}{}
		summary.Services = append(summary.Services, models.ServiceStatus{
			ServiceName:    check.ServiceName,
			Status:         check.Status,
			LastCheck:      check.CreatedAt,
			ResponseTimeMs: check.ResponseTimeMs,
		})
	}

	if summary.TotalChecks > 0 {
		summary.AverageResponseTime = float64(totalResponseTime) / float64(summary.TotalChecks)
	}

	return summary
}

// SummarizeIncidents folds a set of incident rows into counts and a mean
// resolution time in hours. Only incidents with a resolution timestamp enter
// the average; the recent list is the first ten rows verbatim, so callers
// should pass rows newest first.
func SummarizeIncidents(incidents []models.Incident) models.IncidentSummary {
	summary := models.IncidentSummary{
		RecentIncidents: []models.Incident{},
	}

	var resolvedCount int
	var totalResolutionHours float64

	for i := range incidents {
		incident := &incidents[i]
		summary.TotalIncidents++

		if incident.Active() {
			summary.OpenIncidents++
		}
		if incident.Severity == models.SeverityCritical {
			summary.CriticalIncidents++
		}
		if incident.ResolvedAt != nil {
			resolvedCount++
			totalResolutionHours += incident.ResolvedAt.Sub(incident.StartedAt).Hours()
		}
	}

	if resolvedCount > 0 {
		summary.AverageResolutionTime = totalResolutionHours / float64(resolvedCount)
	}

	recent := incidents
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	summary.RecentIncidents = append(summary.RecentIncidents, recent...)

	return summary
}

// SummarizeAlerts folds a set of alert rows into counts and the first ten
// triggered rows in input order. A disabled alert still counts toward the
// total and triggered tallies, just not toward enabled.
func SummarizeAlerts(alerts []models.Alert) models.AlertSummary {
	summary := models.AlertSummary{
		RecentTriggers: []models.Alert{},
	}

	for i := range alerts {
		alert := &alerts[i]
		summary.TotalAlerts++

		if alert.IsEnabled {
			summary.EnabledAlerts++
		}
		if alert.IsTriggered {
			summary.TriggeredAlerts++
			if len(summary.RecentTriggers) < recentLimit {
				summary.RecentTriggers = append(summary.RecentTriggers, *alert)
			}
		}
		if alert.Severity == models.SeverityCritical {
			summary.CriticalAlerts++
		}
	}

	return summary
}
