package monitoring

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"studio-monitoring/pkg/models"
)

const (
	dashboardCheckLimit = 10
	trendPoints         = 24
	trendScoreJitter    = 10.0
	trendResponseJitter = 50.0
)

// DashboardStore is the read surface the assembler needs from the record
// store.
type DashboardStore interface {
	LatestSystemHealth(ctx context.Context, tenantID string) (*models.SystemHealth, error)
	RecentHealthChecks(ctx context.Context, tenantID string, limit int) ([]models.HealthCheck, error)
	ActiveIncidents(ctx context.Context, tenantID string) ([]models.Incident, error)
	TriggeredAlerts(ctx context.Context, tenantID string) ([]models.Alert, error)
	MetricsSince(ctx context.Context, tenantID string, since time.Time) ([]models.PerformanceMetric, error)
}

// Assembler builds the per-tenant dashboard view: five concurrent store reads
// plus two synthesized hourly trend series anchored on the current snapshot.
type Assembler struct {
	store DashboardStore

	// now and jitter are swappable for deterministic tests. jitter returns a
	// value in [0,1).
	now    func() time.Time
	jitter func() float64
}

func NewAssembler(store DashboardStore) *Assembler {
	return &Assembler{
		store:  store,
		now:    time.Now,
		jitter: rand.Float64,
	}
}

// Assemble fetches the five collections concurrently and fails fast: the
// first fetch error aborts the whole dashboard.
func (a *Assembler) Assemble(ctx context.Context, tenantID string) (*models.Dashboard, error) {
	var (
		health    *models.SystemHealth
		checks    []models.HealthCheck
		incidents []models.Incident
		alerts    []models.Alert
		metrics   []models.PerformanceMetric
	)

	since := a.now().Add(-24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		health, err = a.store.LatestSystemHealth(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to fetch system health: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		checks, err = a.store.RecentHealthChecks(gctx, tenantID, dashboardCheckLimit)
		if err != nil {
			return fmt.Errorf("failed to fetch health checks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		incidents, err = a.store.ActiveIncidents(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to fetch active incidents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		alerts, err = a.store.TriggeredAlerts(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to fetch triggered alerts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		metrics, err = a.store.MetricsSince(gctx, tenantID, since)
		if err != nil {
			return fmt.Errorf("failed to fetch metrics: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if health == nil {
		health = a.defaultSnapshot(tenantID)
	}
	if checks == nil {
		checks = []models.HealthCheck{}
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	if metrics == nil {
		metrics = []models.PerformanceMetric{}
	}

	return &models.Dashboard{
		SystemHealth:       *health,
		RecentHealthChecks: checks,
		ActiveIncidents:    incidents,
		TriggeredAlerts:    alerts,
		PerformanceMetrics: metrics,
		HealthScoreTrend:   a.scoreTrend(health.OverallScore),
		ResponseTimeTrend:  a.responseTimeTrend(health.ResponseTimeMs),
	}, nil
}

// defaultSnapshot is the view for a tenant with no recorded health yet: fully
// healthy, perfect score, zero resource usage.
func (a *Assembler) defaultSnapshot(tenantID string) *models.SystemHealth {
	now := a.now()
	return &models.SystemHealth{
		TenantID:             tenantID,
		Status:               models.HealthStatusHealthy,
		OverallScore:         100,
		DatabaseStatus:       models.HealthStatusHealthy,
		APIStatus:            models.HealthStatusHealthy,
		IntegrationsStatus:   models.HealthStatusHealthy,
		BackgroundJobsStatus: models.HealthStatusHealthy,
		Metadata:             map[string]interface{}{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// scoreTrend synthesizes 24 hourly points around the current score, oldest
// first, each clamped to [0,100].
func (a *Assembler) scoreTrend(base float64) []models.ScorePoint {
	now := a.now()
	points := make([]models.ScorePoint, 0, trendPoints)
	for i := 0; i < trendPoints; i++ {
		score := base + (a.jitter()-0.5)*trendScoreJitter
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		points = append(points, models.ScorePoint{
			Timestamp: now.Add(-time.Duration(trendPoints-1-i) * time.Hour),
			Score:     score,
		})
	}
	return points
}

// responseTimeTrend synthesizes 24 hourly points around the current response
// time, oldest first, floored at zero.
func (a *Assembler) responseTimeTrend(base float64) []models.ResponseTimePoint {
	now := a.now()
	points := make([]models.ResponseTimePoint, 0, trendPoints)
	for i := 0; i < trendPoints; i++ {
		rt := base + (a.jitter()-0.5)*trendResponseJitter
		if rt < 0 {
			rt = 0
		}
		points = append(points, models.ResponseTimePoint{
			Timestamp:      now.Add(-time.Duration(trendPoints-1-i) * time.Hour),
			ResponseTimeMs: rt,
		})
	}
	return points
}
