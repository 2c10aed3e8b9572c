// Package archive moves aged health-check and metric rows out of Postgres
// into object storage. Rows are exported as gzip JSON-lines objects before
// deletion, so an interrupted run can duplicate rows in storage but never
// lose them.
package archive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"studio-monitoring/pkg/logger"
	"studio-monitoring/pkg/models"
)

const batchSize = 1000

// CheckSource reads and prunes aged health-check rows.
type CheckSource interface {
	OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.HealthCheck, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MetricSource reads and prunes aged metric rows.
type MetricSource interface {
	OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.PerformanceMetric, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ObjectStore writes exported row batches to long-term storage.
type ObjectStore interface {
	StoreHealthChecks(ctx context.Context, date time.Time, checks []models.HealthCheck) error
	StoreMetrics(ctx context.Context, date time.Time, metrics []models.PerformanceMetric) error
}

// Archiver exports one batch per collection per run. A full batch deletes
// only up to the last exported row's timestamp, leaving the remainder for
// the next run.
type Archiver struct {
	checks    CheckSource
	metrics   MetricSource
	storage   ObjectStore
	retention time.Duration
}

func NewArchiver(checks CheckSource, metrics MetricSource, storage ObjectStore, retention time.Duration) *Archiver {
	return &Archiver{
		checks:    checks,
		metrics:   metrics,
		storage:   storage,
		retention: retention,
	}
}

// Run archives both collections. One collection failing does not stop the
// other.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-a.retention)
	return multierr.Combine(
		a.archiveChecks(ctx, cutoff),
		a.archiveMetrics(ctx, cutoff),
	)
}

func (a *Archiver) archiveChecks(ctx context.Context, cutoff time.Time) error {
	rows, err := a.checks.OlderThan(ctx, cutoff, batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch aged health checks: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := a.storage.StoreHealthChecks(ctx, cutoff, rows); err != nil {
		return fmt.Errorf("failed to archive health checks: %w", err)
	}

	// A full batch means more aged rows remain; delete only what was
	// exported. Rows sharing the boundary timestamp get re-exported next run.
	deleteBefore := cutoff
	if len(rows) == batchSize {
		deleteBefore = rows[len(rows)-1].CreatedAt
	}
	deleted, err := a.checks.DeleteBefore(ctx, deleteBefore)
	if err != nil {
		return fmt.Errorf("failed to prune archived health checks: %w", err)
	}

	logger.Info("archived health checks",
		logger.Int("exported", len(rows)),
		logger.Int64("deleted", deleted))
	return nil
}

func (a *Archiver) archiveMetrics(ctx context.Context, cutoff time.Time) error {
	rows, err := a.metrics.OlderThan(ctx, cutoff, batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch aged metrics: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := a.storage.StoreMetrics(ctx, cutoff, rows); err != nil {
		return fmt.Errorf("failed to archive metrics: %w", err)
	}

	deleteBefore := cutoff
	if len(rows) == batchSize {
		deleteBefore = rows[len(rows)-1].CreatedAt
	}
	deleted, err := a.metrics.DeleteBefore(ctx, deleteBefore)
	if err != nil {
		return fmt.Errorf("failed to prune archived metrics: %w", err)
	}

	logger.Info("archived metrics",
		logger.Int("exported", len(rows)),
		logger.Int64("deleted", deleted))
	return nil
}
