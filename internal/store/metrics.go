package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studio-monitoring/pkg/models"
)

// MetricRepository appends and reads sampled measurements. Rows are
// append-only; pruning happens only through the archiver.
type MetricRepository struct {
	db *sql.DB
}

func NewMetricRepository(db *sql.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

const metricColumns = `
	id, tenant_id, metric_name, metric_type, value, unit, service_name,
	endpoint, user_id, session_id, dimensions, timestamp, created_at
`

// Insert appends one measurement row. The sample timestamp defaults to now
// when unset.
func (r *MetricRepository) Insert(ctx context.Context, metric *models.PerformanceMetric) error {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}

	dimensions, err := marshalMap(metric.Dimensions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO performance_metrics (
			tenant_id, metric_name, metric_type, value, unit, service_name,
			endpoint, user_id, session_id, dimensions, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		metric.TenantID,
		metric.MetricName,
		metric.MetricType,
		metric.Value,
		metric.Unit,
		metric.ServiceName,
		metric.Endpoint,
		metric.UserID,
		metric.SessionID,
		dimensions,
		metric.Timestamp,
	).Scan(&metric.ID, &metric.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record performance metric: %w", err)
	}

	return nil
}

// Since returns metrics sampled at or after the given time, newest first; a
// half-open window per the append-only contract. metricName narrows the
// result when non-empty.
func (r *MetricRepository) Since(ctx context.Context, tenantID string, since time.Time, metricName string) ([]models.PerformanceMetric, error) {
	var rows *sql.Rows
	var err error

	if metricName != "" {
		query := `
			SELECT ` + metricColumns + `
			FROM performance_metrics
			WHERE tenant_id = $1 AND timestamp >= $2 AND metric_name = $3
			ORDER BY timestamp DESC
		`
		rows, err = r.db.QueryContext(ctx, query, tenantID, since, metricName)
	} else {
		query := `
			SELECT ` + metricColumns + `
			FROM performance_metrics
			WHERE tenant_id = $1 AND timestamp >= $2
			ORDER BY timestamp DESC
		`
		rows, err = r.db.QueryContext(ctx, query, tenantID, since)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query performance metrics: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

// OlderThan returns up to limit rows sampled before the cutoff, oldest first.
func (r *MetricRepository) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.PerformanceMetric, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM performance_metrics
		WHERE timestamp < $1
		ORDER BY timestamp ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query aged metrics: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

// DeleteBefore prunes rows sampled before the cutoff.
func (r *MetricRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM performance_metrics WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune performance metrics: %w", err)
	}
	return result.RowsAffected()
}

func scanMetrics(rows *sql.Rows) ([]models.PerformanceMetric, error) {
	var metrics []models.PerformanceMetric
	for rows.Next() {
		var m models.PerformanceMetric
		var dimensions []byte

		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.MetricName,
			&m.MetricType,
			&m.Value,
			&m.Unit,
			&m.ServiceName,
			&m.Endpoint,
			&m.UserID,
			&m.SessionID,
			&dimensions,
			&m.Timestamp,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}

		m.Dimensions = unmarshalMap(dimensions)
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric rows: %w", err)
	}

	return metrics, nil
}
