package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studio-monitoring/pkg/models"
)

// HealthCheckRepository appends and reads probe execution results. Rows are
// immutable after insert; pruning happens only through the archiver.
type HealthCheckRepository struct {
	db *sql.DB
}

func NewHealthCheckRepository(db *sql.DB) *HealthCheckRepository {
	return &HealthCheckRepository{db: db}
}

const healthCheckColumns = `
	id, tenant_id, check_name, service_name, check_type, status,
	response_time_ms, status_code, error_message, error_code, stack_trace,
	endpoint_url, expected_response, timeout_ms, metadata, created_at
`

// Insert appends one probe result row.
func (r *HealthCheckRepository) Insert(ctx context.Context, check *models.HealthCheck) error {
	metadata, err := marshalMap(check.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO health_checks (
			tenant_id, check_name, service_name, check_type, status,
			response_time_ms, status_code, error_message, error_code,
			stack_trace, endpoint_url, expected_response, timeout_ms, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		check.TenantID,
		check.CheckName,
		check.ServiceName,
		check.CheckType,
		check.Status,
		check.ResponseTimeMs,
		check.StatusCode,
		check.ErrorMessage,
		check.ErrorCode,
		check.StackTrace,
		check.EndpointURL,
		check.ExpectedResponse,
		check.TimeoutMs,
		metadata,
	).Scan(&check.ID, &check.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record health check: %w", err)
	}

	return nil
}

// Recent returns the most recent rows for a tenant, newest first.
func (r *HealthCheckRepository) Recent(ctx context.Context, tenantID string, limit int) ([]models.HealthCheck, error) {
	query := `
		SELECT ` + healthCheckColumns + `
		FROM health_checks
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query health checks: %w", err)
	}
	defer rows.Close()

	return scanHealthChecks(rows)
}

// OlderThan returns up to limit rows created before the cutoff, oldest first.
// Used by the archiver to page through aged rows.
func (r *HealthCheckRepository) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.HealthCheck, error) {
	query := `
		SELECT ` + healthCheckColumns + `
		FROM health_checks
		WHERE created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query aged health checks: %w", err)
	}
	defer rows.Close()

	return scanHealthChecks(rows)
}

// DeleteBefore prunes rows created before the cutoff and reports how many
// were removed.
func (r *HealthCheckRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM health_checks WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune health checks: %w", err)
	}
	return result.RowsAffected()
}

func scanHealthChecks(rows *sql.Rows) ([]models.HealthCheck, error) {
	var checks []models.HealthCheck
	for rows.Next() {
		var c models.HealthCheck
		var metadata []byte

		if err := rows.Scan(
			&c.ID,
			&c.TenantID,
			&c.CheckName,
			&c.ServiceName,
			&c.CheckType,
			&c.Status,
			&c.ResponseTimeMs,
			&c.StatusCode,
			&c.ErrorMessage,
			&c.ErrorCode,
			&c.StackTrace,
			&c.EndpointURL,
			&c.ExpectedResponse,
			&c.TimeoutMs,
			&metadata,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan health check row: %w", err)
		}

		c.Metadata = unmarshalMap(metadata)
		checks = append(checks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating health check rows: %w", err)
	}

	return checks, nil
}
