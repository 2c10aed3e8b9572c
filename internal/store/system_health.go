package store

import (
	"context"
	"database/sql"
	"fmt"

	"studio-monitoring/pkg/models"
)

// SystemHealthRepository reads and upserts health snapshots. The store keeps
// at most one visible snapshot per tenant; writes replace on conflict.
type SystemHealthRepository struct {
	db *sql.DB
}

func NewSystemHealthRepository(db *sql.DB) *SystemHealthRepository {
	return &SystemHealthRepository{db: db}
}

// Upsert writes a snapshot keyed by tenant id, replacing the prior visible
// state. The row's id and timestamps are filled in from the store.
func (r *SystemHealthRepository) Upsert(ctx context.Context, health *models.SystemHealth) error {
	metadata, err := marshalMap(health.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO system_health (
			tenant_id, status, overall_score, cpu_usage, memory_usage, disk_usage,
			response_time_ms, database_status, api_status, integrations_status,
			background_jobs_status, metadata, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id) DO UPDATE SET
			status = EXCLUDED.status,
			overall_score = EXCLUDED.overall_score,
			cpu_usage = EXCLUDED.cpu_usage,
			memory_usage = EXCLUDED.memory_usage,
			disk_usage = EXCLUDED.disk_usage,
			response_time_ms = EXCLUDED.response_time_ms,
			database_status = EXCLUDED.database_status,
			api_status = EXCLUDED.api_status,
			integrations_status = EXCLUDED.integrations_status,
			background_jobs_status = EXCLUDED.background_jobs_status,
			metadata = EXCLUDED.metadata,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		health.TenantID,
		health.Status,
		health.OverallScore,
		health.CPUUsage,
		health.MemoryUsage,
		health.DiskUsage,
		health.ResponseTimeMs,
		health.DatabaseStatus,
		health.APIStatus,
		health.IntegrationsStatus,
		health.BackgroundJobsStatus,
		metadata,
		health.Notes,
	).Scan(&health.ID, &health.CreatedAt, &health.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert system health: %w", err)
	}

	return nil
}

// Latest returns the most recent snapshot for a tenant, or nil when none
// exists yet. A missing snapshot is not an error.
func (r *SystemHealthRepository) Latest(ctx context.Context, tenantID string) (*models.SystemHealth, error) {
	query := `
		SELECT id, tenant_id, status, overall_score, cpu_usage, memory_usage,
		       disk_usage, response_time_ms, database_status, api_status,
		       integrations_status, background_jobs_status, metadata, notes,
		       created_at, updated_at
		FROM system_health
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var h models.SystemHealth
	var metadata []byte

	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&h.ID,
		&h.TenantID,
		&h.Status,
		&h.OverallScore,
		&h.CPUUsage,
		&h.MemoryUsage,
		&h.DiskUsage,
		&h.ResponseTimeMs,
		&h.DatabaseStatus,
		&h.APIStatus,
		&h.IntegrationsStatus,
		&h.BackgroundJobsStatus,
		&metadata,
		&h.Notes,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query system health: %w", err)
	}

	h.Metadata = unmarshalMap(metadata)
	return &h, nil
}
