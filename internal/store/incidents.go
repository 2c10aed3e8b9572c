package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"studio-monitoring/pkg/models"
)

// IncidentRepository manages tracked service-disruption events. Incidents are
// never hard-deleted; closed is the terminal status.
type IncidentRepository struct {
	db *sql.DB
}

func NewIncidentRepository(db *sql.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// IncidentPatch carries the mutable incident fields; nil fields are left
// untouched by Update.
type IncidentPatch struct {
	Title            *string
	Description      *string
	Severity         *string
	Status           *string
	AffectedServices []string
	AffectedUsers    *int
	BusinessImpact   *string
	ResolvedAt       *time.Time
	AcknowledgedAt   *time.Time
	AcknowledgedBy   *string
	RootCause        *string
	ResolutionNotes  *string
	ResolutionSteps  []string
	Tags             []string
	Metadata         map[string]interface{}
}

const incidentColumns = `
	id, tenant_id, title, description, severity, status, affected_services,
	affected_users, business_impact, started_at, resolved_at, acknowledged_at,
	acknowledged_by, root_cause, resolution_notes, resolution_steps, tags,
	metadata, created_at, updated_at
`

// Insert creates an incident. Status defaults to open and started_at to now
// when unset.
func (r *IncidentRepository) Insert(ctx context.Context, incident *models.Incident) error {
	if incident.Status == "" {
		incident.Status = models.IncidentStatusOpen
	}
	if incident.StartedAt.IsZero() {
		incident.StartedAt = time.Now().UTC()
	}

	affectedServices, err := marshalStrings(incident.AffectedServices)
	if err != nil {
		return err
	}
	resolutionSteps, err := marshalStrings(incident.ResolutionSteps)
	if err != nil {
		return err
	}
	tags, err := marshalStrings(incident.Tags)
	if err != nil {
		return err
	}
	metadata, err := marshalMap(incident.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO incidents (
			tenant_id, title, description, severity, status, affected_services,
			affected_users, business_impact, started_at, root_cause,
			resolution_notes, resolution_steps, tags, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		incident.TenantID,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.Status,
		affectedServices,
		incident.AffectedUsers,
		incident.BusinessImpact,
		incident.StartedAt,
		incident.RootCause,
		incident.ResolutionNotes,
		resolutionSteps,
		tags,
		metadata,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}

	return nil
}

// Update applies a partial patch. A status transition to resolved or closed
// stamps resolved_at when the patch does not carry one, preserving an
// existing resolution time.
func (r *IncidentRepository) Update(ctx context.Context, id string, patch IncidentPatch) (*models.Incident, error) {
	sets := make([]string, 0, 16)
	args := make([]interface{}, 0, 16)

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		addSet("title", *patch.Title)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.Severity != nil {
		addSet("severity", *patch.Severity)
	}
	if patch.Status != nil {
		addSet("status", *patch.Status)
		resolving := *patch.Status == models.IncidentStatusResolved || *patch.Status == models.IncidentStatusClosed
		if resolving && patch.ResolvedAt == nil {
			sets = append(sets, "resolved_at = COALESCE(resolved_at, NOW())")
		}
	}
	if patch.AffectedServices != nil {
		encoded, err := marshalStrings(patch.AffectedServices)
		if err != nil {
			return nil, err
		}
		addSet("affected_services", encoded)
	}
	if patch.AffectedUsers != nil {
		addSet("affected_users", *patch.AffectedUsers)
	}
	if patch.BusinessImpact != nil {
		addSet("business_impact", *patch.BusinessImpact)
	}
	if patch.ResolvedAt != nil {
		addSet("resolved_at", *patch.ResolvedAt)
	}
	if patch.AcknowledgedAt != nil {
		addSet("acknowledged_at", *patch.AcknowledgedAt)
	}
	if patch.AcknowledgedBy != nil {
		addSet("acknowledged_by", *patch.AcknowledgedBy)
	}
	if patch.RootCause != nil {
		addSet("root_cause", *patch.RootCause)
	}
	if patch.ResolutionNotes != nil {
		addSet("resolution_notes", *patch.ResolutionNotes)
	}
	if patch.ResolutionSteps != nil {
		encoded, err := marshalStrings(patch.ResolutionSteps)
		if err != nil {
			return nil, err
		}
		addSet("resolution_steps", encoded)
	}
	if patch.Tags != nil {
		encoded, err := marshalStrings(patch.Tags)
		if err != nil {
			return nil, err
		}
		addSet("tags", encoded)
	}
	if patch.Metadata != nil {
		encoded, err := marshalMap(patch.Metadata)
		if err != nil {
			return nil, err
		}
		addSet("metadata", encoded)
	}

	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE incidents
		SET %s
		WHERE id = $%d
		RETURNING `+incidentColumns,
		strings.Join(sets, ", "), len(args),
	)

	row := r.db.QueryRowContext(ctx, query, args...)
	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update incident: %w", err)
	}

	return incident, nil
}

// Get returns one incident by id, nil when it does not exist.
func (r *IncidentRepository) Get(ctx context.Context, id string) (*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	incident, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query incident: %w", err)
	}

	return incident, nil
}

// Active returns open and investigating incidents for a tenant, newest first.
func (r *IncidentRepository) Active(ctx context.Context, tenantID string) ([]models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE tenant_id = $1 AND status IN ('open', 'investigating')
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active incidents: %w", err)
	}
	defer rows.Close()

	return scanIncidents(rows)
}

// Recent returns the most recent incidents for a tenant regardless of status.
func (r *IncidentRepository) Recent(ctx context.Context, tenantID string, limit int) ([]models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	return scanIncidents(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	var i models.Incident
	var affectedServices, resolutionSteps, tags, metadata []byte

	err := row.Scan(
		&i.ID,
		&i.TenantID,
		&i.Title,
		&i.Description,
		&i.Severity,
		&i.Status,
		&affectedServices,
		&i.AffectedUsers,
		&i.BusinessImpact,
		&i.StartedAt,
		&i.ResolvedAt,
		&i.AcknowledgedAt,
		&i.AcknowledgedBy,
		&i.RootCause,
		&i.ResolutionNotes,
		&resolutionSteps,
		&tags,
		&metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.AffectedServices = unmarshalStrings(affectedServices)
	i.ResolutionSteps = unmarshalStrings(resolutionSteps)
	i.Tags = unmarshalStrings(tags)
	i.Metadata = unmarshalMap(metadata)

	return &i, nil
}

func scanIncidents(rows *sql.Rows) ([]models.Incident, error) {
	var incidents []models.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, *incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incident rows: %w", err)
	}

	return incidents, nil
}
