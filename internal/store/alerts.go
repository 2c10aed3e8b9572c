package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"studio-monitoring/pkg/models"
)

// AlertRepository manages alert definitions and their live trigger state.
// Trigger-state transitions come from an external evaluator; this layer only
// reads and writes the resulting flags.
type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// AlertPatch carries the mutable alert fields; nil fields are left untouched
// by Update.
type AlertPatch struct {
	Name                    *string
	Description             *string
	AlertType               *string
	MetricName              *string
	Operator                *string
	ThresholdValue          *float64
	EvaluationWindowMinutes *int
	Severity                *string
	IsEnabled               *bool
	CooldownMinutes         *int
	NotificationChannels    []string
	NotificationTemplate    *string
	LastTriggeredAt         *time.Time
	TriggerCount            *int
	IsTriggered             *bool
	Metadata                map[string]interface{}
}

const alertColumns = `
	id, tenant_id, name, description, alert_type, metric_name, operator,
	threshold_value, evaluation_window_minutes, severity, is_enabled,
	cooldown_minutes, notification_channels, notification_template,
	last_triggered_at, trigger_count, is_triggered, metadata,
	created_at, updated_at
`

// Insert creates an alert definition.
func (r *AlertRepository) Insert(ctx context.Context, alert *models.Alert) error {
	channels, err := marshalStrings(alert.NotificationChannels)
	if err != nil {
		return err
	}
	metadata, err := marshalMap(alert.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (
			tenant_id, name, description, alert_type, metric_name, operator,
			threshold_value, evaluation_window_minutes, severity, is_enabled,
			cooldown_minutes, notification_channels, notification_template,
			is_triggered, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		alert.TenantID,
		alert.Name,
		alert.Description,
		alert.AlertType,
		alert.MetricName,
		alert.Operator,
		alert.ThresholdValue,
		alert.EvaluationWindowMinutes,
		alert.Severity,
		alert.IsEnabled,
		alert.CooldownMinutes,
		channels,
		alert.NotificationTemplate,
		alert.IsTriggered,
		metadata,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// Update applies a partial patch and returns the updated row.
func (r *AlertRepository) Update(ctx context.Context, id string, patch AlertPatch) (*models.Alert, error) {
	sets := make([]string, 0, 16)
	args := make([]interface{}, 0, 16)

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		addSet("name", *patch.Name)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.AlertType != nil {
		addSet("alert_type", *patch.AlertType)
	}
	if patch.MetricName != nil {
		addSet("metric_name", *patch.MetricName)
	}
	if patch.Operator != nil {
		addSet("operator", *patch.Operator)
	}
	if patch.ThresholdValue != nil {
		addSet("threshold_value", *patch.ThresholdValue)
	}
	if patch.EvaluationWindowMinutes != nil {
		addSet("evaluation_window_minutes", *patch.EvaluationWindowMinutes)
	}
	if patch.Severity != nil {
		addSet("severity", *patch.Severity)
	}
	if patch.IsEnabled != nil {
		addSet("is_enabled", *patch.IsEnabled)
	}
	if patch.CooldownMinutes != nil {
		addSet("cooldown_minutes", *patch.CooldownMinutes)
	}
	if patch.NotificationChannels != nil {
		encoded, err := marshalStrings(patch.NotificationChannels)
		if err != nil {
			return nil, err
		}
		addSet("notification_channels", encoded)
	}
	if patch.NotificationTemplate != nil {
		addSet("notification_template", *patch.NotificationTemplate)
	}
	if patch.LastTriggeredAt != nil {
		addSet("last_triggered_at", *patch.LastTriggeredAt)
	}
	if patch.TriggerCount != nil {
		addSet("trigger_count", *patch.TriggerCount)
	}
	if patch.IsTriggered != nil {
		addSet("is_triggered", *patch.IsTriggered)
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
		UPDATE alerts
		SET %s
		WHERE id = $%d
		RETURNING `+alertColumns,
		strings.Join(sets, ", "), len(args),
	)

	row := r.db.QueryRowContext(ctx, query, args...)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	return alert, nil
}

// Get returns one alert by id, nil when it does not exist.
func (r *AlertRepository) Get(ctx context.Context, id string) (*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}

	return alert, nil
}

// Triggered returns the alerts surfaced as active: triggered and enabled,
// most recently triggered first.
func (r *AlertRepository) Triggered(ctx context.Context, tenantID string) ([]models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE tenant_id = $1 AND is_triggered = true AND is_enabled = true
		ORDER BY last_triggered_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggered alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// All returns every alert definition for a tenant, newest first.
func (r *AlertRepository) All(ctx context.Context, tenantID string) ([]models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var channels, metadata []byte

	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.Name,
		&a.Description,
		&a.AlertType,
		&a.MetricName,
		&a.Operator,
		&a.ThresholdValue,
		&a.EvaluationWindowMinutes,
		&a.Severity,
		&a.IsEnabled,
		&a.CooldownMinutes,
		&channels,
		&a.NotificationTemplate,
		&a.LastTriggeredAt,
		&a.TriggerCount,
		&a.IsTriggered,
		&metadata,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.NotificationChannels = unmarshalStrings(channels)
	a.Metadata = unmarshalMap(metadata)

	return &a, nil
}

func scanAlerts(rows *sql.Rows) ([]models.Alert, error) {
	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alerts = append(alerts, *alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}
