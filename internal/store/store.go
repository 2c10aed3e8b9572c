// Package store is the record-store access layer: row-level CRUD against the
// five monitoring collections, tenant-scoped and timestamp-ordered. It holds
// no state beyond the connection; every read is a fresh fetch.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"studio-monitoring/pkg/models"
)

// Store bundles the per-collection repositories over one connection pool.
type Store struct {
	SystemHealth *SystemHealthRepository
	HealthChecks *HealthCheckRepository
	Incidents    *IncidentRepository
	Alerts       *AlertRepository
	Metrics      *MetricRepository

	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{
		SystemHealth: NewSystemHealthRepository(db),
		HealthChecks: NewHealthCheckRepository(db),
		Incidents:    NewIncidentRepository(db),
		Alerts:       NewAlertRepository(db),
		Metrics:      NewMetricRepository(db),
		db:           db,
	}
}

// Ping is a trivial bounded read used by the storage reachability probe. An
// empty table is a healthy outcome.
func (s *Store) Ping(ctx context.Context) error {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM system_health LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// LatestSystemHealth returns the current snapshot for a tenant, nil if the
// tenant has none yet.
func (s *Store) LatestSystemHealth(ctx context.Context, tenantID string) (*models.SystemHealth, error) {
	return s.SystemHealth.Latest(ctx, tenantID)
}

// RecentHealthChecks returns up to limit probe rows, newest first.
func (s *Store) RecentHealthChecks(ctx context.Context, tenantID string, limit int) ([]models.HealthCheck, error) {
	return s.HealthChecks.Recent(ctx, tenantID, limit)
}

// ActiveIncidents returns open and investigating incidents, newest first.
func (s *Store) ActiveIncidents(ctx context.Context, tenantID string) ([]models.Incident, error) {
	return s.Incidents.Active(ctx, tenantID)
}

// TriggeredAlerts returns enabled alerts currently in the triggered state.
func (s *Store) TriggeredAlerts(ctx context.Context, tenantID string) ([]models.Alert, error) {
	return s.Alerts.Triggered(ctx, tenantID)
}

// MetricsSince returns metric rows sampled at or after since, newest first.
func (s *Store) MetricsSince(ctx context.Context, tenantID string, since time.Time) ([]models.PerformanceMetric, error) {
	return s.Metrics.Since(ctx, tenantID, since, "")
}

// marshalMap encodes a metadata/dimensions map for a jsonb column. A nil map
// is stored as an empty object, never SQL NULL.
func marshalMap(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		m = map[string]interface{}{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb map: %w", err)
	}
	return data, nil
}

// marshalStrings encodes a string list for a jsonb column.
func marshalStrings(s []string) ([]byte, error) {
	if s == nil {
		s = []string{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb list: %w", err)
	}
	return data, nil
}

func unmarshalMap(raw []byte) map[string]interface{} {
	m := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &m)
	}
	return m
}

func unmarshalStrings(raw []byte) []string {
	s := []string{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}
