package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-monitoring/pkg/models"
)

func incidentRows(t *testing.T, id, status string, resolvedAt interface{}) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "title", "description", "severity", "status",
		"affected_services", "affected_users", "business_impact", "started_at",
		"resolved_at", "acknowledged_at", "acknowledged_by", "root_cause",
		"resolution_notes", "resolution_steps", "tags", "metadata",
		"created_at", "updated_at",
	}).AddRow(id, "tenant-1", "API outage", nil, "high", status,
		[]byte(`["api"]`), 0, nil, now, resolvedAt, nil, nil, nil, nil,
		[]byte(`[]`), []byte(`[]`), []byte(`{}`), now, now)
}

func TestIncidentInsert_DefaultsStatusToOpen(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO incidents`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("inc-1", now, now))

	incident := &models.Incident{
		TenantID: "tenant-1",
		Title:    "API outage",
		Severity: models.SeverityHigh,
	}

	err := st.Incidents.Insert(context.Background(), incident)
	require.NoError(t, err)

	assert.Equal(t, "inc-1", incident.ID)
	assert.Equal(t, models.IncidentStatusOpen, incident.Status)
	assert.False(t, incident.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentUpdate_ResolvingStampsResolvedAt(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	resolved := time.Now()
	// the resolved_at stamp must come from the store, preserving an existing
	// value via COALESCE
	mock.ExpectQuery(`UPDATE incidents SET status = \$1, resolved_at = COALESCE\(resolved_at, NOW\(\)\), updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(models.IncidentStatusResolved, "inc-1").
		WillReturnRows(incidentRows(t, "inc-1", models.IncidentStatusResolved, resolved))

	status := models.IncidentStatusResolved
	incident, err := st.Incidents.Update(context.Background(), "inc-1", IncidentPatch{Status: &status})
	require.NoError(t, err)
	require.NotNil(t, incident)

	assert.Equal(t, models.IncidentStatusResolved, incident.Status)
	require.NotNil(t, incident.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentUpdate_ExplicitResolvedAtPassedThrough(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	resolved := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`UPDATE incidents SET status = \$1, resolved_at = \$2, updated_at = NOW\(\) WHERE id = \$3`).
		WithArgs(models.IncidentStatusResolved, resolved, "inc-1").
		WillReturnRows(incidentRows(t, "inc-1", models.IncidentStatusResolved, resolved))

	status := models.IncidentStatusResolved
	incident, err := st.Incidents.Update(context.Background(), "inc-1", IncidentPatch{
		Status:     &status,
		ResolvedAt: &resolved,
	})
	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentUpdate_NotFound(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE incidents`).
		WillReturnError(sql.ErrNoRows)

	title := "renamed"
	incident, err := st.Incidents.Update(context.Background(), "missing", IncidentPatch{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, incident)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentUpdate_EmptyPatchReadsCurrentRow(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM incidents WHERE id = \$1`).
		WithArgs("inc-1").
		WillReturnRows(incidentRows(t, "inc-1", models.IncidentStatusOpen, nil))

	incident, err := st.Incidents.Update(context.Background(), "inc-1", IncidentPatch{})
	require.NoError(t, err)
	require.NotNil(t, incident)
	assert.Equal(t, models.IncidentStatusOpen, incident.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentActive_FiltersByStatus(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM incidents WHERE tenant_id = \$1 AND status IN \('open', 'investigating'\)`).
		WithArgs("tenant-1").
		WillReturnRows(incidentRows(t, "inc-1", models.IncidentStatusOpen, nil))

	incidents, err := st.Incidents.Active(context.Background(), "tenant-1")
	require.NoError(t, err)

	require.Len(t, incidents, 1)
	assert.Equal(t, []string{"api"}, incidents[0].AffectedServices)
	assert.NoError(t, mock.ExpectationsWereMet())
}
