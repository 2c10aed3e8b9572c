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

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return db, mock, New(db)
}

func TestSystemHealthUpsert_FillsRowIdentity(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
		AddRow("sh-1", now, now)

	mock.ExpectQuery(`INSERT INTO system_health`).
		WithArgs("tenant-1", "degraded", 72.5, 10.0, 40.0, 20.0, 150.0,
			"healthy", "degraded", "healthy", "healthy", []byte(`{}`), nil).
		WillReturnRows(rows)

	health := &models.SystemHealth{
		TenantID:             "tenant-1",
		Status:               models.HealthStatusDegraded,
		OverallScore:         72.5,
		CPUUsage:             10.0,
		MemoryUsage:          40.0,
		DiskUsage:            20.0,
		ResponseTimeMs:       150.0,
		DatabaseStatus:       models.HealthStatusHealthy,
		APIStatus:            models.HealthStatusDegraded,
		IntegrationsStatus:   models.HealthStatusHealthy,
		BackgroundJobsStatus: models.HealthStatusHealthy,
	}

	err := st.SystemHealth.Upsert(context.Background(), health)
	require.NoError(t, err)

	assert.Equal(t, "sh-1", health.ID)
	assert.Equal(t, now, health.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemHealthLatest_Found(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "status", "overall_score", "cpu_usage", "memory_usage",
		"disk_usage", "response_time_ms", "database_status", "api_status",
		"integrations_status", "background_jobs_status", "metadata", "notes",
		"created_at", "updated_at",
	}).AddRow("sh-1", "tenant-1", "healthy", 98.0, 5.0, 30.0, 15.0, 90.0,
		"healthy", "healthy", "healthy", "healthy", []byte(`{"region":"eu"}`), nil, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM system_health`).
		WithArgs("tenant-1").
		WillReturnRows(rows)

	health, err := st.SystemHealth.Latest(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, health)

	assert.Equal(t, models.HealthStatusHealthy, health.Status)
	assert.Equal(t, 98.0, health.OverallScore)
	assert.Equal(t, "eu", health.Metadata["region"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemHealthLatest_NoneRecorded(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM system_health`).
		WithArgs("tenant-1").
		WillReturnError(sql.ErrNoRows)

	health, err := st.SystemHealth.Latest(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, health)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePing_EmptyTableIsHealthy(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM system_health LIMIT 1`).
		WillReturnError(sql.ErrNoRows)

	err := st.Ping(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
