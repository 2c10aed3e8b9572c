package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-monitoring/pkg/models"
)

func metricRows(t *testing.T, names ...string) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "metric_name", "metric_type", "value", "unit",
		"service_name", "endpoint", "user_id", "session_id", "dimensions",
		"timestamp", "created_at",
	})
	for i, name := range names {
		rows.AddRow("m-"+name, "system", name, "gauge", float64(i), nil,
			nil, nil, nil, nil, []byte(`{"hostname":"node-1"}`), now, now)
	}
	return rows
}

func TestMetricInsert_DefaultsTimestamp(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO performance_metrics`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("m-1", now))

	metric := &models.PerformanceMetric{
		TenantID:   "system",
		MetricName: "memory_usage",
		MetricType: models.MetricTypeGauge,
		Value:      1024,
	}

	err := st.Metrics.Insert(context.Background(), metric)
	require.NoError(t, err)

	assert.Equal(t, "m-1", metric.ID)
	assert.False(t, metric.Timestamp.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricSince_WindowOnly(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	since := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`FROM performance_metrics WHERE tenant_id = \$1 AND timestamp >= \$2 ORDER BY timestamp DESC`).
		WithArgs("system", since).
		WillReturnRows(metricRows(t, "memory_usage", "goroutine_count"))

	metrics, err := st.Metrics.Since(context.Background(), "system", since, "")
	require.NoError(t, err)

	require.Len(t, metrics, 2)
	assert.Equal(t, "memory_usage", metrics[0].MetricName)
	assert.Equal(t, "node-1", metrics[0].Dimensions["hostname"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricSince_NameFilter(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	since := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`AND metric_name = \$3`).
		WithArgs("system", since, "memory_usage").
		WillReturnRows(metricRows(t, "memory_usage"))

	metrics, err := st.Metrics.Since(context.Background(), "system", since, "memory_usage")
	require.NoError(t, err)

	require.Len(t, metrics, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricDeleteBefore_ReportsCount(t *testing.T) {
	db, mock, st := setupMockDB(t)
	defer db.Close()

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectExec(`DELETE FROM performance_metrics WHERE timestamp < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	deleted, err := st.Metrics.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)

	assert.Equal(t, int64(42), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
