package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5115", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "postgres", cfg.PostgresHost)
	assert.Equal(t, 30*time.Second, cfg.HealthCheckInterval)
	assert.Equal(t, 60*time.Second, cfg.MetricsInterval)
	assert.Equal(t, time.Hour, cfg.ArchiveInterval)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Second, cfg.DashboardCacheTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.ArchiveRetention)
	assert.Empty(t, cfg.TelemetryIngestURL)

	require.Len(t, cfg.Integrations, 3)
	assert.Equal(t, "github", cfg.Integrations[0].Name)
	assert.Equal(t, "https://api.github.com", cfg.Integrations[0].URL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("PORT", "8099")
	os.Setenv("HEALTH_CHECK_INTERVAL", "10s")
	os.Setenv("INTEGRATION_ENDPOINTS", "stripe=https://api.stripe.com")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8099", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HealthCheckInterval)
	require.Len(t, cfg.Integrations, 1)
	assert.Equal(t, "stripe", cfg.Integrations[0].Name)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("METRICS_INTERVAL", "not-a-duration")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.MetricsInterval)
}

func TestValidate_MissingVars(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables")
	assert.Contains(t, err.Error(), "POSTGRESQL_HOST")
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestValidate_NonPositiveInterval(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)

	cfg.ProbeTimeout = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROBE_TIMEOUT")
}

func TestParseIntegrations_SkipsMalformedPairs(t *testing.T) {
	integrations := parseIntegrations("github=https://api.github.com, ,broken,=nourl,name=, vercel = https://api.vercel.com")

	require.Len(t, integrations, 2)
	assert.Equal(t, "github", integrations[0].Name)
	assert.Equal(t, "vercel", integrations[1].Name)
	assert.Equal(t, "https://api.vercel.com", integrations[1].URL)
}

func TestGetPostgresConnString(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "studio",
		PostgresPassword: "secret",
		PostgresDatabase: "studio_db",
	}

	conn := cfg.GetPostgresConnString()
	assert.Contains(t, conn, "host=localhost")
	assert.Contains(t, conn, "dbname=studio_db")
	assert.Contains(t, conn, "sslmode=disable")
}
