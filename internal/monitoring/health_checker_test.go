package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-monitoring/pkg/config"
	"studio-monitoring/pkg/models"
	"studio-monitoring/pkg/telemetry"
)

type fakeRecorder struct {
	mu        sync.Mutex
	checks    []models.HealthCheck
	insertErr error
}

func (f *fakeRecorder) Insert(ctx context.Context, check *models.HealthCheck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.checks = append(f.checks, *check)
	return nil
}

func (f *fakeRecorder) byName(name string) *models.HealthCheck {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.checks {
		if f.checks[i].CheckName == name {
			return &f.checks[i]
		}
	}
	return nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

type fakeSink struct {
	mu         sync.Mutex
	exceptions []error
	messages   []string
	levels     []telemetry.Severity
}

func (f *fakeSink) CaptureException(err error, context map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exceptions = append(f.exceptions, err)
}

func (f *fakeSink) CaptureMessage(message string, level telemetry.Severity, context map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	f.levels = append(f.levels, level)
}

type fakeStatusCache struct {
	mu     sync.Mutex
	key    string
	values []interface{}
}

func (f *fakeStatusCache) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
	f.values = values
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func newTestChecker(recorder *fakeRecorder, pinger *fakePinger, sink *fakeSink, apiURL string, integrations []config.Integration) *HealthChecker {
	cfg := &config.Config{
		CoreAPIURL:   apiURL,
		Integrations: integrations,
		ProbeTimeout: 2 * time.Second,
	}
	hc := NewHealthChecker(recorder, pinger, sink, cfg)
	hc.SetJobsCheck(func(ctx context.Context) error { return nil })
	return hc
}

func TestRunCycle_AllHealthy(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer external.Close()

	recorder := &fakeRecorder{}
	sink := &fakeSink{}
	hc := newTestChecker(recorder, &fakePinger{}, sink, api.URL,
		[]config.Integration{{Name: "github", URL: external.URL}})

	err := hc.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, recorder.checks, 4)
	for _, name := range []string{"database_connection", "api_health", "background_jobs", "github_health"} {
		check := recorder.byName(name)
		require.NotNil(t, check, "missing check %s", name)
		assert.Equal(t, models.CheckStatusPass, check.Status)
		assert.Equal(t, models.TenantSystem, check.TenantID)
	}
	assert.Empty(t, sink.messages)
}

func TestRunCycle_FailedProbeDoesNotSuppressSiblings(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer api.Close()

	recorder := &fakeRecorder{}
	sink := &fakeSink{}
	hc := newTestChecker(recorder, &fakePinger{}, sink, api.URL, nil)

	err := hc.RunCycle(context.Background())
	require.NoError(t, err)

	apiCheck := recorder.byName("api_health")
	require.NotNil(t, apiCheck)
	assert.Equal(t, models.CheckStatusFail, apiCheck.Status)
	require.NotNil(t, apiCheck.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, *apiCheck.StatusCode)
	require.NotNil(t, apiCheck.ErrorMessage)

	// the storage and jobs probes still ran and passed
	assert.Equal(t, models.CheckStatusPass, recorder.byName("database_connection").Status)
	assert.Equal(t, models.CheckStatusPass, recorder.byName("background_jobs").Status)

	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "api_health")
	assert.Equal(t, telemetry.SeverityError, sink.levels[0])
}

func TestRunCycle_TimeoutClassification(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	recorder := &fakeRecorder{}
	sink := &fakeSink{}
	cfg := &config.Config{
		CoreAPIURL:   slow.URL,
		ProbeTimeout: 50 * time.Millisecond,
	}
	hc := NewHealthChecker(recorder, &fakePinger{}, sink, cfg)
	hc.SetJobsCheck(func(ctx context.Context) error { return nil })

	err := hc.RunCycle(context.Background())
	require.NoError(t, err)

	apiCheck := recorder.byName("api_health")
	require.NotNil(t, apiCheck)
	assert.Equal(t, models.CheckStatusTimeout, apiCheck.Status)
}

func TestRunCycle_StorageFailure(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	recorder := &fakeRecorder{}
	sink := &fakeSink{}
	hc := newTestChecker(recorder, &fakePinger{err: errors.New("connection refused")}, sink, api.URL, nil)

	err := hc.RunCycle(context.Background())
	require.NoError(t, err)

	dbCheck := recorder.byName("database_connection")
	require.NotNil(t, dbCheck)
	assert.Equal(t, models.CheckStatusFail, dbCheck.Status)
	require.NotNil(t, dbCheck.ErrorMessage)
	assert.Contains(t, *dbCheck.ErrorMessage, "connection refused")
}

func TestRunCycle_DegradedJobsProduceWarning(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	recorder := &fakeRecorder{}
	sink := &fakeSink{}
	hc := newTestChecker(recorder, &fakePinger{}, sink, api.URL, nil)
	hc.SetJobsCheck(func(ctx context.Context) error {
		return ErrJobsDegraded
	})

	err := hc.RunCycle(context.Background())
	require.NoError(t, err)

	jobs := recorder.byName("background_jobs")
	require.NotNil(t, jobs)
	assert.Equal(t, models.CheckStatusWarning, jobs.Status)

	// warnings do not escalate to telemetry
	assert.Empty(t, sink.messages)
}

func TestRunCycle_PersistFailureAggregated(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	recorder := &fakeRecorder{insertErr: errors.New("disk full")}
	sink := &fakeSink{}
	hc := newTestChecker(recorder, &fakePinger{}, sink, api.URL, nil)

	err := hc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotEmpty(t, sink.exceptions)
}

func TestRunCycle_MirrorsServiceStatuses(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	recorder := &fakeRecorder{}
	cache := &fakeStatusCache{}
	hc := newTestChecker(recorder, &fakePinger{}, &fakeSink{}, api.URL, nil)
	hc.SetStatusCache(cache)

	err := hc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "health:system:services", cache.key)
	// three probes plus the timestamp field
	require.Len(t, cache.values, 8)

	statuses := map[string]string{}
	for i := 0; i+1 < len(cache.values)-2; i += 2 {
		statuses[cache.values[i].(string)] = cache.values[i+1].(string)
	}
	assert.Equal(t, models.CheckStatusPass, statuses["postgres"])
	assert.Equal(t, models.CheckStatusPass, statuses["api"])
	assert.Equal(t, models.CheckStatusPass, statuses["worker_pool"])
	assert.Equal(t, "timestamp", cache.values[6])
}

func TestClassifyProbeError(t *testing.T) {
	assert.Equal(t, models.CheckStatusTimeout, classifyProbeError(context.DeadlineExceeded))
	assert.Equal(t, models.CheckStatusFail, classifyProbeError(errors.New("connection refused")))
}
