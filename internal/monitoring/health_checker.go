package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"

	"studio-monitoring/pkg/config"
	"studio-monitoring/pkg/logger"
	"studio-monitoring/pkg/models"
	"studio-monitoring/pkg/telemetry"
)

// ErrJobsDegraded signals the background-jobs self-check found the worker
// pool running but behind schedule. It maps to a warning row, not a failure.
var ErrJobsDegraded = errors.New("background jobs degraded")

// CheckRecorder persists one probe result row.
type CheckRecorder interface {
	Insert(ctx context.Context, check *models.HealthCheck) error
}

// StoragePinger reports whether the record store is reachable.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// StatusCache mirrors the last observed status per service for real-time
// reads.
type StatusCache interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// serviceStatusKey is the Redis hash holding the last observed status per
// probed service for the system tenant.
const serviceStatusKey = "health:system:services"

// HealthChecker runs the probe battery: record-store reachability, the core
// API health endpoint, a HEAD request per configured integration, and a
// background-jobs self-check. Every probe produces a row regardless of
// outcome, and one probe failing never suppresses its siblings.
type HealthChecker struct {
	recorder     CheckRecorder
	pinger       StoragePinger
	sink         telemetry.Sink
	httpClient   *http.Client
	coreAPIURL   string
	integrations []config.Integration
	probeTimeout time.Duration

	// statusCache keeps the last observed status per service. Nil disables
	// the mirror; probe rows still land in the store.
	statusCache StatusCache

	// jobsCheck is the background-jobs self-check, wired by the orchestrator
	// to the worker pool's heartbeat. Nil means the worker pool is absent.
	jobsCheck func(ctx context.Context) error
}

func NewHealthChecker(recorder CheckRecorder, pinger StoragePinger, sink telemetry.Sink, cfg *config.Config) *HealthChecker {
	return &HealthChecker{
		recorder:     recorder,
		pinger:       pinger,
		sink:         sink,
		httpClient:   &http.Client{Timeout: cfg.ProbeTimeout},
		coreAPIURL:   cfg.CoreAPIURL,
		integrations: cfg.Integrations,
		probeTimeout: cfg.ProbeTimeout,
	}
}

// SetJobsCheck installs the background-jobs self-check. Must be called before
// the first cycle runs.
func (hc *HealthChecker) SetJobsCheck(check func(ctx context.Context) error) {
	hc.jobsCheck = check
}

// SetStatusCache installs the per-service status mirror.
func (hc *HealthChecker) SetStatusCache(cache StatusCache) {
	hc.statusCache = cache
}

type probe struct {
	run func(ctx context.Context) *models.HealthCheck
}

// RunCycle executes every probe concurrently, persists each result row, and
// escalates failed probes to telemetry. The returned error aggregates
// persistence failures only; probe failures are data, not errors.
func (hc *HealthChecker) RunCycle(ctx context.Context) error {
	probes := []probe{
		{run: hc.checkStorage},
		{run: hc.checkAPI},
		{run: hc.checkBackgroundJobs},
	}
	for _, integration := range hc.integrations {
		integration := integration
		probes = append(probes, probe{run: func(ctx context.Context) *models.HealthCheck {
			return hc.checkExternalService(ctx, integration)
		}})
	}

	results := make([]*models.HealthCheck, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, hc.probeTimeout)
			defer cancel()
			results[i] = p.run(probeCtx)
		}(i, p)
	}
	wg.Wait()

	var persistErr error
	for _, check := range results {
		if check == nil {
			continue
		}
		if err := hc.recorder.Insert(ctx, check); err != nil {
			persistErr = multierr.Append(persistErr, fmt.Errorf("failed to record %s check: %w", check.CheckName, err))
			hc.sink.CaptureException(err, map[string]interface{}{
				"check_name": check.CheckName,
				"component":  "health_checker",
			})
			continue
		}

		switch check.Status {
		case models.CheckStatusFail, models.CheckStatusTimeout:
			message := fmt.Sprintf("Health check failed: %s", check.CheckName)
			if check.ErrorMessage != nil {
				message = fmt.Sprintf("Health check failed: %s: %s", check.CheckName, *check.ErrorMessage)
			}
			hc.sink.CaptureMessage(message, telemetry.SeverityError, map[string]interface{}{
				"check_name":       check.CheckName,
				"service_name":     check.ServiceName,
				"status":           check.Status,
				"response_time_ms": check.ResponseTimeMs,
			})
			logger.Warn("health check failed",
				logger.String("check", check.CheckName),
				logger.String("status", check.Status),
				logger.Int64("response_time_ms", check.ResponseTimeMs))
		}
	}

	if err := hc.cacheStatuses(ctx, results); err != nil {
		logger.Error("failed to cache service statuses", logger.Err(err))
	}

	return persistErr
}

func (hc *HealthChecker) cacheStatuses(ctx context.Context, results []*models.HealthCheck) error {
	if hc.statusCache == nil {
		return nil
	}

	values := make([]interface{}, 0, len(results)*2+2)
	for _, check := range results {
		if check == nil {
			continue
		}
		values = append(values, check.ServiceName, check.Status)
	}
	if len(values) == 0 {
		return nil
	}
	values = append(values, "timestamp", time.Now().Unix())

	return hc.statusCache.HSet(ctx, serviceStatusKey, values...).Err()
}

func (hc *HealthChecker) checkStorage(ctx context.Context) *models.HealthCheck {
	start := time.Now()
	err := hc.pinger.Ping(ctx)
	check := hc.newCheck("database_connection", "postgres", models.CheckTypeDatabase, start)

	if err != nil {
		hc.markFailed(check, err)
		return check
	}
	check.Status = models.CheckStatusPass
	return check
}

func (hc *HealthChecker) checkAPI(ctx context.Context) *models.HealthCheck {
	endpoint := hc.coreAPIURL + "/health"
	start := time.Now()
	check := hc.newCheck("api_health", "api", models.CheckTypeAPI, start)
	check.EndpointURL = &endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		check.ResponseTimeMs = time.Since(start).Milliseconds()
		hc.markFailed(check, err)
		return check
	}

	resp, err := hc.httpClient.Do(req)
	check.ResponseTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		hc.markFailed(check, err)
		return check
	}
	defer resp.Body.Close()

	check.StatusCode = &resp.StatusCode
	if resp.StatusCode >= 400 {
		check.Status = models.CheckStatusFail
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		check.ErrorMessage = &msg
		return check
	}
	check.Status = models.CheckStatusPass
	return check
}

func (hc *HealthChecker) checkExternalService(ctx context.Context, integration config.Integration) *models.HealthCheck {
	start := time.Now()
	check := hc.newCheck(integration.Name+"_health", integration.Name, models.CheckTypeExternalService, start)
	check.EndpointURL = &integration.URL

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, integration.URL, nil)
	if err != nil {
		check.ResponseTimeMs = time.Since(start).Milliseconds()
		hc.markFailed(check, err)
		return check
	}

	resp, err := hc.httpClient.Do(req)
	check.ResponseTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		hc.markFailed(check, err)
		return check
	}
	defer resp.Body.Close()

	check.StatusCode = &resp.StatusCode
	if resp.StatusCode >= 400 {
		check.Status = models.CheckStatusFail
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		check.ErrorMessage = &msg
		return check
	}
	check.Status = models.CheckStatusPass
	return check
}

func (hc *HealthChecker) checkBackgroundJobs(ctx context.Context) *models.HealthCheck {
	start := time.Now()
	check := hc.newCheck("background_jobs", "worker_pool", models.CheckTypeBackgroundJob, start)

	if hc.jobsCheck == nil {
		check.Status = models.CheckStatusFail
		msg := "worker pool not running"
		check.ErrorMessage = &msg
		return check
	}

	err := hc.jobsCheck(ctx)
	check.ResponseTimeMs = time.Since(start).Milliseconds()
	switch {
	case err == nil:
		check.Status = models.CheckStatusPass
	case errors.Is(err, ErrJobsDegraded):
		check.Status = models.CheckStatusWarning
		msg := err.Error()
		check.ErrorMessage = &msg
	default:
		hc.markFailed(check, err)
	}
	return check
}

func (hc *HealthChecker) newCheck(name, service, checkType string, start time.Time) *models.HealthCheck {
	return &models.HealthCheck{
		TenantID:       models.TenantSystem,
		CheckName:      name,
		ServiceName:    service,
		CheckType:      checkType,
		Status:         models.CheckStatusPass,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		TimeoutMs:      hc.probeTimeout.Milliseconds(),
		Metadata:       map[string]interface{}{},
	}
}

func (hc *HealthChecker) markFailed(check *models.HealthCheck, err error) {
	check.Status = classifyProbeError(err)
	msg := err.Error()
	check.ErrorMessage = &msg
}

// classifyProbeError distinguishes timed-out probes from plain failures.
func classifyProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.CheckStatusTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.CheckStatusTimeout
	}
	return models.CheckStatusFail
}
