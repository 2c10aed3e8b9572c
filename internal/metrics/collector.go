// Package metrics samples process runtime metrics on a fixed cadence, stores
// each sample as a performance-metric row, and mirrors the latest values into
// Redis for cheap real-time reads.
package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"

	"studio-monitoring/pkg/logger"
	"studio-monitoring/pkg/models"
	"studio-monitoring/pkg/telemetry"
)

// latestMetricsKey is the Redis hash holding the most recent sample per
// metric name for the system tenant.
const latestMetricsKey = "metrics:system:latest"

// Recorder persists one sampled metric row.
type Recorder interface {
	Insert(ctx context.Context, metric *models.PerformanceMetric) error
}

// LatestCache mirrors the newest sample values for real-time reads.
type LatestCache interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Collector samples the Go runtime each cycle: heap allocation, goroutine
// count, GC pause time, and process uptime.
type Collector struct {
	recorder Recorder
	cache    LatestCache
	sink     telemetry.Sink

	hostname  string
	startedAt time.Time

	// lastPauseTotal tracks cumulative GC pause so each cycle reports only
	// the pause accrued since the previous one.
	lastPauseTotal time.Duration
}

func NewCollector(recorder Recorder, cache LatestCache, sink telemetry.Sink) *Collector {
	hostname, _ := os.Hostname()
	return &Collector{
		recorder:  recorder,
		cache:     cache,
		sink:      sink,
		hostname:  hostname,
		startedAt: time.Now(),
	}
}

// CollectCycle samples the runtime once and persists every sample. A failed
// insert is reported to telemetry and aggregated; it never stops the
// remaining samples from being stored.
func (c *Collector) CollectCycle(ctx context.Context) error {
	samples := c.sample()

	var collectErr error
	for i := range samples {
		metric := &samples[i]
		if err := c.recorder.Insert(ctx, metric); err != nil {
			collectErr = multierr.Append(collectErr, fmt.Errorf("failed to store metric %s: %w", metric.MetricName, err))
			c.sink.CaptureException(err, map[string]interface{}{
				"metric_name": metric.MetricName,
				"component":   "metrics_collector",
			})
		}
	}

	if err := c.cacheLatest(ctx, samples); err != nil {
		logger.Error("failed to cache latest metrics", logger.Err(err))
	}

	return collectErr
}

func (c *Collector) sample() []models.PerformanceMetric {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	pauseTotal := time.Duration(memStats.PauseTotalNs)
	pauseDelta := pauseTotal - c.lastPauseTotal
	if pauseDelta < 0 {
		pauseDelta = 0
	}
	c.lastPauseTotal = pauseTotal

	now := time.Now()
	dimensions := map[string]interface{}{
		"hostname":   c.hostname,
		"go_version": runtime.Version(),
	}

	build := func(name, metricType string, value float64, unit string) models.PerformanceMetric {
		return models.PerformanceMetric{
			TenantID:   models.TenantSystem,
			MetricName: name,
			MetricType: metricType,
			Value:      value,
			Unit:       &unit,
			Dimensions: dimensions,
			Timestamp:  now,
		}
	}

	return []models.PerformanceMetric{
		build("memory_usage", models.MetricTypeGauge, float64(memStats.HeapAlloc), "bytes"),
		build("goroutine_count", models.MetricTypeGauge, float64(runtime.NumGoroutine()), "count"),
		build("gc_pause_ms", models.MetricTypeTimer, float64(pauseDelta.Microseconds())/1000.0, "ms"),
		build("process_uptime_ms", models.MetricTypeTimer, float64(now.Sub(c.startedAt).Milliseconds()), "ms"),
	}
}

func (c *Collector) cacheLatest(ctx context.Context, samples []models.PerformanceMetric) error {
	values := make([]interface{}, 0, len(samples)*2+2)
	for i := range samples {
		values = append(values, samples[i].MetricName, samples[i].Value)
	}
	values = append(values, "timestamp", time.Now().Unix())

	return c.cache.HSet(ctx, latestMetricsKey, values...).Err()
}
