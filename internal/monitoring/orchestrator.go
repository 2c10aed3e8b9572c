package monitoring

import (
	"context"

	"github.com/minio/minio-go/v7"

	"studio-monitoring/internal/archive"
	"studio-monitoring/internal/metrics"
	"studio-monitoring/internal/notify"
	"studio-monitoring/internal/store"
	"studio-monitoring/pkg/config"
	"studio-monitoring/pkg/db"
	"studio-monitoring/pkg/logger"
	"studio-monitoring/pkg/telemetry"
)

// Orchestrator wires the monitoring components together and exposes the
// single-cycle entry points the worker pool drives on its tickers.
type Orchestrator struct {
	config   *config.Config
	store    *store.Store
	redis    *db.RedisClient
	notifier *notify.Notifier
	sink     telemetry.Sink

	healthChecker *HealthChecker
	assembler     *Assembler
	metricsCol    *metrics.Collector
	archiver      *archive.Archiver
}

func NewOrchestrator(cfg *config.Config, st *store.Store, redisClient *db.RedisClient, minioClient *minio.Client, notifier *notify.Notifier, sink telemetry.Sink) *Orchestrator {
	archiveStorage := db.NewArchiveStorage(minioClient)

	o := &Orchestrator{
		config:   cfg,
		store:    st,
		redis:    redisClient,
		notifier: notifier,
		sink:     sink,
	}

	o.healthChecker = NewHealthChecker(st.HealthChecks, st, sink, cfg)
	o.healthChecker.SetStatusCache(redisClient)
	o.assembler = NewAssembler(st)
	o.metricsCol = metrics.NewCollector(st.Metrics, redisClient, sink)
	o.archiver = archive.NewArchiver(st.HealthChecks, st.Metrics, archiveStorage, cfg.ArchiveRetention)

	return o
}

// GetStore returns the record store
func (o *Orchestrator) GetStore() *store.Store {
	return o.store
}

// GetRedis returns Redis client
func (o *Orchestrator) GetRedis() *db.RedisClient {
	return o.redis
}

// GetNotifier returns the event notifier
func (o *Orchestrator) GetNotifier() *notify.Notifier {
	return o.notifier
}

// GetTelemetry returns the telemetry sink
func (o *Orchestrator) GetTelemetry() telemetry.Sink {
	return o.sink
}

// GetHealthChecker returns health checker
func (o *Orchestrator) GetHealthChecker() *HealthChecker {
	return o.healthChecker
}

// GetAssembler returns the dashboard assembler
func (o *Orchestrator) GetAssembler() *Assembler {
	return o.assembler
}

// GetConfig returns config
func (o *Orchestrator) GetConfig() *config.Config {
	return o.config
}

// RunHealthChecks performs a single probe cycle
func (o *Orchestrator) RunHealthChecks(ctx context.Context) error {
	if err := o.healthChecker.RunCycle(ctx); err != nil {
		logger.Error("Error running health checks", logger.Err(err))
		return err
	}
	return nil
}

// RunMetricsCollection performs a single metrics sampling cycle
func (o *Orchestrator) RunMetricsCollection(ctx context.Context) error {
	if err := o.metricsCol.CollectCycle(ctx); err != nil {
		logger.Error("Error collecting metrics", logger.Err(err))
		return err
	}
	return nil
}

// RunArchival performs a single archival pass
func (o *Orchestrator) RunArchival(ctx context.Context) error {
	if err := o.archiver.Run(ctx); err != nil {
		logger.Error("Error archiving aged rows", logger.Err(err))
		return err
	}
	return nil
}
