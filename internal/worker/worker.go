package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studio-monitoring/internal/monitoring"
	"studio-monitoring/pkg/config"
	"studio-monitoring/pkg/logger"
)

// WorkerPool drives the periodic monitoring cycles: probes, metric sampling,
// and archival. Each loop runs once immediately on start so a fresh process
// has data before its first tick.
type WorkerPool struct {
	config       *config.Config
	orchestrator *monitoring.Orchestrator
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup

	mu             sync.Mutex
	started        bool
	lastHealthRun  time.Time
	lastMetricsRun time.Time
}

func NewWorkerPool(cfg *config.Config, orch *monitoring.Orchestrator) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		config:       cfg,
		orchestrator: orch,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (wp *WorkerPool) Start() {
	logger.Info("Starting worker pool")

	wp.mu.Lock()
	wp.started = true
	wp.mu.Unlock()

	wp.wg.Add(1)
	go wp.healthChecker()

	wp.wg.Add(1)
	go wp.metricsCollector()

	wp.wg.Add(1)
	go wp.archivalWorker()
}

func (wp *WorkerPool) Stop() {
	logger.Info("Stopping worker pool...")
	wp.cancel()
	wp.wg.Wait()
	logger.Info("Worker pool stopped")
}

// HealthCheck is the background-jobs self-check wired into the probe
// battery. It reports degraded when a loop has missed its schedule by more
// than one full interval, and fails when the pool never started.
func (wp *WorkerPool) HealthCheck(ctx context.Context) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	now := time.Now()
	if !wp.lastHealthRun.IsZero() && now.Sub(wp.lastHealthRun) > 2*wp.config.HealthCheckInterval {
		return fmt.Errorf("%w: health check loop behind schedule by %v",
			monitoring.ErrJobsDegraded, now.Sub(wp.lastHealthRun)-wp.config.HealthCheckInterval)
	}
	if !wp.lastMetricsRun.IsZero() && now.Sub(wp.lastMetricsRun) > 2*wp.config.MetricsInterval {
		return fmt.Errorf("%w: metrics loop behind schedule by %v",
			monitoring.ErrJobsDegraded, now.Sub(wp.lastMetricsRun)-wp.config.MetricsInterval)
	}

	return nil
}

func (wp *WorkerPool) healthChecker() {
	defer wp.wg.Done()

	logger.Info("Health checker started")

	ticker := time.NewTicker(wp.config.HealthCheckInterval)
	defer ticker.Stop()

	wp.runHealthChecks()

	for {
		select {
		case <-wp.ctx.Done():
			logger.Info("Health checker stopped")
			return
		case <-ticker.C:
			wp.runHealthChecks()
		}
	}
}

func (wp *WorkerPool) runHealthChecks() {
	wp.mu.Lock()
	wp.lastHealthRun = time.Now()
	wp.mu.Unlock()

	ctx, cancel := context.WithTimeout(wp.ctx, 60*time.Second)
	defer cancel()
	if err := wp.orchestrator.RunHealthChecks(ctx); err != nil {
		logger.Error("Health checks failed", logger.Err(err))
	}
}

func (wp *WorkerPool) metricsCollector() {
	defer wp.wg.Done()

	logger.Info("Metrics collector started")

	ticker := time.NewTicker(wp.config.MetricsInterval)
	defer ticker.Stop()

	wp.runMetricsCollection()

	for {
		select {
		case <-wp.ctx.Done():
			logger.Info("Metrics collector stopped")
			return
		case <-ticker.C:
			wp.runMetricsCollection()
		}
	}
}

func (wp *WorkerPool) runMetricsCollection() {
	wp.mu.Lock()
	wp.lastMetricsRun = time.Now()
	wp.mu.Unlock()

	ctx, cancel := context.WithTimeout(wp.ctx, 30*time.Second)
	defer cancel()
	if err := wp.orchestrator.RunMetricsCollection(ctx); err != nil {
		logger.Error("Metrics collection failed", logger.Err(err))
	}
}

func (wp *WorkerPool) archivalWorker() {
	defer wp.wg.Done()

	logger.Info("Archival worker started")

	ticker := time.NewTicker(wp.config.ArchiveInterval)
	defer ticker.Stop()

	wp.runArchival()

	for {
		select {
		case <-wp.ctx.Done():
			logger.Info("Archival worker stopped")
			return
		case <-ticker.C:
			wp.runArchival()
		}
	}
}

func (wp *WorkerPool) runArchival() {
	ctx, cancel := context.WithTimeout(wp.ctx, 5*time.Minute)
	defer cancel()
	if err := wp.orchestrator.RunArchival(ctx); err != nil {
		logger.Error("Archival failed", logger.Err(err))
	}
}
