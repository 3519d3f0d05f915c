package jobs

import (
	"context"
	"time"

	"rentai-booking-backend/internal/config"
	"rentai-booking-backend/internal/events"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store     repository.Store
	publisher events.Publisher
	config    *config.Config
	now       func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, publisher events.Publisher, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:     store,
		publisher: publisher,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Debug("Starting job", "job", jobName)
	start := time.Now()
	if err := jobFunc(context.Background()); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "elapsed", time.Since(start))
		return
	}
	logger.Debug("Job completed", "job", jobName, "elapsed", time.Since(start))
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.RelayOutboxEvents()
	jr.ReportStaleReservations()
}
