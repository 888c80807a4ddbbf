package jobs

import (
	"context"
	"fmt"
	"time"

	"locar-backend/internal/config"
	"locar-backend/internal/logger"
	"locar-backend/internal/metrics"
	"locar-backend/internal/repository"
	"locar-backend/internal/service"
)

const (
	JobInstallmentReminders = "installment_reminders"
	JobRefreshMetrics       = "refresh_metrics"

	jobTimeout = 5 * time.Minute
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    repository.Repositories
	services *Services
	metrics  *metrics.Metrics
	config   *config.Config
}

// Services holds all service dependencies needed by jobs. A nil Email
// disables reminders.
type Services struct {
	Billing service.BillingService
	Clients service.ClientService
	Email   service.EmailService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Repositories, services *Services, m *metrics.Metrics, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:    store,
		services: services,
		metrics:  m,
		config:   cfg,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and records the
// outcome. A panic counts as a failed run.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
		jr.metrics.JobRun(jobName, err)
		if err != nil {
			logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
			return
		}
		logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	}()

	logger.Info("Starting job", "job", jobName)
	return jobFunc(ctx)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() error {
	var firstErr error
	for _, run := range []func() error{jr.RefreshMetrics, jr.SendInstallmentReminders} {
		if err := run(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
