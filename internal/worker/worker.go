package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/storefront/internal/repository"
	"github.com/dukerupert/storefront/internal/telemetry"
)

// Queue is the slice of the repository the worker needs.
type Queue interface {
	ClaimNextJob(ctx context.Context, workerID pgtype.Text) (repository.Job, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, arg repository.FailJobParams) (repository.Job, error)
}

// Handler processes one claimed job.
type Handler func(ctx context.Context, job *repository.Job) error

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// ShutdownTimeout bounds how long Start waits for in-flight jobs after
	// the context is cancelled. Default: 30s.
	ShutdownTimeout time.Duration
}

// Worker processes background jobs
type Worker struct {
	config  Config
	queue   Queue
	handle  Handler
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewWorker creates a new background job worker. metrics may be nil.
func NewWorker(queue Queue, handle Handler, config Config, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Worker{
		config:  config,
		queue:   queue,
		handle:  handle,
		metrics: metrics,
		logger:  logger.With("worker_id", config.WorkerID),
	}
}

// Start processes jobs until ctx is cancelled, then waits for in-flight
// jobs. Jobs run on a detached context so a shutdown does not abort a
// half-sent email; their own timeout still applies.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.config.MaxConcurrency)
	jobCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			w.wait()
			return ctx.Err()

		case <-ticker.C:
			w.drain(ctx, jobCtx, sem)
		}
	}
}

// drain claims ready jobs until the queue is empty or every slot is busy.
func (w *Worker) drain(ctx, jobCtx context.Context, sem chan struct{}) {
	for {
		select {
		case sem <- struct{}{}:
		default:
			return
		}

		job, ok := w.claim(ctx)
		if !ok {
			<-sem
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()
			w.run(jobCtx, &job)
		}()
	}
}

func (w *Worker) wait() {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("worker shutdown timed out with jobs in flight")
	}
}

// RunOnce claims and processes a single job. Reports whether one ran.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, ok := w.claim(ctx)
	if !ok {
		return false
	}
	w.run(ctx, &job)
	return true
}

func (w *Worker) claim(ctx context.Context) (repository.Job, bool) {
	job, err := w.queue.ClaimNextJob(ctx, pgtype.Text{String: w.config.WorkerID, Valid: true})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) && ctx.Err() == nil {
			w.logger.Error("failed to claim job", "error", err)
		}
		return repository.Job{}, false
	}
	return job, true
}

func (w *Worker) run(ctx context.Context, job *repository.Job) {
	log := w.logger.With("job_id", job.ID, "job_type", job.JobType, "retry_count", job.RetryCount)
	log.Info("processing job")

	start := time.Now()
	err := w.processJob(ctx, job)
	w.metrics.Job(job.JobType, time.Since(start), err)

	if err != nil {
		log.Error("job failed", "error", err)
		telemetry.CaptureError(err, map[string]any{
			"job_id":      job.ID.String(),
			"job_type":    job.JobType,
			"retry_count": job.RetryCount,
		})

		failed, ferr := w.queue.FailJob(ctx, repository.FailJobParams{
			ID:        job.ID,
			LastError: pgtype.Text{String: err.Error(), Valid: true},
		})
		if ferr != nil {
			log.Error("failed to record job failure", "error", ferr)
		} else if failed.Status == "failed" {
			log.Error("job exhausted retries", "max_retries", failed.MaxRetries)
		}
		return
	}

	if err := w.queue.CompleteJob(ctx, job.ID); err != nil {
		log.Error("failed to mark job completed", "error", err)
		return
	}
	log.Info("job completed", "duration", time.Since(start))
}

func (w *Worker) processJob(ctx context.Context, job *repository.Job) (err error) {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return w.handle(jobCtx, job)
}
