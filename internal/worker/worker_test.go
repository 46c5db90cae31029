package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/storefront/internal/postgres/postgrestest"
	"github.com/dukerupert/storefront/internal/repository"
	"github.com/dukerupert/storefront/internal/telemetry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enqueue(t *testing.T, store *postgrestest.MemStore, jobType string, maxRetries int32) {
	t.Helper()
	_, err := store.EnqueueJob(context.Background(), repository.EnqueueJobParams{
		JobType:        jobType,
		Payload:        []byte(`{}`),
		MaxRetries:     maxRetries,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
}

func TestRunOnce_Completes(t *testing.T) {
	store := postgrestest.NewMemStore()
	enqueue(t, store, "event:order_settled", 3)

	var seen string
	w := NewWorker(store, func(ctx context.Context, job *repository.Job) error {
		seen = job.JobType
		return nil
	}, Config{WorkerID: "w1"}, nil, discardLogger())

	assert.True(t, w.RunOnce(context.Background()))
	assert.Equal(t, "event:order_settled", seen)
	assert.Equal(t, "completed", store.Jobs()[0].Status)

	assert.False(t, w.RunOnce(context.Background()), "queue should be empty")
}

func TestRunOnce_FailureIsRecorded(t *testing.T) {
	store := postgrestest.NewMemStore()
	enqueue(t, store, "email:order_receipt", 1)

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewBusinessMetrics("test", reg)

	w := NewWorker(store, func(ctx context.Context, job *repository.Job) error {
		return errors.New("smtp unavailable")
	}, Config{WorkerID: "w1"}, metrics, discardLogger())

	require.True(t, w.RunOnce(context.Background()))

	job := store.Jobs()[0]
	assert.Equal(t, "failed", job.Status, "max_retries=1 exhausts on first failure")
	assert.Equal(t, int32(1), job.RetryCount)
	assert.Equal(t, "smtp unavailable", job.LastError.String)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobsFailed.WithLabelValues("email:order_receipt")))
}

func TestRunOnce_PanicBecomesFailure(t *testing.T) {
	store := postgrestest.NewMemStore()
	enqueue(t, store, "email:order_receipt", 3)

	w := NewWorker(store, func(ctx context.Context, job *repository.Job) error {
		panic("nil template")
	}, Config{}, nil, discardLogger())

	require.True(t, w.RunOnce(context.Background()))

	job := store.Jobs()[0]
	assert.Equal(t, "pending", job.Status, "retries remain")
	assert.Contains(t, job.LastError.String, "job panicked")
}

func TestRunOnce_JobTimeout(t *testing.T) {
	store := postgrestest.NewMemStore()
	_, err := store.EnqueueJob(context.Background(), repository.EnqueueJobParams{
		JobType: "event:order_settled", Payload: []byte(`{}`), MaxRetries: 3, TimeoutSeconds: 1,
	})
	require.NoError(t, err)

	w := NewWorker(store, func(ctx context.Context, job *repository.Job) error {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > time.Second {
			return errors.New("expected a one second deadline")
		}
		return nil
	}, Config{}, nil, discardLogger())

	require.True(t, w.RunOnce(context.Background()))
	assert.Equal(t, "completed", store.Jobs()[0].Status)
}

func TestStart_ProcessesAndStops(t *testing.T) {
	store := postgrestest.NewMemStore()
	for i := 0; i < 4; i++ {
		enqueue(t, store, "event:order_settled", 3)
	}

	var processed atomic.Int32
	w := NewWorker(store, func(ctx context.Context, job *repository.Job) error {
		processed.Add(1)
		return nil
	}, Config{PollInterval: 5 * time.Millisecond, MaxConcurrency: 2}, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return processed.Load() == 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	for _, j := range store.Jobs() {
		assert.Equal(t, "completed", j.Status)
	}
}
