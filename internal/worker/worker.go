// Package worker runs the follow-up jobs enqueued after assignment commits.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadmax/teamplan/internal/metrics"
	"github.com/nadmax/teamplan/internal/queue"
)

const DefaultPollInterval = time.Second

type JobHandler func(ctx context.Context, job *queue.Job) error

type Worker struct {
	id           string
	queue        *queue.Queue
	handlers     map[string]JobHandler
	stop         chan struct{}
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewWorker(id string, q *queue.Queue, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		id:           id,
		queue:        q,
		handlers:     make(map[string]JobHandler),
		stop:         make(chan struct{}),
		pollInterval: DefaultPollInterval,
		logger:       logger.With("worker_id", id),
	}
}

func (w *Worker) RegisterHandler(jobType string, handler JobHandler) {
	w.handlers[jobType] = handler
}

func (w *Worker) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Start polls the queue until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", "reason", ctx.Err())
			return
		case <-w.stop:
			w.logger.Info("worker stopped")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Warn("failed to dequeue job", "err", err)
		}
		if err != nil || job == nil {
			w.sleep(ctx)
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-w.stop:
	case <-t.C:
	}
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job) {
	log := w.logger.With("job_id", job.ID, "job_type", job.Type)
	log.Info("processing job", "attempt", job.RetryCount+1)

	now := time.Now()
	job.Status = queue.StatusRunning
	job.StartedAt = &now
	if err := w.queue.UpdateJob(ctx, job); err != nil {
		log.Warn("failed to mark job running", "err", err)
	}

	handler, exists := w.handlers[job.Type]
	if !exists {
		job.Status = queue.StatusFailed
		job.Error = fmt.Sprintf("no handler for job type: %s", job.Type)
		if err := w.queue.UpdateJob(ctx, job); err != nil {
			log.Warn("failed to update job", "err", err)
		}
		metrics.RecordJob(job.Type, string(queue.StatusFailed), 0)
		log.Error("no handler registered")
		return
	}

	err := handler(ctx, job)
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	duration := completedAt.Sub(now)

	if err == nil {
		job.Status = queue.StatusCompleted
		job.Error = ""
		if err := w.queue.UpdateJob(ctx, job); err != nil {
			log.Warn("failed to update completed job", "err", err)
		}
		metrics.RecordJob(job.Type, string(queue.StatusCompleted), duration)
		log.Info("job completed", "duration", duration)
		return
	}

	job.RetryCount++
	job.Error = err.Error()
	if job.RetryCount < job.MaxRetries {
		job.Status = queue.StatusPending
		job.ScheduledAt = time.Now().Add(job.RetryDelay())
		if err := w.queue.Enqueue(ctx, job); err != nil {
			log.Error("failed to re-enqueue job", "err", err)
		}
		metrics.RecordJob(job.Type, "retry", duration)
		log.Warn("job failed, will retry", "err", err, "retry", job.RetryCount, "max_retries", job.MaxRetries)
		return
	}

	job.Status = queue.StatusDeadLetter
	if err := w.queue.UpdateJob(ctx, job); err != nil {
		log.Warn("failed to update failed job", "err", err)
	}
	metrics.RecordJob(job.Type, string(queue.StatusDeadLetter), duration)
	log.Error("job failed permanently", "err", err)
}

func (w *Worker) Stop() {
	close(w.stop)
}
