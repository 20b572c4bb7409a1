// Package dashboard reports on the follow-up job queue: counts by status and
// type, plus the jobs that finished recently.
package dashboard

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/nadmax/teamplan/internal/httputil"
	"github.com/nadmax/teamplan/internal/queue"
)

const RecentWindow = 24 * time.Hour

type JobSource interface {
	GetAllJobs(ctx context.Context) ([]*queue.Job, error)
	Pending(ctx context.Context) (int64, error)
}

type Dashboard struct {
	jobs JobSource
	now  func() time.Time
}

type Stats struct {
	TotalJobs       int            `json:"total_jobs"`
	QueuedJobs      int64          `json:"queued_jobs"`
	PendingJobs     int            `json:"pending_jobs"`
	RunningJobs     int            `json:"running_jobs"`
	CompletedJobs   int            `json:"completed_jobs"`
	FailedJobs      int            `json:"failed_jobs"`
	DeadLetterJobs  int            `json:"dead_letter_jobs"`
	JobsByType      map[string]int `json:"jobs_by_type"`
	AverageWaitTime string         `json:"average_wait_time"`
	LastUpdated     time.Time      `json:"last_updated"`
}

type JobHistory struct {
	JobID       string          `json:"job_id"`
	Type        string          `json:"type"`
	Status      queue.JobStatus `json:"status"`
	RetryCount  int             `json:"retry_count"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at"`
	Duration    string          `json:"duration"`
}

func NewDashboard(jobs JobSource) *Dashboard {
	return &Dashboard{jobs: jobs, now: time.Now}
}

func (d *Dashboard) Stats(ctx context.Context) (Stats, error) {
	jobs, err := d.jobs.GetAllJobs(ctx)
	if err != nil {
		return Stats{}, err
	}

	queued, err := d.jobs.Pending(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalJobs:   len(jobs),
		QueuedJobs:  queued,
		JobsByType:  make(map[string]int),
		LastUpdated: d.now(),
	}

	var totalWait time.Duration
	waitCount := 0

	for _, job := range jobs {
		switch job.Status {
		case queue.StatusPending:
			stats.PendingJobs++
		case queue.StatusRunning:
			stats.RunningJobs++
		case queue.StatusCompleted:
			stats.CompletedJobs++
		case queue.StatusFailed:
			stats.FailedJobs++
		case queue.StatusDeadLetter:
			stats.DeadLetterJobs++
		}

		stats.JobsByType[job.Type]++

		if job.StartedAt != nil {
			totalWait += job.StartedAt.Sub(job.CreatedAt)
			waitCount++
		}
	}

	stats.AverageWaitTime = "N/A"
	if waitCount > 0 {
		stats.AverageWaitTime = (totalWait / time.Duration(waitCount)).Round(time.Millisecond).String()
	}

	return stats, nil
}

// Recent returns jobs that finished within RecentWindow, newest first.
func (d *Dashboard) Recent(ctx context.Context) ([]JobHistory, error) {
	jobs, err := d.jobs.GetAllJobs(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := d.now().Add(-RecentWindow)
	history := []JobHistory{}

	for _, job := range jobs {
		if job.CompletedAt == nil || job.CompletedAt.Before(cutoff) {
			continue
		}

		var duration string
		if job.StartedAt != nil {
			duration = job.CompletedAt.Sub(*job.StartedAt).Round(time.Millisecond).String()
		}

		history = append(history, JobHistory{
			JobID:       job.ID,
			Type:        job.Type,
			Status:      job.Status,
			RetryCount:  job.RetryCount,
			Error:       job.Error,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
			Duration:    duration,
		})
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].CompletedAt.After(*history[j].CompletedAt)
	})

	return history, nil
}

func (d *Dashboard) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := d.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (d *Dashboard) GetRecentJobs(w http.ResponseWriter, r *http.Request) {
	history, err := d.Recent(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, history)
}
