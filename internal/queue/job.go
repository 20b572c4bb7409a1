package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type (
	JobStatus   string
	JobPriority int
)

const (
	StatusPending    JobStatus = "pending"
	StatusRunning    JobStatus = "running"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDeadLetter JobStatus = "dead_letter"
)

const (
	PriorityLow    JobPriority = 0
	PriorityNormal JobPriority = 5
	PriorityHigh   JobPriority = 10
)

const (
	JobSyncTrackerDates = "sync_tracker_dates"
	JobNotifyTeam       = "notify_team"
)

const DefaultMaxRetries = 3

// Job is a unit of follow-up work run after a commit. Payload holds the JSON
// encoding of the type-specific payload struct.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Priority    JobPriority     `json:"priority"`
	Status      JobStatus       `json:"status"`
	MaxRetries  int             `json:"max_retries"`
	RetryCount  int             `json:"retry_count"`
	CreatedAt   time.Time       `json:"created_at"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// SyncTrackerDatesPayload asks the worker to write the planned dates back to
// the tracker issue. Dates use the tracker layout (YYYY-MM-DD).
type SyncTrackerDatesPayload struct {
	TaskID int64  `json:"task_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type NotifyTeamPayload struct {
	TaskID      int64  `json:"task_id"`
	TaskSubject string `json:"task_subject,omitempty"`
	TeamID      int64  `json:"team_id"`
	TeamName    string `json:"team_name"`
	TeamEmail   string `json:"team_email"`
	Start       string `json:"start"`
	End         string `json:"end"`
	AssignedBy  string `json:"assigned_by,omitempty"`
}

func NewJob(jobType string, payload any, priority JobPriority) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", jobType, err)
	}

	now := time.Now()
	return &Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Payload:     data,
		Priority:    priority,
		Status:      StatusPending,
		MaxRetries:  DefaultMaxRetries,
		CreatedAt:   now,
		ScheduledAt: now,
	}, nil
}

func NewSyncTrackerDatesJob(p SyncTrackerDatesPayload) (*Job, error) {
	return NewJob(JobSyncTrackerDates, p, PriorityNormal)
}

func NewNotifyTeamJob(p NotifyTeamPayload) (*Job, error) {
	return NewJob(JobNotifyTeam, p, PriorityLow)
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("job %s has no payload", j.ID)
	}

	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Type, err)
	}

	return nil
}

// RetryDelay is the linear backoff before the next attempt.
func (j *Job) RetryDelay() time.Duration {
	return time.Duration(j.RetryCount) * 10 * time.Second
}

func (j *Job) ToJSON() (string, error) {
	data, err := json.Marshal(j)
	return string(data), err
}

func JobFromJSON(data string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}

	return &job, nil
}
