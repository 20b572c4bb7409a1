package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	q, err := NewQueue(mr.Addr())
	require.NoError(t, err)

	return q, mr
}

func newTestJob(t *testing.T, jobType string, priority JobPriority) *Job {
	job, err := NewJob(jobType, map[string]any{"task_id": 42}, priority)
	require.NoError(t, err)

	return job
}

func TestNewQueue_InvalidAddress(t *testing.T) {
	_, err := NewQueue("invalid:99999")
	assert.Error(t, err)
}

func TestEnqueueAndDequeue(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	original, err := NewSyncTrackerDatesJob(SyncTrackerDatesPayload{TaskID: 42, Start: "2024-03-01", End: "2024-03-15"})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, original))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, dequeued)

	assert.Equal(t, original.ID, dequeued.ID)
	assert.Equal(t, JobSyncTrackerDates, dequeued.Type)
	assert.Equal(t, StatusPending, dequeued.Status)

	var p SyncTrackerDatesPayload
	require.NoError(t, dequeued.Decode(&p))
	assert.Equal(t, int64(42), p.TaskID)
	assert.Equal(t, "2024-03-15", p.End)

	pending, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestDequeue_EmptyQueue(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	job, err := q.Dequeue(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, job)
}

func TestPriorityOrdering(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	scheduled := time.Now().Add(-time.Minute)
	for _, tc := range []struct {
		jobType  string
		priority JobPriority
	}{
		{"high", PriorityHigh},
		{"low", PriorityLow},
		{"normal", PriorityNormal},
	} {
		job := newTestJob(t, tc.jobType, tc.priority)
		job.ScheduledAt = scheduled
		require.NoError(t, q.Enqueue(ctx, job))
	}

	for _, want := range []string{"high", "normal", "low"} {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, want, job.Type)
	}
}

func TestScheduledJobs(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	future := newTestJob(t, "future", PriorityHigh)
	future.ScheduledAt = time.Now().Add(time.Hour)
	now := newTestJob(t, "now", PriorityLow)

	require.NoError(t, q.Enqueue(ctx, future))
	require.NoError(t, q.Enqueue(ctx, now))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "now", first.Type)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestUpdateAndGetJob(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	job := newTestJob(t, JobNotifyTeam, PriorityLow)
	require.NoError(t, q.Enqueue(ctx, job))

	job.Status = StatusCompleted
	require.NoError(t, q.UpdateJob(ctx, job))

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestGetJob_NotFound(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	_, err := q.GetJob(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestGetAllJobs(t *testing.T) {
	q, mr := setupTestQueue(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newTestJob(t, "a", PriorityNormal)))
	require.NoError(t, q.Enqueue(ctx, newTestJob(t, "b", PriorityNormal)))
	mr.HSet(jobsKey, "corrupt", "{not json")

	jobs, err := q.GetAllJobs(ctx)

	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestJob_Defaults(t *testing.T) {
	job, err := NewNotifyTeamJob(NotifyTeamPayload{TaskID: 1, TeamID: 2, TeamEmail: "team@example.com"})

	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobNotifyTeam, job.Type)
	assert.Equal(t, PriorityLow, job.Priority)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)
	assert.Zero(t, job.RetryCount)
	assert.Nil(t, job.StartedAt)
}

func TestJob_JSONRoundTrip(t *testing.T) {
	original := newTestJob(t, JobSyncTrackerDates, PriorityNormal)

	data, err := original.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, data, JobSyncTrackerDates)

	restored, err := JobFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, original.ID, restored.ID)
	assert.JSONEq(t, string(original.Payload), string(restored.Payload))

	_, err = JobFromJSON("invalid")
	assert.Error(t, err)
}

func TestJob_Decode(t *testing.T) {
	job := &Job{ID: "j1", Type: JobNotifyTeam}
	var p NotifyTeamPayload
	assert.ErrorContains(t, job.Decode(&p), "has no payload")

	job.Payload = []byte(`{"task_id": "not a number"}`)
	assert.ErrorContains(t, job.Decode(&p), "failed to decode notify_team payload")
}

func TestJob_RetryDelay(t *testing.T) {
	job := &Job{}
	assert.Zero(t, job.RetryDelay())

	job.RetryCount = 2
	assert.Equal(t, 20*time.Second, job.RetryDelay())
}
