package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nadmax/teamplan/internal/queue"
	"github.com/nadmax/teamplan/internal/tracker"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) Send(email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}

	return &rest.Response{StatusCode: f.status}, nil
}

func notifyJob(t *testing.T, p queue.NotifyTeamPayload) *queue.Job {
	job, err := queue.NewNotifyTeamJob(p)
	require.NoError(t, err)

	return job
}

func TestNotifyTeamHandler(t *testing.T) {
	sender := &fakeSender{status: 202}
	m := NewMailer(sender, "Planner", "planner@example.com", nil)

	err := m.NotifyTeamHandler(context.Background(), notifyJob(t, queue.NotifyTeamPayload{
		TaskID:      42,
		TaskSubject: "Invoice export",
		TeamID:      1,
		TeamName:    "Core",
		TeamEmail:   " core@example.com ",
		Start:       "2024-03-01",
		End:         "2024-03-15",
		AssignedBy:  "alice",
	}))

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	email := sender.sent[0]
	assert.Equal(t, "planner@example.com", email.From.Address)
	assert.Equal(t, "Task #42 planned for Core", email.Subject)
	require.NotEmpty(t, email.Personalizations)
	assert.Equal(t, "core@example.com", email.Personalizations[0].To[0].Address)
	require.NotEmpty(t, email.Content)
	assert.Contains(t, email.Content[0].Value, "(Invoice export)")
	assert.Contains(t, email.Content[0].Value, "from 2024-03-01 to 2024-03-15")
	assert.Contains(t, email.Content[0].Value, "Assigned by alice")
}

func TestNotifyTeamHandler_NoEmail(t *testing.T) {
	sender := &fakeSender{status: 202}
	m := NewMailer(sender, "Planner", "planner@example.com", nil)

	err := m.NotifyTeamHandler(context.Background(), notifyJob(t, queue.NotifyTeamPayload{TaskID: 42, TeamID: 1}))

	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestNotifyTeamHandler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sender  *fakeSender
		payload queue.NotifyTeamPayload
		want    string
	}{
		{
			name:    "missing task id",
			sender:  &fakeSender{status: 202},
			payload: queue.NotifyTeamPayload{TeamEmail: "core@example.com"},
			want:    "missing 'task_id' field",
		},
		{
			name:    "send failure",
			sender:  &fakeSender{err: errors.New("connection reset")},
			payload: queue.NotifyTeamPayload{TaskID: 1, TeamEmail: "core@example.com"},
			want:    "failed to send email",
		},
		{
			name:    "rejected by provider",
			sender:  &fakeSender{status: 401},
			payload: queue.NotifyTeamPayload{TaskID: 1, TeamEmail: "core@example.com"},
			want:    "sendgrid error: status 401",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMailer(tt.sender, "Planner", "planner@example.com", nil)

			err := m.NotifyTeamHandler(context.Background(), notifyJob(t, tt.payload))

			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSyncTrackerDatesHandler(t *testing.T) {
	client := tracker.NewMockClient()
	client.AddIssue(tracker.Issue{ID: 42, StatusName: "New"})
	handler := SyncTrackerDatesHandler(client)

	job, err := queue.NewSyncTrackerDatesJob(queue.SyncTrackerDatesPayload{TaskID: 42, Start: "2024-03-01", End: "2024-03-15"})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), job))

	require.Len(t, client.UpdateDatesCalls, 1)
	call := client.UpdateDatesCalls[0]
	assert.Equal(t, int64(42), call.ID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), call.Start)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), call.End)
}

func TestSyncTrackerDatesHandler_Errors(t *testing.T) {
	client := tracker.NewMockClient()
	handler := SyncTrackerDatesHandler(client)

	tests := []struct {
		name    string
		payload queue.SyncTrackerDatesPayload
		want    string
	}{
		{name: "missing task id", payload: queue.SyncTrackerDatesPayload{Start: "2024-03-01", End: "2024-03-02"}, want: "missing 'task_id'"},
		{name: "bad start", payload: queue.SyncTrackerDatesPayload{TaskID: 1, Start: "03/01/2024", End: "2024-03-02"}, want: "invalid start date"},
		{name: "bad end", payload: queue.SyncTrackerDatesPayload{TaskID: 1, Start: "2024-03-01", End: ""}, want: "invalid end date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := queue.NewSyncTrackerDatesJob(tt.payload)
			require.NoError(t, err)

			assert.ErrorContains(t, handler(context.Background(), job), tt.want)
		})
	}

	client.UpdateDatesError = errors.New("tracker down")
	job, err := queue.NewSyncTrackerDatesJob(queue.SyncTrackerDatesPayload{TaskID: 1, Start: "2024-03-01", End: "2024-03-02"})
	require.NoError(t, err)
	assert.EqualError(t, handler(context.Background(), job), "tracker down")
}
