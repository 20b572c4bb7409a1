package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nadmax/teamplan/internal/queue"
	"github.com/nadmax/teamplan/internal/tracker"
)

// SyncTrackerDatesHandler writes the planned dates of a committed assignment
// back to the tracker issue.
func SyncTrackerDatesHandler(client tracker.Client) func(context.Context, *queue.Job) error {
	return func(ctx context.Context, job *queue.Job) error {
		var p queue.SyncTrackerDatesPayload
		if err := job.Decode(&p); err != nil {
			return err
		}
		if p.TaskID == 0 {
			return errors.New("missing 'task_id' field")
		}

		start, err := time.Parse(tracker.DateLayout, p.Start)
		if err != nil {
			return fmt.Errorf("invalid start date %q: %w", p.Start, err)
		}

		end, err := time.Parse(tracker.DateLayout, p.End)
		if err != nil {
			return fmt.Errorf("invalid end date %q: %w", p.End, err)
		}

		return client.UpdateIssueDates(ctx, p.TaskID, start, end)
	}
}
