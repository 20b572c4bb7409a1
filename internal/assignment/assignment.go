// Package assignment records team+date decisions for tasks and commits them
// atomically together with the estimation history.
package assignment

import (
	"time"

	"github.com/google/uuid"
	"github.com/nadmax/teamplan/internal/task"
)

// Assignment rows are append-only. The current assignment of a task is the
// one with the latest AssignedAt.
type Assignment struct {
	ID           string    `json:"id"`
	TaskID       int64     `json:"task_id"`
	TeamID       int64     `json:"team_id"`
	PlannedStart time.Time `json:"planned_start"`
	PlannedEnd   time.Time `json:"planned_end"`
	AssignedBy   string    `json:"assigned_by"`
	AssignedAt   time.Time `json:"assigned_at"`
}

func NewAssignment(taskID, teamID int64, start, end time.Time, actor string) *Assignment {
	return &Assignment{
		ID:           uuid.New().String(),
		TaskID:       taskID,
		TeamID:       teamID,
		PlannedStart: task.Day(start),
		PlannedEnd:   task.Day(end),
		AssignedBy:   actor,
		AssignedAt:   time.Now().UTC(),
	}
}

// FromTask builds the view of a task's current assignment from its planned
// fields. It returns false when the task has no complete plan.
func FromTask(t *task.Task) (Assignment, bool) {
	if t == nil || !t.HasPlan() {
		return Assignment{}, false
	}

	return Assignment{
		TaskID:       t.ID,
		TeamID:       *t.AssignedTeamID,
		PlannedStart: task.Day(*t.PlannedStart),
		PlannedEnd:   task.Day(*t.PlannedEnd),
	}, true
}

// Current picks the latest assignment per task.
func Current(rows []Assignment) map[int64]Assignment {
	out := make(map[int64]Assignment, len(rows))
	for _, a := range rows {
		prev, ok := out[a.TaskID]
		if !ok || a.AssignedAt.After(prev.AssignedAt) {
			out[a.TaskID] = a
		}
	}

	return out
}
