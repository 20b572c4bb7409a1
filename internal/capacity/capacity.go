// Package capacity computes committed load and commitment horizons for teams
// from a snapshot of tasks.
package capacity

import (
	"time"

	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

type Tracker struct {
	classifier *task.Classifier
}

func NewTracker(classifier *task.Classifier) *Tracker {
	if classifier == nil {
		classifier = task.NewClassifier(nil)
	}

	return &Tracker{classifier: classifier}
}

// Committed returns the tasks assigned to teamID whose stage is planned or in
// progress.
func (tr *Tracker) Committed(teamID int64, tasks []*task.Task) []*task.Task {
	out := make([]*task.Task, 0)
	for _, t := range tasks {
		if t == nil || !t.IsAssignedTo(teamID) {
			continue
		}
		if !tr.classifier.Classify(t).IsActive() {
			continue
		}

		out = append(out, t)
	}

	return out
}

// Load sums the load factor of the committed tasks of teamID.
func (tr *Tracker) Load(teamID int64, tasks []*task.Task) float64 {
	var load float64
	for _, t := range tr.Committed(teamID, tasks) {
		load += t.Load()
	}

	return load
}

// LatestCommitmentEnd returns the latest planned end among the committed tasks
// of teamID, or nil when the team can start immediately.
func (tr *Tracker) LatestCommitmentEnd(teamID int64, tasks []*task.Task) *time.Time {
	var latest *time.Time
	for _, t := range tr.Committed(teamID, tasks) {
		if t.PlannedEnd == nil {
			continue
		}
		end := task.Day(*t.PlannedEnd)
		if latest == nil || end.After(*latest) {
			latest = &end
		}
	}

	return latest
}

// Available is capacity minus load. A negative value means the team is
// overloaded.
func (tr *Tracker) Available(tm team.Team, tasks []*task.Task) float64 {
	return tm.Capacity - tr.Load(tm.ID, tasks)
}

type Summary struct {
	TeamID              int64      `json:"team_id"`
	TeamName            string     `json:"team_name"`
	Capacity            float64    `json:"capacity"`
	Load                float64    `json:"load"`
	Available           float64    `json:"available"`
	ActiveTasks         int        `json:"active_tasks"`
	LatestCommitmentEnd *time.Time `json:"latest_commitment_end,omitempty"`
	IsExternal          bool       `json:"is_external"`
	Overloaded          bool       `json:"overloaded"`
}

func (tr *Tracker) Summarize(tm team.Team, tasks []*task.Task) Summary {
	committed := tr.Committed(tm.ID, tasks)

	var load float64
	for _, t := range committed {
		load += t.Load()
	}

	return Summary{
		TeamID:              tm.ID,
		TeamName:            tm.Name,
		Capacity:            tm.Capacity,
		Load:                load,
		Available:           tm.Capacity - load,
		ActiveTasks:         len(committed),
		LatestCommitmentEnd: tr.LatestCommitmentEnd(tm.ID, committed),
		IsExternal:          tm.IsExternal,
		Overloaded:          load > tm.Capacity,
	}
}
