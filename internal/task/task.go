// Package task defines the typed task snapshot the planning core works on.
// A snapshot merges the external tracker issue with the locally stored
// extension record; every field the classifier and the scoring engine read is
// a named field with an explicit absent state.
package task

import "time"

const (
	SprintDays = 14

	MinEstimationSprints = 0.5
	MaxEstimationSprints = 50.0
	MaxLoadFactor        = 20.0
)

type Task struct {
	ID                int64      `json:"id"`
	Subject           string     `json:"subject,omitempty"`
	StatusName        string     `json:"status_name"`
	DepartmentID      *int64     `json:"department_id,omitempty"`
	HasResponsible    bool       `json:"has_responsible"`
	HasFunctionalDoc  bool       `json:"has_functional_doc"`
	EstimationSprints *float64   `json:"estimation_sprints,omitempty"`
	LoadFactor        *float64   `json:"load_factor,omitempty"`
	AssignedTeamID    *int64     `json:"assigned_team_id,omitempty"`
	PlannedStart      *time.Time `json:"planned_start,omitempty"`
	PlannedEnd        *time.Time `json:"planned_end,omitempty"`
	Version           int        `json:"version"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Extension is the locally stored part of a task. A missing record is created
// with these defaults on first reference.
type Extension struct {
	TaskID            int64
	EstimationSprints *float64
	LoadFactor        *float64
	AssignedTeamID    *int64
	PlannedStart      *time.Time
	PlannedEnd        *time.Time
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewExtension(taskID int64) *Extension {
	now := time.Now().UTC()
	return &Extension{
		TaskID:    taskID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (t *Task) HasEstimation() bool {
	return t.EstimationSprints != nil
}

// HasPlan reports whether a team and both planned dates are set.
func (t *Task) HasPlan() bool {
	return t.AssignedTeamID != nil && t.PlannedStart != nil && t.PlannedEnd != nil
}

func (t *Task) IsAssignedTo(teamID int64) bool {
	return t.AssignedTeamID != nil && *t.AssignedTeamID == teamID
}

// Load returns the load factor, or zero when none is set.
func (t *Task) Load() float64 {
	if t.LoadFactor == nil {
		return 0
	}

	return *t.LoadFactor
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func Float(v float64) *float64 {
	return &v
}

func Int64(v int64) *int64 {
	return &v
}

func Time(v time.Time) *time.Time {
	return &v
}
