package assignment

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/nadmax/teamplan/internal/apperr"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

type TaskSource interface {
	Fetch(ctx context.Context, taskID int64) (*task.Task, error)
}

// Store persists a commit. CommitAssignment must apply the history entry, the
// assignment row and the extension update in one transaction and fail with
// apperr.ErrVersionConflict when the stored version differs from
// ExpectedVersion.
type Store interface {
	GetTeam(ctx context.Context, teamID int64) (*team.Team, error)
	CommitAssignment(ctx context.Context, in CommitInput) (*task.Extension, error)
}

type CommitInput struct {
	Assignment        *Assignment
	ExpectedVersion   int
	EstimationSprints *float64
	LoadFactor        *float64
	History           *task.EstimationHistoryEntry
}

type Request struct {
	TaskID            int64
	TeamID            int64
	Start             time.Time
	End               time.Time
	EstimationSprints *float64
	LoadFactor        *float64
	Actor             string
}

type Committer struct {
	tasks      TaskSource
	store      Store
	classifier *task.Classifier
	now        func() time.Time
}

func NewCommitter(tasks TaskSource, store Store, classifier *task.Classifier) *Committer {
	if classifier == nil {
		classifier = task.NewClassifier(nil)
	}

	return &Committer{
		tasks:      tasks,
		store:      store,
		classifier: classifier,
		now:        time.Now,
	}
}

// Outcome is what a successful commit wrote. History is nil when estimation
// and load factor were unchanged.
type Outcome struct {
	Task       *task.Task
	Team       *team.Team
	Assignment *Assignment
	History    *task.EstimationHistoryEntry
}

// Commit validates req and persists the assignment. Preconditions are checked
// in this order: task exists, team exists and is active, end after start,
// stage permits planning. Nothing is written unless all of them hold.
func (c *Committer) Commit(ctx context.Context, req Request) (*task.Task, error) {
	out, err := c.CommitOutcome(ctx, req)
	if err != nil {
		return nil, err
	}

	return out.Task, nil
}

func (c *Committer) CommitOutcome(ctx context.Context, req Request) (*Outcome, error) {
	const op = "commit assignment"
	taskID := strconv.FormatInt(req.TaskID, 10)

	t, err := c.tasks.Fetch(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.TaskNotFound(op, taskID)
	}

	tm, err := c.store.GetTeam(ctx, req.TeamID)
	if err != nil {
		return nil, err
	}
	if tm == nil || !tm.IsActive {
		return nil, apperr.TeamNotFound(op, strconv.FormatInt(req.TeamID, 10))
	}

	start, end := task.Day(req.Start), task.Day(req.End)
	if req.Start.IsZero() || req.End.IsZero() || !end.After(start) {
		return nil, apperr.InvalidDateRange(op, taskID)
	}

	estimation := pick(req.EstimationSprints, t.EstimationSprints)
	loadFactor := pick(req.LoadFactor, t.LoadFactor)

	stage := c.classifier.Classify(t)
	if stage == task.StageDone || estimation == nil {
		return nil, apperr.InvalidStage(op, taskID, stage.String())
	}
	if err := validateEstimation(estimation, loadFactor); err != nil {
		return nil, apperr.InvalidEstimation(op, taskID, err.Error())
	}

	a := NewAssignment(t.ID, tm.ID, start, end, req.Actor)
	history := task.NewEstimationHistoryEntry(
		t.ID, t.EstimationSprints, estimation, t.LoadFactor, loadFactor, req.Actor, c.now().UTC(),
	)
	ext, err := c.store.CommitAssignment(ctx, CommitInput{
		Assignment:        a,
		ExpectedVersion:   t.Version,
		EstimationSprints: estimation,
		LoadFactor:        loadFactor,
		History:           history,
	})
	if err != nil {
		return nil, err
	}

	updated := *t
	updated.EstimationSprints = ext.EstimationSprints
	updated.LoadFactor = ext.LoadFactor
	updated.AssignedTeamID = ext.AssignedTeamID
	updated.PlannedStart = ext.PlannedStart
	updated.PlannedEnd = ext.PlannedEnd
	updated.Version = ext.Version
	updated.UpdatedAt = ext.UpdatedAt

	return &Outcome{Task: &updated, Team: tm, Assignment: a, History: history}, nil
}

// pick prefers the supplied value, rounded to the two decimals the store
// keeps so that a resubmitted value compares equal to what was persisted.
func pick(supplied, stored *float64) *float64 {
	if supplied != nil {
		v := math.Round(*supplied*100) / 100
		return &v
	}

	return stored
}

func validateEstimation(estimation, loadFactor *float64) error {
	if estimation != nil && (*estimation < task.MinEstimationSprints || *estimation > task.MaxEstimationSprints) {
		return fmt.Errorf("estimation %.2f sprints not in [%.1f, %.1f]", *estimation, task.MinEstimationSprints, task.MaxEstimationSprints)
	}
	if loadFactor != nil && (*loadFactor <= 0 || *loadFactor > task.MaxLoadFactor) {
		return fmt.Errorf("load factor %.2f not in (0, %.1f]", *loadFactor, task.MaxLoadFactor)
	}

	return nil
}
