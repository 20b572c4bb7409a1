// Package planning wires the scoring, capacity, conflict and commit logic to
// the tracker, the lookup cache and the store.
//
// Every call fetches a fresh snapshot of the tasks it needs. The service keeps
// no mutable state of its own and is safe for concurrent use.
package planning

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nadmax/teamplan/internal/apperr"
	"github.com/nadmax/teamplan/internal/assignment"
	"github.com/nadmax/teamplan/internal/capacity"
	"github.com/nadmax/teamplan/internal/conflict"
	"github.com/nadmax/teamplan/internal/metrics"
	"github.com/nadmax/teamplan/internal/recommend"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

type Tasks interface {
	Fetch(ctx context.Context, taskID int64) (*task.Task, error)
	ActiveTasks(ctx context.Context) ([]*task.Task, error)
}

type Lookups interface {
	Teams(ctx context.Context) ([]team.Team, error)
	ActiveTeams(ctx context.Context) ([]team.Team, error)
	Affinities(ctx context.Context) (*team.AffinityStore, error)
	Invalidate(ctx context.Context) error
}

type Store interface {
	assignment.Store
	ListAssignments(ctx context.Context, taskID int64) ([]assignment.Assignment, error)
	ListEstimationHistory(ctx context.Context, taskID int64) ([]task.EstimationHistoryEntry, error)
}

type Service struct {
	tasks      Tasks
	lookups    Lookups
	store      Store
	classifier *task.Classifier
	capacity   *capacity.Tracker
	engine     *recommend.Engine
	committer  *assignment.Committer
}

type Option func(*options)

type options struct {
	classifier *task.Classifier
	now        func() time.Time
}

func WithClassifier(c *task.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewService(tasks Tasks, lookups Lookups, store Store, opts ...Option) *Service {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.classifier == nil {
		o.classifier = task.NewClassifier(nil)
	}

	tracker := capacity.NewTracker(o.classifier)

	return &Service{
		tasks:      tasks,
		lookups:    lookups,
		store:      store,
		classifier: o.classifier,
		capacity:   tracker,
		engine:     recommend.NewEngine(tracker, recommend.WithClock(o.now)),
		committer:  assignment.NewCommitter(tasks, store, o.classifier),
	}
}

// GetRecommendations ranks every active team for taskID. A finished task is
// not eligible. A planned or in-progress task is ranked as if it were not yet
// assigned.
func (s *Service) GetRecommendations(ctx context.Context, taskID int64) ([]recommend.TeamRecommendation, error) {
	start := time.Now()

	recs, err := s.recommend(ctx, taskID)
	if err != nil {
		metrics.RecordRecommendation(outcome(err), 0, time.Since(start))
		return nil, err
	}

	metrics.RecordRecommendation("success", len(recs), time.Since(start))
	return recs, nil
}

func (s *Service) recommend(ctx context.Context, taskID int64) ([]recommend.TeamRecommendation, error) {
	t, err := s.tasks.Fetch(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if stage := s.classifier.Classify(t); stage == task.StageDone {
		return nil, apperr.IneligibleTask("recommend", strconv.FormatInt(taskID, 10), "stage "+stage.String())
	}

	teams, err := s.lookups.ActiveTeams(ctx)
	if err != nil {
		return nil, err
	}

	affinity, err := s.lookups.Affinities(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.tasks.ActiveTasks(ctx)
	if err != nil {
		return nil, err
	}

	// A task being replanned must not count against its current team.
	return s.engine.Recommend(t, teams, affinity, withoutTask(active, t.ID))
}

func withoutTask(tasks []*task.Task, id int64) []*task.Task {
	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}

	return out
}

func (s *Service) ClassifyStage(ctx context.Context, taskID int64) (task.Stage, error) {
	t, err := s.tasks.Fetch(ctx, taskID)
	if err != nil {
		return "", err
	}

	return s.classifier.Classify(t), nil
}

type ConflictQuery struct {
	TeamID        int64
	Start         time.Time
	End           time.Time
	ExcludeTaskID *int64
}

// CheckConflicts reports overlaps between the proposed range and the current
// commitments of the team. A zero-length range is allowed; an inverted one is
// not.
func (s *Service) CheckConflicts(ctx context.Context, q ConflictQuery) (conflict.Report, error) {
	if q.Start.IsZero() || q.End.IsZero() || task.Day(q.End).Before(task.Day(q.Start)) {
		return conflict.Report{}, apperr.InvalidDateRange("check conflicts", strconv.FormatInt(q.TeamID, 10))
	}

	tm, err := s.store.GetTeam(ctx, q.TeamID)
	if err != nil {
		return conflict.Report{}, err
	}

	active, err := s.tasks.ActiveTasks(ctx)
	if err != nil {
		return conflict.Report{}, err
	}

	report := s.detect(*tm, q.Start, q.End, q.ExcludeTaskID, active)
	metrics.RecordConflictCheck(len(report.Conflicts), len(report.Warnings))

	return report, nil
}

func (s *Service) detect(tm team.Team, start, end time.Time, exclude *int64, active []*task.Task) conflict.Report {
	committed := s.capacity.Committed(tm.ID, active)

	existing := make([]assignment.Assignment, 0, len(committed))
	load := 0.0
	for _, t := range committed {
		if exclude != nil && t.ID == *exclude {
			continue
		}

		load += t.Load()
		if a, ok := assignment.FromTask(t); ok {
			existing = append(existing, a)
		}
	}

	return conflict.Detect(tm, start, end, existing, exclude, load)
}

type CommitResult struct {
	Task       *task.Task             `json:"task"`
	Team       team.Team              `json:"team"`
	Assignment *assignment.Assignment `json:"assignment"`
	Report     conflict.Report        `json:"report"`
	// EstimationChanged is true when the commit recorded a history entry.
	EstimationChanged bool `json:"estimation_changed"`
}

// CommitAssignment persists the team and dates for a task. Conflicts found
// against other tasks of the team are returned with the result but do not
// block the commit. A failure to compute them after the commit leaves the
// report empty.
func (s *Service) CommitAssignment(ctx context.Context, req assignment.Request) (*CommitResult, error) {
	out, err := s.committer.CommitOutcome(ctx, req)
	if err != nil {
		metrics.RecordCommit(outcome(err), false)
		return nil, err
	}

	changed := out.History != nil
	metrics.RecordCommit("success", changed)

	result := &CommitResult{
		Task:              out.Task,
		Team:              *out.Team,
		Assignment:        out.Assignment,
		EstimationChanged: changed,
		Report: conflict.Report{
			Conflicts: []string{},
			Warnings:  []string{},
		},
	}

	active, err := s.tasks.ActiveTasks(ctx)
	if err != nil {
		return result, nil
	}

	a := out.Assignment
	result.Report = s.detect(*out.Team, a.PlannedStart, a.PlannedEnd, &a.TaskID, active)
	metrics.RecordConflictCheck(len(result.Report.Conflicts), len(result.Report.Warnings))

	return result, nil
}

// TeamCapacity summarizes the current load of every active team.
func (s *Service) TeamCapacity(ctx context.Context) ([]capacity.Summary, error) {
	teams, err := s.lookups.ActiveTeams(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.tasks.ActiveTasks(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]capacity.Summary, 0, len(teams))
	for _, tm := range teams {
		summary := s.capacity.Summarize(tm, active)
		metrics.UpdateTeamGauges(tm.Name, summary.Load, summary.Capacity)
		out = append(out, summary)
	}

	return out, nil
}

func (s *Service) Assignments(ctx context.Context, taskID int64) ([]assignment.Assignment, error) {
	return s.store.ListAssignments(ctx, taskID)
}

func (s *Service) EstimationHistory(ctx context.Context, taskID int64) ([]task.EstimationHistoryEntry, error) {
	return s.store.ListEstimationHistory(ctx, taskID)
}

func (s *Service) Teams(ctx context.Context) ([]team.Team, error) {
	return s.lookups.Teams(ctx)
}

func (s *Service) InvalidateLookups(ctx context.Context) error {
	return s.lookups.Invalidate(ctx)
}

func outcome(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return string(apperr.KindCollaborator)
	}

	return string(appErr.Kind)
}
