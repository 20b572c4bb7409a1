// Package snapshot merges tracker issues with their stored extension records
// into typed task snapshots.
package snapshot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/tracker"
)

const (
	DefaultDepartmentField    = "Department"
	DefaultResponsibleField   = "Responsible"
	DefaultFunctionalDocField = "Functional Doc"
)

type ExtensionStore interface {
	GetOrCreateExtension(ctx context.Context, taskID int64) (*task.Extension, error)
	ListAssignedExtensions(ctx context.Context) ([]task.Extension, error)
}

type DepartmentResolver interface {
	DepartmentID(ctx context.Context, name string) (*int64, error)
}

// Fields names the tracker custom fields read into a snapshot.
type Fields struct {
	Department    string
	Responsible   string
	FunctionalDoc string
}

func (f Fields) withDefaults() Fields {
	if f.Department == "" {
		f.Department = DefaultDepartmentField
	}
	if f.Responsible == "" {
		f.Responsible = DefaultResponsibleField
	}
	if f.FunctionalDoc == "" {
		f.FunctionalDoc = DefaultFunctionalDocField
	}

	return f
}

type Assembler struct {
	tracker     tracker.Client
	store       ExtensionStore
	departments DepartmentResolver
	fields      Fields
}

func NewAssembler(client tracker.Client, store ExtensionStore, departments DepartmentResolver, fields Fields) *Assembler {
	return &Assembler{
		tracker:     client,
		store:       store,
		departments: departments,
		fields:      fields.withDefaults(),
	}
}

// Fetch returns the snapshot of taskID, creating its extension record on
// first reference.
func (a *Assembler) Fetch(ctx context.Context, taskID int64) (*task.Task, error) {
	issue, err := a.tracker.FetchIssue(ctx, taskID)
	if err != nil {
		return nil, err
	}

	ext, err := a.store.GetOrCreateExtension(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return a.merge(ctx, issue, ext)
}

// ActiveTasks returns the snapshots of every task that currently has a team
// assignment. Assigned tasks the tracker no longer knows are left out.
// Callers classify the result to find the ones that occupy capacity.
func (a *Assembler) ActiveTasks(ctx context.Context) ([]*task.Task, error) {
	exts, err := a.store.ListAssignedExtensions(ctx)
	if err != nil {
		return nil, err
	}
	if len(exts) == 0 {
		return []*task.Task{}, nil
	}

	ids := make([]int64, 0, len(exts))
	for _, ext := range exts {
		ids = append(ids, ext.TaskID)
	}

	issues, err := a.tracker.FetchIssues(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*tracker.Issue, len(issues))
	for i := range issues {
		byID[issues[i].ID] = &issues[i]
	}

	out := make([]*task.Task, 0, len(exts))
	for i := range exts {
		issue, ok := byID[exts[i].TaskID]
		if !ok {
			continue
		}

		t, err := a.merge(ctx, issue, &exts[i])
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, nil
}

// ActiveTasksForTeam narrows ActiveTasks to tasks assigned to teamID.
func (a *Assembler) ActiveTasksForTeam(ctx context.Context, teamID int64) ([]*task.Task, error) {
	all, err := a.ActiveTasks(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*task.Task, 0)
	for _, t := range all {
		if t.IsAssignedTo(teamID) {
			out = append(out, t)
		}
	}

	return out, nil
}

func (a *Assembler) merge(ctx context.Context, issue *tracker.Issue, ext *task.Extension) (*task.Task, error) {
	deptID, err := a.departmentID(ctx, issue)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve department of task %d: %w", issue.ID, err)
	}

	responsible, _ := issue.Field(a.fields.Responsible)
	doc, _ := issue.Field(a.fields.FunctionalDoc)

	return &task.Task{
		ID:                issue.ID,
		Subject:           issue.Subject,
		StatusName:        issue.StatusName,
		DepartmentID:      deptID,
		HasResponsible:    responsible != "",
		HasFunctionalDoc:  doc != "",
		EstimationSprints: ext.EstimationSprints,
		LoadFactor:        ext.LoadFactor,
		AssignedTeamID:    ext.AssignedTeamID,
		PlannedStart:      ext.PlannedStart,
		PlannedEnd:        ext.PlannedEnd,
		Version:           ext.Version,
		UpdatedAt:         ext.UpdatedAt,
	}, nil
}

// departmentID accepts either a numeric department id or a department name
// in the tracker field. Unknown names resolve to no department.
func (a *Assembler) departmentID(ctx context.Context, issue *tracker.Issue) (*int64, error) {
	value, ok := issue.Field(a.fields.Department)
	if !ok || value == "" {
		return nil, nil
	}

	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		return &id, nil
	}

	if a.departments == nil {
		return nil, nil
	}

	return a.departments.DepartmentID(ctx, strings.TrimSpace(value))
}
