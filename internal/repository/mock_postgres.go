package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nadmax/teamplan/internal/apperr"
	"github.com/nadmax/teamplan/internal/assignment"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

type MockStore struct {
	mu                  sync.Mutex
	Teams               map[int64]*team.Team
	Departments         []team.Department
	Affinities          []team.AffinityEntry
	Extensions          map[int64]*task.Extension
	Assignments         []assignment.Assignment
	History             []task.EstimationHistoryEntry
	GetTeamCalls        []int64
	GetOrCreateCalls    []int64
	CommitCalls         []assignment.CommitInput
	ListTeamsCalls      int
	ListTeamsError      error
	GetTeamError        error
	GetOrCreateError    error
	ListAssignedError   error
	CommitError         error
	ListAssignmentsErr  error
	ListHistoryError    error
	ListAffinitiesError error
}

func NewMockStore() *MockStore {
	return &MockStore{
		Teams:       make(map[int64]*team.Team),
		Departments: make([]team.Department, 0),
		Affinities:  make([]team.AffinityEntry, 0),
		Extensions:  make(map[int64]*task.Extension),
	}
}

func (m *MockStore) AddTeam(t team.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Teams[t.ID] = &t
}

func (m *MockStore) AddExtension(ext task.Extension) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Extensions[ext.TaskID] = &ext
}

func (m *MockStore) ListTeams(ctx context.Context) ([]team.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListTeamsCalls++
	if m.ListTeamsError != nil {
		return nil, m.ListTeamsError
	}

	out := make([]team.Team, 0, len(m.Teams))
	for _, t := range m.Teams {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *MockStore) GetTeam(ctx context.Context, teamID int64) (*team.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetTeamCalls = append(m.GetTeamCalls, teamID)
	if m.GetTeamError != nil {
		return nil, m.GetTeamError
	}

	t, ok := m.Teams[teamID]
	if !ok {
		return nil, apperr.TeamNotFound("get team", strconv.FormatInt(teamID, 10))
	}

	cp := *t
	return &cp, nil
}

func (m *MockStore) ListDepartments(ctx context.Context) ([]team.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]team.Department(nil), m.Departments...), nil
}

func (m *MockStore) ListAffinities(ctx context.Context) ([]team.AffinityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListAffinitiesError != nil {
		return nil, m.ListAffinitiesError
	}

	return append([]team.AffinityEntry(nil), m.Affinities...), nil
}

func (m *MockStore) GetOrCreateExtension(ctx context.Context, taskID int64) (*task.Extension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetOrCreateCalls = append(m.GetOrCreateCalls, taskID)
	if m.GetOrCreateError != nil {
		return nil, m.GetOrCreateError
	}

	ext, ok := m.Extensions[taskID]
	if !ok {
		ext = task.NewExtension(taskID)
		m.Extensions[taskID] = ext
	}

	cp := *ext
	return &cp, nil
}

func (m *MockStore) ListAssignedExtensions(ctx context.Context) ([]task.Extension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListAssignedError != nil {
		return nil, m.ListAssignedError
	}

	out := make([]task.Extension, 0)
	for _, ext := range m.Extensions {
		if ext.AssignedTeamID != nil {
			out = append(out, *ext)
		}
	}

	return out, nil
}

func (m *MockStore) ListAssignments(ctx context.Context, taskID int64) ([]assignment.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListAssignmentsErr != nil {
		return nil, m.ListAssignmentsErr
	}

	out := make([]assignment.Assignment, 0)
	for _, a := range m.Assignments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}

	return out, nil
}

func (m *MockStore) ListEstimationHistory(ctx context.Context, taskID int64) ([]task.EstimationHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListHistoryError != nil {
		return nil, m.ListHistoryError
	}

	out := make([]task.EstimationHistoryEntry, 0)
	for _, h := range m.History {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}

	return out, nil
}

func (m *MockStore) CommitAssignment(ctx context.Context, in assignment.CommitInput) (*task.Extension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CommitCalls = append(m.CommitCalls, in)
	if m.CommitError != nil {
		return nil, m.CommitError
	}

	a := in.Assignment
	id := strconv.FormatInt(a.TaskID, 10)
	ext, ok := m.Extensions[a.TaskID]
	if !ok {
		return nil, apperr.TaskNotFound("commit assignment", id)
	}
	if ext.Version != in.ExpectedVersion {
		return nil, apperr.VersionConflict("commit assignment", id)
	}

	if in.History != nil {
		m.History = append(m.History, *in.History)
	}
	m.Assignments = append(m.Assignments, *a)

	start, end := a.PlannedStart, a.PlannedEnd
	teamID := a.TeamID
	ext.EstimationSprints = in.EstimationSprints
	ext.LoadFactor = in.LoadFactor
	ext.AssignedTeamID = &teamID
	ext.PlannedStart = &start
	ext.PlannedEnd = &end
	ext.Version++
	ext.UpdatedAt = time.Now().UTC()

	cp := *ext
	return &cp, nil
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) GetCommitCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.CommitCalls)
}
