package tracker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/nadmax/teamplan/internal/apperr"
)

type MockClient struct {
	mu               sync.Mutex
	Issues           map[int64]*Issue
	FetchIssueCalls  []int64
	FetchIssuesCalls [][]int64
	UpdateDatesCalls []UpdateDatesCall
	FetchIssueError  error
	FetchIssuesError error
	UpdateDatesError error
}

type UpdateDatesCall struct {
	ID    int64
	Start time.Time
	End   time.Time
}

func NewMockClient() *MockClient {
	return &MockClient{
		Issues: make(map[int64]*Issue),
	}
}

func (m *MockClient) AddIssue(issue Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Issues[issue.ID] = &issue
}

func (m *MockClient) FetchIssue(_ context.Context, id int64) (*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchIssueCalls = append(m.FetchIssueCalls, id)
	if m.FetchIssueError != nil {
		return nil, m.FetchIssueError
	}

	issue, ok := m.Issues[id]
	if !ok {
		return nil, apperr.TaskNotFound("fetch issue", strconv.FormatInt(id, 10))
	}

	cp := *issue
	return &cp, nil
}

func (m *MockClient) FetchIssues(_ context.Context, ids []int64) ([]Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchIssuesCalls = append(m.FetchIssuesCalls, append([]int64(nil), ids...))
	if m.FetchIssuesError != nil {
		return nil, m.FetchIssuesError
	}

	out := make([]Issue, 0, len(ids))
	for _, id := range ids {
		if issue, ok := m.Issues[id]; ok {
			out = append(out, *issue)
		}
	}

	return out, nil
}

func (m *MockClient) UpdateIssueDates(_ context.Context, id int64, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateDatesCalls = append(m.UpdateDatesCalls, UpdateDatesCall{ID: id, Start: start, End: end})
	if m.UpdateDatesError != nil {
		return m.UpdateDatesError
	}

	if issue, ok := m.Issues[id]; ok {
		s, e := start, end
		issue.StartDate = &s
		issue.DueDate = &e
	}

	return nil
}

func (m *MockClient) GetUpdateDatesCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.UpdateDatesCalls)
}
