package repository

import (
	"context"

	"github.com/nadmax/teamplan/internal/assignment"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

type Store interface {
	ListTeams(ctx context.Context) ([]team.Team, error)
	GetTeam(ctx context.Context, teamID int64) (*team.Team, error)
	ListDepartments(ctx context.Context) ([]team.Department, error)
	ListAffinities(ctx context.Context) ([]team.AffinityEntry, error)
	GetOrCreateExtension(ctx context.Context, taskID int64) (*task.Extension, error)
	ListAssignedExtensions(ctx context.Context) ([]task.Extension, error)
	ListAssignments(ctx context.Context, taskID int64) ([]assignment.Assignment, error)
	ListEstimationHistory(ctx context.Context, taskID int64) ([]task.EstimationHistoryEntry, error)
	CommitAssignment(ctx context.Context, in assignment.CommitInput) (*task.Extension, error)
	Close() error
}
