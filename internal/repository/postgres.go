// Package repository provides PostgreSQL persistence for teams, affinities,
// task extension records, assignments and estimation history.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/nadmax/teamplan/internal/apperr"
	"github.com/nadmax/teamplan/internal/assignment"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

// serializationFailure is the SQLSTATE Postgres reports when a serializable
// transaction cannot be committed.
const serializationFailure = "40001"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

func (r *PostgresStore) ListTeams(ctx context.Context) ([]team.Team, error) {
	query := `
		SELECT id, name, capacity, is_external, is_active, COALESCE(email, '')
		FROM teams
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer closeRows(rows)

	teams := []team.Team{}
	for rows.Next() {
		var t team.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Capacity, &t.IsExternal, &t.IsActive, &t.Email); err != nil {
			return nil, err
		}

		teams = append(teams, t)
	}

	return teams, rows.Err()
}

// GetTeam returns the team with teamID, active or not.
func (r *PostgresStore) GetTeam(ctx context.Context, teamID int64) (*team.Team, error) {
	query := `
		SELECT id, name, capacity, is_external, is_active, COALESCE(email, '')
		FROM teams
		WHERE id = $1
	`

	var t team.Team
	err := r.db.QueryRowContext(ctx, query, teamID).Scan(
		&t.ID, &t.Name, &t.Capacity, &t.IsExternal, &t.IsActive, &t.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.TeamNotFound("get team", strconv.FormatInt(teamID, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &t, nil
}

func (r *PostgresStore) ListDepartments(ctx context.Context) ([]team.Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer closeRows(rows)

	departments := []team.Department{}
	for rows.Next() {
		var d team.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}

		departments = append(departments, d)
	}

	return departments, rows.Err()
}

func (r *PostgresStore) ListAffinities(ctx context.Context) ([]team.AffinityEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT team_id, department_id, level FROM team_affinities`)
	if err != nil {
		return nil, fmt.Errorf("failed to list affinities: %w", err)
	}
	defer closeRows(rows)

	entries := []team.AffinityEntry{}
	for rows.Next() {
		var e team.AffinityEntry
		if err := rows.Scan(&e.TeamID, &e.DepartmentID, &e.Level); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

const extensionColumns = `
	task_id, estimation_sprints, load_factor, assigned_team_id,
	planned_start, planned_end, version, created_at, updated_at
`

// GetOrCreateExtension returns the extension record of taskID, inserting one
// with defaults when none exists. Calling it twice has the same effect as
// calling it once. It takes no lock: concurrent writers must go through
// CommitAssignment, whose version check detects interleaving.
func (r *PostgresStore) GetOrCreateExtension(ctx context.Context, taskID int64) (*task.Extension, error) {
	insert := `
		INSERT INTO task_extensions (task_id, version, created_at, updated_at)
		VALUES ($1, 1, NOW(), NOW())
		ON CONFLICT (task_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, taskID); err != nil {
		return nil, fmt.Errorf("failed to create task extension: %w", err)
	}

	query := `SELECT ` + extensionColumns + ` FROM task_extensions WHERE task_id = $1`
	ext, err := scanExtension(r.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to get task extension: %w", err)
	}

	return ext, nil
}

// ListAssignedExtensions returns every extension that currently points at a team.
func (r *PostgresStore) ListAssignedExtensions(ctx context.Context) ([]task.Extension, error) {
	query := `SELECT ` + extensionColumns + `
		FROM task_extensions
		WHERE assigned_team_id IS NOT NULL
		ORDER BY task_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	defer closeRows(rows)

	exts := []task.Extension{}
	for rows.Next() {
		ext, err := scanExtension(rows)
		if err != nil {
			return nil, err
		}

		exts = append(exts, *ext)
	}

	return exts, rows.Err()
}

func (r *PostgresStore) ListAssignments(ctx context.Context, taskID int64) ([]assignment.Assignment, error) {
	query := `
		SELECT id, task_id, team_id, planned_start, planned_end, assigned_by, assigned_at
		FROM assignments
		WHERE task_id = $1
		ORDER BY assigned_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer closeRows(rows)

	out := []assignment.Assignment{}
	for rows.Next() {
		var a assignment.Assignment
		if err := rows.Scan(
			&a.ID,
			&a.TaskID,
			&a.TeamID,
			&a.PlannedStart,
			&a.PlannedEnd,
			&a.AssignedBy,
			&a.AssignedAt,
		); err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *PostgresStore) ListEstimationHistory(ctx context.Context, taskID int64) ([]task.EstimationHistoryEntry, error) {
	query := `
		SELECT
			id, task_id, previous_estimation, new_estimation,
			previous_load_factor, new_load_factor, changed_by, changed_at
		FROM estimation_history
		WHERE task_id = $1
		ORDER BY changed_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimation history: %w", err)
	}
	defer closeRows(rows)

	out := []task.EstimationHistoryEntry{}
	for rows.Next() {
		var e task.EstimationHistoryEntry
		var prevEst, newEst, prevLoad, newLoad sql.NullFloat64
		if err := rows.Scan(
			&e.ID,
			&e.TaskID,
			&prevEst,
			&newEst,
			&prevLoad,
			&newLoad,
			&e.ChangedBy,
			&e.ChangedAt,
		); err != nil {
			return nil, err
		}

		e.PreviousEstimation = floatPtr(prevEst)
		e.NewEstimation = floatPtr(newEst)
		e.PreviousLoadFactor = floatPtr(prevLoad)
		e.NewLoadFactor = floatPtr(newLoad)
		out = append(out, e)
	}

	return out, rows.Err()
}

// CommitAssignment writes the history entry, the assignment row and the
// extension update in one serializable transaction.
func (r *PostgresStore) CommitAssignment(ctx context.Context, in assignment.CommitInput) (ext *task.Extension, err error) {
	const op = "commit assignment"
	a := in.Assignment
	taskID := strconv.FormatInt(a.TaskID, 10)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var version int
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM task_extensions WHERE task_id = $1 FOR UPDATE`,
		a.TaskID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.TaskNotFound(op, taskID)
	}
	if err != nil {
		return nil, mapTxError(op, taskID, "lock task extension", err)
	}
	if version != in.ExpectedVersion {
		return nil, apperr.VersionConflict(op, taskID)
	}

	if h := in.History; h != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO estimation_history (
				id, task_id, previous_estimation, new_estimation,
				previous_load_factor, new_load_factor, changed_by, changed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			h.ID,
			h.TaskID,
			nullFloat(h.PreviousEstimation),
			nullFloat(h.NewEstimation),
			nullFloat(h.PreviousLoadFactor),
			nullFloat(h.NewLoadFactor),
			h.ChangedBy,
			h.ChangedAt,
		)
		if err != nil {
			return nil, mapTxError(op, taskID, "insert estimation history", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assignments (
			id, task_id, team_id, planned_start, planned_end, assigned_by, assigned_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		a.ID,
		a.TaskID,
		a.TeamID,
		a.PlannedStart,
		a.PlannedEnd,
		a.AssignedBy,
		a.AssignedAt,
	)
	if err != nil {
		return nil, mapTxError(op, taskID, "insert assignment", err)
	}

	ext, err = scanExtension(tx.QueryRowContext(ctx, `
		UPDATE task_extensions
		SET estimation_sprints = $1,
		    load_factor = $2,
		    assigned_team_id = $3,
		    planned_start = $4,
		    planned_end = $5,
		    version = version + 1,
		    updated_at = NOW()
		WHERE task_id = $6 AND version = $7
		RETURNING `+extensionColumns,
		nullFloat(in.EstimationSprints),
		nullFloat(in.LoadFactor),
		a.TeamID,
		a.PlannedStart,
		a.PlannedEnd,
		a.TaskID,
		in.ExpectedVersion,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.VersionConflict(op, taskID)
	}
	if err != nil {
		return nil, mapTxError(op, taskID, "update task extension", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, mapTxError(op, taskID, "commit transaction", err)
	}

	return ext, nil
}

func (r *PostgresStore) DB() *sql.DB {
	return r.db
}

func (r *PostgresStore) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExtension(row rowScanner) (*task.Extension, error) {
	var ext task.Extension
	var estimation, loadFactor sql.NullFloat64
	var teamID sql.NullInt64
	var start, end sql.NullTime

	if err := row.Scan(
		&ext.TaskID,
		&estimation,
		&loadFactor,
		&teamID,
		&start,
		&end,
		&ext.Version,
		&ext.CreatedAt,
		&ext.UpdatedAt,
	); err != nil {
		return nil, err
	}

	ext.EstimationSprints = floatPtr(estimation)
	ext.LoadFactor = floatPtr(loadFactor)
	if teamID.Valid {
		ext.AssignedTeamID = &teamID.Int64
	}
	if start.Valid {
		d := task.Day(start.Time)
		ext.PlannedStart = &d
	}
	if end.Valid {
		d := task.Day(end.Time)
		ext.PlannedEnd = &d
	}

	return &ext, nil
}

func mapTxError(op, taskID, step string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == serializationFailure {
		return apperr.VersionConflict(op, taskID)
	}

	return fmt.Errorf("failed to %s: %w", step, err)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}

	f := v.Float64
	return &f
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "err", err)
	}
}
