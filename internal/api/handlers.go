// Package api exposes the planning service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nadmax/teamplan/internal/assignment"
	"github.com/nadmax/teamplan/internal/capacity"
	"github.com/nadmax/teamplan/internal/conflict"
	"github.com/nadmax/teamplan/internal/dashboard"
	"github.com/nadmax/teamplan/internal/httputil"
	"github.com/nadmax/teamplan/internal/middleware"
	"github.com/nadmax/teamplan/internal/planning"
	"github.com/nadmax/teamplan/internal/queue"
	"github.com/nadmax/teamplan/internal/recommend"
	"github.com/nadmax/teamplan/internal/task"
)

const dateLayout = "2006-01-02"

type Planner interface {
	GetRecommendations(ctx context.Context, taskID int64) ([]recommend.TeamRecommendation, error)
	ClassifyStage(ctx context.Context, taskID int64) (task.Stage, error)
	CheckConflicts(ctx context.Context, q planning.ConflictQuery) (conflict.Report, error)
	CommitAssignment(ctx context.Context, req assignment.Request) (*planning.CommitResult, error)
	Assignments(ctx context.Context, taskID int64) ([]assignment.Assignment, error)
	EstimationHistory(ctx context.Context, taskID int64) ([]task.EstimationHistoryEntry, error)
	TeamCapacity(ctx context.Context) ([]capacity.Summary, error)
	InvalidateLookups(ctx context.Context) error
}

// JobQueue receives the follow-up jobs of a commit and backs the job
// dashboard.
type JobQueue interface {
	dashboard.JobSource
	Enqueue(ctx context.Context, job *queue.Job) error
}

type API struct {
	planner Planner
	jobs    JobQueue
	logger  *slog.Logger
	router  chi.Router
}

type AssignmentRequest struct {
	TeamID            int64    `json:"team_id"`
	Start             string   `json:"start"`
	End               string   `json:"end"`
	EstimationSprints *float64 `json:"estimation_sprints,omitempty"`
	LoadFactor        *float64 `json:"load_factor,omitempty"`
	Actor             string   `json:"actor"`
}

type RecommendationsResponse struct {
	TaskID          int64                          `json:"task_id"`
	Recommendations []recommend.TeamRecommendation `json:"recommendations"`
}

type StageResponse struct {
	TaskID int64      `json:"task_id"`
	Stage  task.Stage `json:"stage"`
}

type CommitResponse struct {
	*planning.CommitResult
	Jobs []string `json:"jobs"`
}

func NewAPI(planner Planner, jobs JobQueue, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}

	api := &API{
		planner: planner,
		jobs:    jobs,
		logger:  logger,
		router:  chi.NewRouter(),
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	r := a.router
	r.Use(middleware.RecoveryMiddleware(a.logger))
	r.Use(middleware.LoggingMiddleware(a.logger))
	r.Use(middleware.MetricsMiddleware)

	r.Get("/health", a.health)

	dash := dashboard.NewDashboard(a.jobs)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/recommendations", a.getRecommendations)
			r.Get("/stage", a.getStage)
			r.Post("/assignment", a.commitAssignment)
			r.Get("/assignments", a.listAssignments)
			r.Get("/estimation-history", a.listEstimationHistory)
		})

		r.Get("/teams/capacity", a.teamCapacity)
		r.Get("/teams/{id}/conflicts", a.checkConflicts)

		r.Post("/cache/invalidate", a.invalidateCache)

		r.Get("/jobs/stats", dash.GetStats)
		r.Get("/jobs/recent", dash.GetRecentJobs)
	})
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) getRecommendations(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	recs, err := a.planner.GetRecommendations(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if recs == nil {
		recs = []recommend.TeamRecommendation{}
	}

	httputil.WriteJSON(w, http.StatusOK, RecommendationsResponse{TaskID: taskID, Recommendations: recs})
}

func (a *API) getStage(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	stage, err := a.planner.ClassifyStage(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StageResponse{TaskID: taskID, Stage: stage})
}

func (a *API) checkConflicts(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "team")
	if !ok {
		return
	}

	query := r.URL.Query()
	start, err := parseDate(query.Get("start"))
	if err != nil {
		httputil.WriteJSONError(w, "invalid start date", http.StatusBadRequest)
		return
	}
	end, err := parseDate(query.Get("end"))
	if err != nil {
		httputil.WriteJSONError(w, "invalid end date", http.StatusBadRequest)
		return
	}

	q := planning.ConflictQuery{TeamID: teamID, Start: start, End: end}
	if raw := query.Get("exclude"); raw != "" {
		exclude, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteJSONError(w, "invalid exclude task id", http.StatusBadRequest)
			return
		}
		q.ExcludeTaskID = &exclude
	}

	report, err := a.planner.CheckConflicts(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

func (a *API) commitAssignment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			a.logger.Warn("failed to close request body", "err", err)
		}
	}()

	var req AssignmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Actor == "" {
		httputil.WriteJSONError(w, "actor is required", http.StatusBadRequest)
		return
	}

	start, err := parseDate(req.Start)
	if err != nil {
		httputil.WriteJSONError(w, "invalid start date", http.StatusBadRequest)
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		httputil.WriteJSONError(w, "invalid end date", http.StatusBadRequest)
		return
	}

	result, err := a.planner.CommitAssignment(r.Context(), assignment.Request{
		TaskID:            taskID,
		TeamID:            req.TeamID,
		Start:             start,
		End:               end,
		EstimationSprints: req.EstimationSprints,
		LoadFactor:        req.LoadFactor,
		Actor:             req.Actor,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	jobs := a.enqueueFollowUps(r.Context(), result, req.Actor)

	httputil.WriteJSON(w, http.StatusOK, CommitResponse{CommitResult: result, Jobs: jobs})
}

// enqueueFollowUps schedules the tracker date sync and, when the team has a
// contact address, the team notification. Failures are logged only; the
// assignment is already committed.
func (a *API) enqueueFollowUps(ctx context.Context, result *planning.CommitResult, actor string) []string {
	ids := []string{}
	if a.jobs == nil {
		return ids
	}

	start := result.Assignment.PlannedStart.Format(dateLayout)
	end := result.Assignment.PlannedEnd.Format(dateLayout)
	log := a.logger.With("task_id", result.Task.ID, "team_id", result.Team.ID)

	jobs := make([]*queue.Job, 0, 2)

	sync, err := queue.NewSyncTrackerDatesJob(queue.SyncTrackerDatesPayload{
		TaskID: result.Task.ID,
		Start:  start,
		End:    end,
	})
	if err != nil {
		log.Error("failed to build tracker sync job", "err", err)
	} else {
		jobs = append(jobs, sync)
	}

	if result.Team.Email != "" {
		notify, err := queue.NewNotifyTeamJob(queue.NotifyTeamPayload{
			TaskID:      result.Task.ID,
			TaskSubject: result.Task.Subject,
			TeamID:      result.Team.ID,
			TeamName:    result.Team.Name,
			TeamEmail:   result.Team.Email,
			Start:       start,
			End:         end,
			AssignedBy:  actor,
		})
		if err != nil {
			log.Error("failed to build team notification job", "err", err)
		} else {
			jobs = append(jobs, notify)
		}
	}

	for _, job := range jobs {
		if err := a.jobs.Enqueue(ctx, job); err != nil {
			log.Warn("failed to enqueue follow-up job", "job_type", job.Type, "err", err)
			continue
		}
		ids = append(ids, job.ID)
	}

	return ids
}

func (a *API) listAssignments(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	rows, err := a.planner.Assignments(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []assignment.Assignment{}
	}

	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (a *API) listEstimationHistory(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	entries, err := a.planner.EstimationHistory(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []task.EstimationHistoryEntry{}
	}

	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (a *API) teamCapacity(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.planner.TeamCapacity(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"teams": summaries})
}

func (a *API) invalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := a.planner.InvalidateLookups(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request, entity string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteJSONError(w, "invalid "+entity+" id", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

// parseDate accepts a calendar date. An empty value yields the zero time so
// the service can report the missing bound.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(dateLayout, s)
}
