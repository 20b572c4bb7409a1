// Package metrics provides Prometheus metrics for the planning service and its workers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamplan_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teamplan_recommendation_duration_seconds",
			Help:    "Time spent fetching the snapshot and scoring teams for one task",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
	TeamsScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teamplan_teams_scored",
			Help:    "Number of candidate teams scored per recommendation",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
	CommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamplan_commits_total",
			Help: "Total number of assignment commits by outcome",
		},
		[]string{"outcome"},
	)
	EstimationChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamplan_estimation_changes_total",
			Help: "Total number of commits that changed a task estimation",
		},
	)
	ConflictChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamplan_conflict_checks_total",
			Help: "Total number of conflict checks by result",
		},
		[]string{"result"},
	)
	ConflictWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamplan_conflict_warnings_total",
			Help: "Total number of warnings returned by conflict checks",
		},
	)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamplan_cache_lookups_total",
			Help: "Lookup cache requests by entry and result",
		},
		[]string{"entry", "result"},
	)
	TeamLoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "teamplan_team_load",
			Help: "Committed load of a team in sprint-equivalent units",
		},
		[]string{"team"},
	)
	TeamCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "teamplan_team_capacity",
			Help: "Configured capacity of a team in sprint-equivalent units",
		},
		[]string{"team"},
	)
	JobQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamplan_job_queue_depth",
			Help: "Follow-up jobs waiting in the queue, due or scheduled",
		},
	)
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamplan_jobs_processed_total",
			Help: "Background jobs processed by type and status",
		},
		[]string{"type", "status"},
	)
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamplan_job_duration_seconds",
			Help:    "Background job execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamplan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamplan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordRecommendation(outcome string, teams int, duration time.Duration) {
	RecommendationsComputed.WithLabelValues(outcome).Inc()
	RecommendationDuration.Observe(duration.Seconds())
	if outcome == "ok" {
		TeamsScored.Observe(float64(teams))
	}
}

func RecordCommit(outcome string, estimationChanged bool) {
	CommitsTotal.WithLabelValues(outcome).Inc()
	if estimationChanged {
		EstimationChanges.Inc()
	}
}

func RecordConflictCheck(conflicts, warnings int) {
	result := "clear"
	if conflicts > 0 {
		result = "conflict"
	}

	ConflictChecks.WithLabelValues(result).Inc()
	ConflictWarnings.Add(float64(warnings))
}

func RecordCacheHit(entry string) {
	CacheLookups.WithLabelValues(entry, "hit").Inc()
}

func RecordCacheMiss(entry string) {
	CacheLookups.WithLabelValues(entry, "miss").Inc()
}

func UpdateTeamGauges(team string, load, capacity float64) {
	TeamLoad.WithLabelValues(team).Set(load)
	TeamCapacity.WithLabelValues(team).Set(capacity)
}

func UpdateQueueDepth(depth int64) {
	JobQueueDepth.Set(float64(depth))
}

func RecordJob(jobType, status string, duration time.Duration) {
	JobsProcessed.WithLabelValues(jobType, status).Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
