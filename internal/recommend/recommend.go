// Package recommend ranks active teams for a single task by combining
// affinity, free capacity, how soon the team can start and whether it is an
// internal team.
package recommend

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/nadmax/teamplan/internal/apperr"
	"github.com/nadmax/teamplan/internal/capacity"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

const (
	AffinityWeight     = 40.0
	AvailabilityWeight = 35.0
	TimingWeight       = 15.0
	InternalBonus      = 10.0

	MaxScore = AffinityWeight + AvailabilityWeight + TimingWeight + InternalBonus
)

type ScoreBreakdown struct {
	Affinity     float64 `json:"affinity"`
	Availability float64 `json:"availability"`
	Timing       float64 `json:"timing"`
	Internal     float64 `json:"internal"`
}

type TeamRecommendation struct {
	TeamID        int64          `json:"team_id"`
	TeamName      string         `json:"team_name"`
	Score         float64        `json:"score"`
	AffinityLevel int            `json:"affinity_level"`
	CurrentLoad   float64        `json:"current_load"`
	Capacity      float64        `json:"capacity"`
	Available     float64        `json:"available"`
	PossibleStart time.Time      `json:"possible_start"`
	PossibleEnd   time.Time      `json:"possible_end"`
	IsExternal    bool           `json:"is_external"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
}

type Engine struct {
	tracker *capacity.Tracker
	now     func() time.Time
}

type Option func(*Engine)

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(tracker *capacity.Tracker, opts ...Option) *Engine {
	if tracker == nil {
		tracker = capacity.NewTracker(nil)
	}

	e := &Engine{
		tracker: tracker,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Recommend scores every team in teams for t and returns them ordered by score
// descending, then team id ascending. activeTasks is the snapshot used for load
// accounting. Either the full ranking or an error is returned. An inactive
// team in teams is reported as not found, the same way a missing team is.
func (e *Engine) Recommend(t *task.Task, teams []team.Team, affinity *team.AffinityStore, activeTasks []*task.Task) ([]TeamRecommendation, error) {
	const op = "recommend"

	if t == nil {
		return nil, apperr.IneligibleTask(op, "", "no task")
	}

	taskID := strconv.FormatInt(t.ID, 10)
	if t.EstimationSprints == nil || t.LoadFactor == nil {
		return nil, apperr.IneligibleTask(op, taskID, "missing estimation or load factor")
	}
	for _, tm := range teams {
		if !tm.IsActive {
			return nil, apperr.TeamNotFound(op, strconv.FormatInt(tm.ID, 10))
		}
	}

	today := task.Day(e.now())
	out := make([]TeamRecommendation, 0, len(teams))
	for _, tm := range teams {
		out = append(out, e.score(t, tm, affinity, activeTasks, today))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TeamID < out[j].TeamID
	})

	return out, nil
}

func (e *Engine) score(t *task.Task, tm team.Team, affinity *team.AffinityStore, activeTasks []*task.Task, today time.Time) TeamRecommendation {
	level := affinity.Affinity(tm.ID, t.DepartmentID)
	load := e.tracker.Load(tm.ID, activeTasks)
	available := tm.Capacity - load

	start := today
	if available < *t.LoadFactor {
		if latest := e.tracker.LatestCommitmentEnd(tm.ID, activeTasks); latest != nil {
			if next := latest.AddDate(0, 0, 1); next.After(start) {
				start = next
			}
		}
	}
	end := start.AddDate(0, 0, DurationDays(*t.EstimationSprints))

	b := ScoreBreakdown{
		Affinity:     float64(level) / team.MaxAffinity * AffinityWeight,
		Availability: AvailabilityScore(available, tm.Capacity),
		Timing:       TimingScore(task.DaysBetween(today, start)),
	}
	if !tm.IsExternal {
		b.Internal = InternalBonus
	}

	return TeamRecommendation{
		TeamID:        tm.ID,
		TeamName:      tm.Name,
		Score:         clamp(round1(b.Affinity+b.Availability+b.Timing+b.Internal), 0, MaxScore),
		AffinityLevel: level,
		CurrentLoad:   load,
		Capacity:      tm.Capacity,
		Available:     available,
		PossibleStart: start,
		PossibleEnd:   end,
		IsExternal:    tm.IsExternal,
		Breakdown:     b,
	}
}

// AvailabilityScore is the free share of capacity scaled to the availability
// weight, floored at zero. A non-positive capacity scores zero.
func AvailabilityScore(available, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}

	return math.Max(0, available/capacity) * AvailabilityWeight
}

// TimingScore loses one point per week of waiting.
func TimingScore(daysUntilStart int) float64 {
	if daysUntilStart < 0 {
		daysUntilStart = 0
	}

	return math.Max(0, TimingWeight-float64(daysUntilStart)/7)
}

// DurationDays converts an estimation in sprints to calendar days.
func DurationDays(sprints float64) int {
	return int(math.Round(sprints * task.SprintDays))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
