package task

import "strings"

type Stage string

const (
	StageBacklog         Stage = "backlog"
	StagePendingPlanning Stage = "pending_planning"
	StagePlanned         Stage = "planned"
	StageInProgress      Stage = "in_progress"
	StageDone            Stage = "done"
)

// IsActive reports whether a task in this stage consumes team capacity.
func (s Stage) IsActive() bool {
	return s == StagePlanned || s == StageInProgress
}

func (s Stage) String() string {
	return string(s)
}

// StatusCatalog tells which tracker status names mean finished work and which
// mean work in progress. Matching is case-insensitive and ignores surrounding
// whitespace.
type StatusCatalog struct {
	done   map[string]struct{}
	active map[string]struct{}
}

var (
	DefaultDoneStatuses   = []string{"Closed", "Resolved", "Rejected", "Done"}
	DefaultActiveStatuses = []string{"In Progress", "Testing", "Feedback"}
)

func NewStatusCatalog(done, active []string) *StatusCatalog {
	c := &StatusCatalog{
		done:   make(map[string]struct{}, len(done)),
		active: make(map[string]struct{}, len(active)),
	}
	for _, s := range done {
		c.done[normalizeStatus(s)] = struct{}{}
	}
	for _, s := range active {
		c.active[normalizeStatus(s)] = struct{}{}
	}

	return c
}

func DefaultStatusCatalog() *StatusCatalog {
	return NewStatusCatalog(DefaultDoneStatuses, DefaultActiveStatuses)
}

func (c *StatusCatalog) IsDone(status string) bool {
	_, ok := c.done[normalizeStatus(status)]
	return ok
}

func (c *StatusCatalog) IsActive(status string) bool {
	_, ok := c.active[normalizeStatus(status)]
	return ok
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type stageRule struct {
	stage Stage
	match func(c *StatusCatalog, t *Task) bool
}

// Evaluated in order, first match wins. The order is part of the contract:
// tracker status beats local planning data, planning data beats readiness.
var stageRules = []stageRule{
	{StageDone, func(c *StatusCatalog, t *Task) bool { return c.IsDone(t.StatusName) }},
	{StageInProgress, func(c *StatusCatalog, t *Task) bool { return c.IsActive(t.StatusName) }},
	{StagePlanned, func(_ *StatusCatalog, t *Task) bool { return t.HasPlan() }},
	{StagePendingPlanning, func(_ *StatusCatalog, t *Task) bool {
		return t.HasResponsible && t.HasFunctionalDoc && t.HasEstimation()
	}},
}

type Classifier struct {
	catalog *StatusCatalog
}

func NewClassifier(catalog *StatusCatalog) *Classifier {
	if catalog == nil {
		catalog = DefaultStatusCatalog()
	}

	return &Classifier{catalog: catalog}
}

// Classify derives the lifecycle stage of t. It has no side effects and never
// fails; unknown status names fall through to the planning rules and finally
// to StageBacklog.
func (c *Classifier) Classify(t *Task) Stage {
	if t == nil {
		return StageBacklog
	}

	for _, r := range stageRules {
		if r.match(c.catalog, t) {
			return r.stage
		}
	}

	return StageBacklog
}

var defaultClassifier = NewClassifier(nil)

// Classify uses the default status catalog.
func Classify(t *Task) Stage {
	return defaultClassifier.Classify(t)
}
