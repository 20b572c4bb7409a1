// Package team holds delivery teams, departments and the team/department
// affinity table used to rank teams for a task.
package team

const (
	MinAffinity     = 1
	MaxAffinity     = 5
	DefaultAffinity = MinAffinity
)

type Team struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Capacity   float64 `json:"capacity"`
	IsExternal bool    `json:"is_external"`
	IsActive   bool    `json:"is_active"`
	Email      string  `json:"email,omitempty"`
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type AffinityEntry struct {
	TeamID       int64 `json:"team_id"`
	DepartmentID int64 `json:"department_id"`
	Level        int   `json:"level"`
}

func ActiveOnly(teams []Team) []Team {
	out := make([]Team, 0, len(teams))
	for _, t := range teams {
		if t.IsActive {
			out = append(out, t)
		}
	}

	return out
}

type affinityKey struct {
	teamID       int64
	departmentID int64
}

// AffinityStore is a read-only snapshot of the affinity table. It is safe for
// concurrent use once built.
type AffinityStore struct {
	levels map[affinityKey]int
}

// NewAffinityStore indexes entries by (team, department). Levels outside
// [1,5] are clamped; a later duplicate overrides an earlier one.
func NewAffinityStore(entries []AffinityEntry) *AffinityStore {
	s := &AffinityStore{levels: make(map[affinityKey]int, len(entries))}
	for _, e := range entries {
		s.levels[affinityKey{e.TeamID, e.DepartmentID}] = clampLevel(e.Level)
	}

	return s
}

// Affinity returns the level for the pair, or DefaultAffinity when the
// department is unknown or no entry exists.
func (s *AffinityStore) Affinity(teamID int64, departmentID *int64) int {
	if s == nil || departmentID == nil {
		return DefaultAffinity
	}

	level, ok := s.levels[affinityKey{teamID, *departmentID}]
	if !ok {
		return DefaultAffinity
	}

	return level
}

func (s *AffinityStore) Len() int {
	if s == nil {
		return 0
	}

	return len(s.levels)
}

func clampLevel(level int) int {
	switch {
	case level < MinAffinity:
		return MinAffinity
	case level > MaxAffinity:
		return MaxAffinity
	default:
		return level
	}
}
