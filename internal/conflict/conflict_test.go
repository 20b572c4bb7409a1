package conflict

import (
	"testing"
	"time"

	"github.com/nadmax/teamplan/internal/assignment"
	"github.com/nadmax/teamplan/internal/team"
	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func existing(taskID, teamID int64, start, end string) assignment.Assignment {
	return assignment.Assignment{
		TaskID:       taskID,
		TeamID:       teamID,
		PlannedStart: day(start),
		PlannedEnd:   day(end),
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name         string
		aStart, aEnd string
		bStart, bEnd string
		want         bool
	}{
		{"partial overlap", "2024-03-01", "2024-03-10", "2024-03-05", "2024-03-20", true},
		{"adjacent ranges", "2024-03-01", "2024-03-10", "2024-03-11", "2024-03-20", false},
		{"shared boundary day", "2024-03-01", "2024-03-10", "2024-03-10", "2024-03-20", true},
		{"containment", "2024-03-01", "2024-03-31", "2024-03-05", "2024-03-06", true},
		{"disjoint before", "2024-02-01", "2024-02-10", "2024-03-01", "2024-03-10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(day(tt.aStart), day(tt.aEnd), day(tt.bStart), day(tt.bEnd)))
		})
	}
}

func TestDetect_Conflicts(t *testing.T) {
	tm := team.Team{ID: 1, Name: "Core", Capacity: 3}

	t.Run("overlap on same team", func(t *testing.T) {
		report := Detect(tm, day("2024-03-05"), day("2024-03-20"),
			[]assignment.Assignment{existing(10, 1, "2024-03-01", "2024-03-10")}, nil, 1)

		assert.Len(t, report.Conflicts, 1)
		assert.Contains(t, report.Conflicts[0], "task #10")
		assert.True(t, report.HasConflicts())
	})

	t.Run("adjacent range is not a conflict", func(t *testing.T) {
		report := Detect(tm, day("2024-03-11"), day("2024-03-20"),
			[]assignment.Assignment{existing(10, 1, "2024-03-01", "2024-03-10")}, nil, 1)

		assert.Empty(t, report.Conflicts)
		assert.False(t, report.HasConflicts())
	})

	t.Run("other team is ignored", func(t *testing.T) {
		report := Detect(tm, day("2024-03-05"), day("2024-03-20"),
			[]assignment.Assignment{existing(10, 2, "2024-03-01", "2024-03-10")}, nil, 1)

		assert.Empty(t, report.Conflicts)
	})

	t.Run("excluded task is ignored", func(t *testing.T) {
		exclude := int64(10)
		report := Detect(tm, day("2024-03-05"), day("2024-03-20"),
			[]assignment.Assignment{
				existing(10, 1, "2024-03-01", "2024-03-10"),
				existing(11, 1, "2024-03-15", "2024-03-25"),
			}, &exclude, 1)

		assert.Len(t, report.Conflicts, 1)
		assert.Contains(t, report.Conflicts[0], "task #11")
	})
}

func TestDetect_Warnings(t *testing.T) {
	start, end := day("2024-03-01"), day("2024-03-10")

	t.Run("below capacity internal team", func(t *testing.T) {
		report := Detect(team.Team{ID: 1, Capacity: 3}, start, end, nil, nil, 2.5)

		assert.Empty(t, report.Warnings)
		assert.NotNil(t, report.Conflicts)
	})

	t.Run("at capacity", func(t *testing.T) {
		report := Detect(team.Team{ID: 1, Name: "Core", Capacity: 3}, start, end, nil, nil, 3)

		assert.Len(t, report.Warnings, 1)
		assert.Contains(t, report.Warnings[0], "at or above capacity")
	})

	t.Run("external team above capacity", func(t *testing.T) {
		report := Detect(team.Team{ID: 1, Capacity: 3, IsExternal: true}, start, end, nil, nil, 4)

		assert.Len(t, report.Warnings, 2)
		assert.Contains(t, report.Warnings[1], "external")
	})
}

func TestDetect_DoesNotMutateInput(t *testing.T) {
	rows := []assignment.Assignment{existing(10, 1, "2024-03-01", "2024-03-10")}
	snapshot := append([]assignment.Assignment(nil), rows...)

	_ = Detect(team.Team{ID: 1, Capacity: 1}, day("2024-03-05"), day("2024-03-06"), rows, nil, 0)

	assert.Equal(t, snapshot, rows)
}
