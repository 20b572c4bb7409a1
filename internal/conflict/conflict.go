// Package conflict checks a proposed date range for a team against the
// team's existing assignments. Findings are advisory; callers decide whether
// to block.
package conflict

import (
	"fmt"
	"time"

	"github.com/nadmax/teamplan/internal/assignment"
	"github.com/nadmax/teamplan/internal/task"
	"github.com/nadmax/teamplan/internal/team"
)

const dateLayout = "2006-01-02"

type Report struct {
	Conflicts []string `json:"conflicts"`
	Warnings  []string `json:"warnings"`
}

func (r Report) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Overlaps reports whether the inclusive ranges [aStart,aEnd] and
// [bStart,bEnd] share at least one day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !task.Day(aStart).After(task.Day(bEnd)) && !task.Day(aEnd).Before(task.Day(bStart))
}

// Detect lists overlaps between [start,end] and the assignments of tm, skipping
// assignments of other teams and of excludeTaskID. load is the team's current
// committed load and drives the capacity warning. Nothing is mutated.
func Detect(tm team.Team, start, end time.Time, existing []assignment.Assignment, excludeTaskID *int64, load float64) Report {
	report := Report{
		Conflicts: []string{},
		Warnings:  []string{},
	}

	for _, a := range existing {
		if a.TeamID != tm.ID {
			continue
		}
		if excludeTaskID != nil && a.TaskID == *excludeTaskID {
			continue
		}
		if !Overlaps(start, end, a.PlannedStart, a.PlannedEnd) {
			continue
		}

		report.Conflicts = append(report.Conflicts, fmt.Sprintf(
			"task #%d is planned for team %s from %s to %s",
			a.TaskID, teamLabel(tm), a.PlannedStart.Format(dateLayout), a.PlannedEnd.Format(dateLayout),
		))
	}

	if load >= tm.Capacity {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"team %s is at or above capacity (load %.1f of %.1f)", teamLabel(tm), load, tm.Capacity,
		))
	}
	if tm.IsExternal {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"team %s is external, allow extra coordination lead time", teamLabel(tm),
		))
	}

	return report
}

func teamLabel(tm team.Team) string {
	if tm.Name == "" {
		return fmt.Sprintf("#%d", tm.ID)
	}

	return tm.Name
}
