package schedule

import (
	"fmt"
	"sort"
)

// neutralProjectPriority is assumed for tasks that belong to no project, so
// orphan tasks rank alongside medium-priority project work.
const neutralProjectPriority = PriorityMedium

// Candidate pairs a schedulable task with its composite priority score.
type Candidate struct {
	Task  Task
	Score int
}

// ScoreTask combines project and task priority into one ordering key.
// Project priority dominates; task priority breaks ties within a project.
// Lower is more urgent.
func ScoreTask(t Task, projects map[int]Project) int {
	pp := neutralProjectPriority
	if p, ok := projects[t.ProjectID]; ok {
		pp = p.Priority
	}
	return pp*10 + t.Priority
}

// DependenciesReady reports whether every dependency of t has completed.
// The check is per-dependency only: a missing dependency id counts as
// unsatisfied, and cycles are not chased (a cycle simply keeps its members
// unready forever).
func DependenciesReady(t Task, byID map[int]Task) bool {
	for _, dep := range t.DependsOn {
		d, ok := byID[dep]
		if !ok || d.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// blockingDependency names the first unfinished dependency for note text.
func blockingDependency(t Task, byID map[int]Task) string {
	for _, dep := range t.DependsOn {
		d, ok := byID[dep]
		if !ok {
			return fmt.Sprintf("dependency %d not in snapshot", dep)
		}
		if d.Status != StatusCompleted {
			return fmt.Sprintf("waiting on %q (%s)", d.Title, d.Status)
		}
	}
	return ""
}

// eligibleStatus gates which lifecycle states enter the default candidate
// pool. InProgress tasks are only considered when explicitly requested.
func eligibleStatus(s Status, explicit bool) bool {
	switch s {
	case StatusNotStarted, StatusOnHold:
		return true
	case StatusInProgress:
		return explicit
	default:
		return false
	}
}

// Prioritize filters tasks down to scheduling candidates and orders them
// most urgent first. The sort is stable so equal scores keep snapshot order
// and repeated calls over the same snapshot yield identical output.
func Prioritize(tasks []Task, projects map[int]Project) []Candidate {
	byID := make(map[int]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var out []Candidate
	for _, t := range tasks {
		if !eligibleStatus(t.Status, false) {
			continue
		}
		if !DependenciesReady(t, byID) {
			continue
		}
		out = append(out, Candidate{Task: t, Score: ScoreTask(t, projects)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}
