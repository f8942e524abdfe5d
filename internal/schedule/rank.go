package schedule

import (
	"fmt"
	"sort"
)

// Rank orders a combined suggestion list by priority score ascending, then
// by suggested start ascending. The sort is stable, so identical inputs
// always produce identical output.
func Rank(suggestions []Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score < suggestions[j].Score
		}
		return suggestions[i].Start.Before(suggestions[j].Start)
	})
}

// DeterministicReason builds the fallback justification attached to every
// suggestion. It is derived only from the inputs, so it survives narrative
// generator outages unchanged.
func DeterministicReason(t Task, projectPriority, minutes int) string {
	return fmt.Sprintf(
		"Task priority %s in project priority %s; first open %d-minute slot honoring business hours and existing commitments.",
		PriorityLabel(t.Priority), PriorityLabel(projectPriority), minutes)
}
