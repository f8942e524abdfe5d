package schedule

import "errors"

var (
	// ErrInvalidTask means the referenced task id is not in the snapshot.
	ErrInvalidTask = errors.New("task not found")

	// ErrConflict means the chosen interval was booked by another commit
	// between suggestion and approval. Callers should re-request
	// suggestions instead of retrying.
	ErrConflict = errors.New("interval no longer free")

	// ErrUnschedulable means no slot can satisfy the task: its duration
	// exceeds one business day's window, or the scan horizon was
	// exhausted without a free slot.
	ErrUnschedulable = errors.New("task cannot be scheduled")
)

// Note conditions for tasks omitted from a suggestion batch.
const (
	NoteDependencyNotSatisfied = "dependency_not_satisfied"
	NoteUnschedulable          = "unschedulable"
	NoteIneligibleStatus       = "ineligible_status"
)

// TaskNote explains why a task produced no suggestions. Notes are advisory:
// an omitted task never fails the batch.
type TaskNote struct {
	TaskID    int    `json:"task_id"`
	TaskTitle string `json:"task_title"`
	Condition string `json:"condition"`
	Detail    string `json:"detail"`
}
