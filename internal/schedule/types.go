package schedule

import (
	"time"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusOnHold     Status = "OnHold"
	StatusCompleted  Status = "Completed"
)

// Priority values run 1 (High) to 3 (Low) for both projects and tasks.
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// PriorityLabel converts a numeric priority to its display name.
func PriorityLabel(p int) string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}

type Project struct {
	ID       int
	Name     string
	Priority int
}

// Task is a read-only scheduling candidate. ProjectID 0 means the task
// belongs to no project. DependsOn lists the ids of tasks that must reach
// StatusCompleted before this task becomes schedulable.
type Task struct {
	ID               int
	Title            string
	Priority         int
	EstimatedMinutes int
	Status           Status
	ProjectID        int
	DependsOn        []int
}

// Interval is a committed calendar booking, half-open: [Start, End).
type Interval struct {
	ID     int64
	TaskID int
	Title  string
	Start  time.Time
	End    time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(start, end time.Time) bool {
	return iv.Start.Before(end) && start.Before(iv.End)
}

// Suggestion is a proposed booking. It is ephemeral: it only becomes an
// Interval through the Committer.
type Suggestion struct {
	TaskID    int       `json:"task_id"`
	TaskTitle string    `json:"task_title"`
	Start     time.Time `json:"suggested_start"`
	Minutes   int       `json:"duration_minutes"`
	Score     int       `json:"priority_score"`
	Reason    string    `json:"reason"`
}

// End returns the exclusive end of the suggested interval.
func (s Suggestion) End() time.Time {
	return s.Start.Add(time.Duration(s.Minutes) * time.Minute)
}

// BusinessCalendar describes when slots may be proposed. Day boundaries are
// minutes from midnight in Location; the window is half-open, so a slot must
// end at or before DayEndMinute.
type BusinessCalendar struct {
	Weekdays      []time.Weekday
	DayStartMin   int
	DayEndMin     int
	BufferMinutes int
	HorizonDays   int
	StepMinutes   int
	SlotsPerTask  int
	Location      *time.Location
}

// DefaultCalendar is Mon–Fri 09:00–17:00 with a 15-minute buffer, a 14-day
// horizon, 15-minute scan steps and up to 3 slots per task.
func DefaultCalendar(loc *time.Location) BusinessCalendar {
	if loc == nil {
		loc = time.Local
	}
	return BusinessCalendar{
		Weekdays:      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		DayStartMin:   9 * 60,
		DayEndMin:     17 * 60,
		BufferMinutes: 15,
		HorizonDays:   14,
		StepMinutes:   15,
		SlotsPerTask:  3,
		Location:      loc,
	}
}

// Buffer returns the configured spacing as a duration.
func (c BusinessCalendar) Buffer() time.Duration {
	return time.Duration(c.BufferMinutes) * time.Minute
}

// WindowMinutes is the length of one business day's window.
func (c BusinessCalendar) WindowMinutes() int {
	return c.DayEndMin - c.DayStartMin
}

func (c BusinessCalendar) isWorkday(d time.Weekday) bool {
	for _, w := range c.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

func (c BusinessCalendar) dayStart(t time.Time) time.Time {
	y, m, d := t.In(c.Location).Date()
	return time.Date(y, m, d, c.DayStartMin/60, c.DayStartMin%60, 0, 0, c.Location)
}

func (c BusinessCalendar) dayEnd(t time.Time) time.Time {
	y, m, d := t.In(c.Location).Date()
	return time.Date(y, m, d, c.DayEndMin/60, c.DayEndMin%60, 0, 0, c.Location)
}
