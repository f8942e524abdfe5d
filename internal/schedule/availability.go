package schedule

import (
	"sort"
	"time"
)

// Availability answers free/busy queries against a snapshot of committed
// intervals. It holds no other state; staleness is tolerated because the
// Committer revalidates against a fresh snapshot at approval time.
type Availability struct {
	busy []Interval
}

// NewAvailability copies and sorts the given intervals by start time.
func NewAvailability(intervals []Interval) *Availability {
	busy := make([]Interval, len(intervals))
	copy(busy, intervals)
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return &Availability{busy: busy}
}

// Free reports whether [start, end), expanded by buffer on both sides, is
// clear of every committed interval. Candidates starting before now are
// never free: the past is a hard lower bound.
func (a *Availability) Free(start, end time.Time, buffer time.Duration, now time.Time) bool {
	if start.Before(now) {
		return false
	}
	bufStart := start.Add(-buffer)
	bufEnd := end.Add(buffer)
	for _, iv := range a.busy {
		if !iv.Start.Before(bufEnd) {
			break // sorted by start, nothing later can overlap
		}
		if iv.Overlaps(bufStart, bufEnd) {
			return false
		}
	}
	return true
}

// NextBusyEnd returns the latest end time among intervals overlapping
// [start, end) expanded by buffer, or the zero time when the range is free.
// The slot scan uses it to jump past a blocked region instead of probing
// every step inside it.
func (a *Availability) NextBusyEnd(start, end time.Time, buffer time.Duration) time.Time {
	bufStart := start.Add(-buffer)
	bufEnd := end.Add(buffer)
	var latest time.Time
	for _, iv := range a.busy {
		if !iv.Start.Before(bufEnd) {
			break
		}
		if iv.Overlaps(bufStart, bufEnd) && iv.End.After(latest) {
			latest = iv.End
		}
	}
	return latest
}
