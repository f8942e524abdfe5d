package schedule

import (
	"fmt"
	"time"
)

// FindSlots scans the business calendar for up to k free slots of the given
// length, earliest first. The scan starts at max(now, the start of the
// current or next business day) and is bounded by the calendar horizon; an
// exhausted horizon yields an empty (not nil error) result so batch callers
// can report it per task.
//
// A duration longer than one business day's window can never fit in a single
// slot and returns ErrUnschedulable immediately.
func FindSlots(cal BusinessCalendar, avail *Availability, now time.Time, minutes, k int) ([]time.Time, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: duration %d minutes", ErrUnschedulable, minutes)
	}
	if minutes > cal.WindowMinutes() {
		return nil, fmt.Errorf("%w: %d-minute duration exceeds the %d-minute business day",
			ErrUnschedulable, minutes, cal.WindowMinutes())
	}
	if k <= 0 {
		k = 1
	}

	duration := time.Duration(minutes) * time.Minute
	step := time.Duration(cal.StepMinutes) * time.Minute
	if step <= 0 {
		step = 15 * time.Minute
	}
	horizon := now.Add(time.Duration(cal.HorizonDays) * 24 * time.Hour)

	var slots []time.Time
	cursor := cal.alignToStep(now)

	for cursor.Before(horizon) {
		// Jump to 09:00 of the next workday whenever the cursor sits
		// outside a business window or the slot would bleed past the
		// end of the day.
		if !cal.isWorkday(cursor.In(cal.Location).Weekday()) || !cursor.Before(cal.dayEnd(cursor)) {
			cursor = cal.nextWorkdayStart(cursor)
			continue
		}
		if cursor.Before(cal.dayStart(cursor)) {
			cursor = cal.dayStart(cursor)
			continue
		}
		end := cursor.Add(duration)
		if end.After(cal.dayEnd(cursor)) {
			cursor = cal.nextWorkdayStart(cursor)
			continue
		}

		if avail.Free(cursor, end, cal.Buffer(), now) {
			slots = append(slots, cursor)
			if len(slots) >= k {
				return slots, nil
			}
			cursor = cal.alignToStep(end.Add(cal.Buffer()))
			continue
		}

		next := cursor.Add(step)
		// Skip past whatever blocked the candidate instead of probing
		// every step inside it.
		if busyEnd := avail.NextBusyEnd(cursor, end, cal.Buffer()); !busyEnd.IsZero() {
			if jump := cal.alignToStep(busyEnd.Add(cal.Buffer())); jump.After(next) {
				next = jump
			}
		}
		cursor = next
	}

	return slots, nil
}

// alignToStep rounds t up to the next multiple of StepMinutes within its
// day, so slot starts land on the scan grid regardless of where "now" falls.
func (c BusinessCalendar) alignToStep(t time.Time) time.Time {
	step := c.StepMinutes
	if step <= 0 {
		step = 15
	}
	local := t.In(c.Location)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, c.Location)
	elapsed := local.Sub(midnight)
	stepDur := time.Duration(step) * time.Minute
	aligned := (elapsed + stepDur - 1) / stepDur * stepDur
	return midnight.Add(aligned)
}

// nextWorkdayStart returns 09:00 (DayStartMin) on the first workday strictly
// after t's date.
func (c BusinessCalendar) nextWorkdayStart(t time.Time) time.Time {
	day := c.dayStart(t)
	for {
		day = day.AddDate(0, 0, 1)
		if c.isWorkday(day.Weekday()) {
			return day
		}
	}
}
