package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// IntervalBooker persists one new committed interval transactionally. The
// store must enforce range uniqueness itself (reject overlapping inserts
// inside the same transaction) and return ErrConflict, possibly wrapped,
// when a racer got there first.
type IntervalBooker interface {
	Book(ctx context.Context, iv Interval) (Interval, error)
}

// Committer turns an approved suggestion into a durable interval. All
// mutation of committed intervals goes through Approve; nothing else in the
// engine writes.
type Committer struct {
	cal       BusinessCalendar
	tasks     TaskSource
	intervals IntervalSource
	booker    IntervalBooker
	log       zerolog.Logger
	clock     func() time.Time

	// Serializes in-process approvals so the revalidate-then-book pair
	// is atomic even before the store's own transaction kicks in.
	mu sync.Mutex
}

// CommitterOption customizes committer construction.
type CommitterOption func(*Committer)

// WithCommitClock fixes the committer's notion of "now" for tests.
func WithCommitClock(clock func() time.Time) CommitterOption {
	return func(c *Committer) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCommitLogger sets the committer logger.
func WithCommitLogger(log zerolog.Logger) CommitterOption {
	return func(c *Committer) { c.log = log }
}

func NewCommitter(cal BusinessCalendar, tasks TaskSource, intervals IntervalSource, booker IntervalBooker, opts ...CommitterOption) *Committer {
	c := &Committer{
		cal:       cal,
		tasks:     tasks,
		intervals: intervals,
		booker:    booker,
		log:       zerolog.Nop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ApproveRequest identifies the suggestion being committed.
type ApproveRequest struct {
	TaskID  int
	Start   time.Time
	Minutes int
}

// Approve revalidates the suggested interval against the current committed
// set and books it in one transaction. A suggestion that is no longer free
// fails with ErrConflict and nothing is written; the caller should
// re-request suggestions rather than retry.
func (c *Committer) Approve(ctx context.Context, req ApproveRequest) (Interval, error) {
	if req.Minutes <= 0 {
		return Interval{}, fmt.Errorf("invalid duration: %d minutes", req.Minutes)
	}
	if req.Start.IsZero() {
		return Interval{}, errors.New("missing suggested start")
	}

	tasks, _, err := c.tasks.Snapshot(ctx)
	if err != nil {
		return Interval{}, fmt.Errorf("loading task snapshot: %w", err)
	}
	var task *Task
	for i := range tasks {
		if tasks[i].ID == req.TaskID {
			task = &tasks[i]
			break
		}
	}
	if task == nil {
		return Interval{}, fmt.Errorf("%w: id %d", ErrInvalidTask, req.TaskID)
	}

	end := req.Start.Add(time.Duration(req.Minutes) * time.Minute)

	c.mu.Lock()
	defer c.mu.Unlock()

	// The suggestion may be stale: re-check against intervals committed
	// since it was computed, honoring the same buffer it was found with.
	committed, err := c.intervals.IntervalsBetween(ctx,
		req.Start.Add(-c.cal.Buffer()), end.Add(c.cal.Buffer()))
	if err != nil {
		return Interval{}, fmt.Errorf("loading committed intervals: %w", err)
	}
	if !NewAvailability(committed).Free(req.Start, end, c.cal.Buffer(), c.clock()) {
		c.log.Info().
			Int("task_id", req.TaskID).
			Time("start", req.Start).
			Msg("approval rejected, interval taken")
		return Interval{}, fmt.Errorf("%w: %s–%s", ErrConflict,
			req.Start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	booked, err := c.booker.Book(ctx, Interval{
		TaskID: task.ID,
		Title:  task.Title,
		Start:  req.Start,
		End:    end,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return Interval{}, err
		}
		return Interval{}, fmt.Errorf("booking interval: %w", err)
	}

	c.log.Info().
		Int("task_id", task.ID).
		Int64("interval_id", booked.ID).
		Time("start", booked.Start).
		Time("end", booked.End).
		Msg("suggestion approved")
	return booked, nil
}
