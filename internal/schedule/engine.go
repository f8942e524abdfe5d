package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TaskSource supplies the read-only task/project snapshot for one call.
type TaskSource interface {
	Snapshot(ctx context.Context) ([]Task, []Project, error)
}

// IntervalSource supplies committed intervals overlapping [from, to).
type IntervalSource interface {
	IntervalsBetween(ctx context.Context, from, to time.Time) ([]Interval, error)
}

// Narrator optionally replaces the deterministic reason with richer text.
// Implementations may fail or time out freely; the engine logs and keeps the
// fallback reason.
type Narrator interface {
	Narrate(ctx context.Context, task Task, s Suggestion) (string, error)
}

// Engine computes scheduling suggestions. It holds no mutable state; every
// call works from a fresh snapshot.
type Engine struct {
	cal       BusinessCalendar
	tasks     TaskSource
	intervals IntervalSource
	narrator  Narrator
	log       zerolog.Logger
	clock     func() time.Time
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithNarrator attaches an optional narrative generator.
func WithNarrator(n Narrator) EngineOption {
	return func(e *Engine) { e.narrator = n }
}

// WithClock fixes the engine's notion of "now" for tests.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func NewEngine(cal BusinessCalendar, tasks TaskSource, intervals IntervalSource, opts ...EngineOption) *Engine {
	e := &Engine{
		cal:       cal,
		tasks:     tasks,
		intervals: intervals,
		log:       zerolog.Nop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SuggestRequest narrows one suggest call. TaskID 0 means all eligible
// tasks; HorizonDays 0 means the calendar default.
type SuggestRequest struct {
	TaskID      int
	HorizonDays int
}

// SuggestResult is the ordered suggestion list plus per-task notes for
// candidates that produced nothing.
type SuggestResult struct {
	Suggestions []Suggestion `json:"suggestions"`
	Notes       []TaskNote   `json:"notes,omitempty"`
}

// Suggest computes conflict-free slot proposals for the requested task, or
// for every eligible task when none is named. An empty result is valid;
// only an unknown explicit task id is an error.
func (e *Engine) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	now := e.clock()
	cal := e.cal
	if req.HorizonDays > 0 {
		cal.HorizonDays = req.HorizonDays
	}

	tasks, projects, err := e.tasks.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading task snapshot: %w", err)
	}
	projByID := make(map[int]Project, len(projects))
	for _, p := range projects {
		projByID[p.ID] = p
	}

	candidates, notes, err := e.selectCandidates(req, tasks, projByID)
	if err != nil {
		return nil, err
	}

	horizon := now.Add(time.Duration(cal.HorizonDays) * 24 * time.Hour)
	committed, err := e.intervals.IntervalsBetween(ctx, now.Add(-cal.Buffer()), horizon.Add(cal.Buffer()))
	if err != nil {
		return nil, fmt.Errorf("loading committed intervals: %w", err)
	}
	avail := NewAvailability(committed)

	result := &SuggestResult{Notes: notes}
	for _, c := range candidates {
		starts, err := FindSlots(cal, avail, now, c.Task.EstimatedMinutes, cal.SlotsPerTask)
		if err != nil {
			result.Notes = append(result.Notes, TaskNote{
				TaskID:    c.Task.ID,
				TaskTitle: c.Task.Title,
				Condition: NoteUnschedulable,
				Detail:    err.Error(),
			})
			continue
		}
		if len(starts) == 0 {
			result.Notes = append(result.Notes, TaskNote{
				TaskID:    c.Task.ID,
				TaskTitle: c.Task.Title,
				Condition: NoteUnschedulable,
				Detail:    fmt.Sprintf("no free slot within %d days", cal.HorizonDays),
			})
			continue
		}

		pp := neutralProjectPriority
		if p, ok := projByID[c.Task.ProjectID]; ok {
			pp = p.Priority
		}
		for _, start := range starts {
			result.Suggestions = append(result.Suggestions, Suggestion{
				TaskID:    c.Task.ID,
				TaskTitle: c.Task.Title,
				Start:     start,
				Minutes:   c.Task.EstimatedMinutes,
				Score:     c.Score,
				Reason:    DeterministicReason(c.Task, pp, c.Task.EstimatedMinutes),
			})
		}
	}

	Rank(result.Suggestions)
	e.narrate(ctx, result, tasks)

	e.log.Debug().
		Int("candidates", len(candidates)).
		Int("suggestions", len(result.Suggestions)).
		Int("notes", len(result.Notes)).
		Msg("suggest completed")
	return result, nil
}

// selectCandidates resolves the candidate pool: the one named task (which
// may be InProgress — naming it is an explicit re-scheduling request) or
// every eligible task in priority order.
func (e *Engine) selectCandidates(req SuggestRequest, tasks []Task, projects map[int]Project) ([]Candidate, []TaskNote, error) {
	if req.TaskID == 0 {
		return Prioritize(tasks, projects), nil, nil
	}

	byID := make(map[int]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	t, ok := byID[req.TaskID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: id %d", ErrInvalidTask, req.TaskID)
	}

	if !eligibleStatus(t.Status, true) {
		return nil, []TaskNote{{
			TaskID:    t.ID,
			TaskTitle: t.Title,
			Condition: NoteIneligibleStatus,
			Detail:    fmt.Sprintf("status %s is not schedulable", t.Status),
		}}, nil
	}
	if !DependenciesReady(t, byID) {
		if onOwnChain(t, byID) {
			e.log.Warn().Int("task_id", t.ID).Msg("dependency cycle detected; task can never become ready")
		}
		return nil, []TaskNote{{
			TaskID:    t.ID,
			TaskTitle: t.Title,
			Condition: NoteDependencyNotSatisfied,
			Detail:    blockingDependency(t, byID),
		}}, nil
	}
	return []Candidate{{Task: t, Score: ScoreTask(t, projects)}}, nil, nil
}

// onOwnChain detects the cheap cycle shapes (self-reference and mutual
// pairs) so they can be surfaced as data-integrity warnings. Longer cycles
// still behave correctly — their members just never become ready.
func onOwnChain(t Task, byID map[int]Task) bool {
	for _, dep := range t.DependsOn {
		if dep == t.ID {
			return true
		}
		d, ok := byID[dep]
		if !ok {
			continue
		}
		for _, dd := range d.DependsOn {
			if dd == t.ID {
				return true
			}
		}
	}
	return false
}

// narrate asks the optional narrator for richer reason text. Failures are
// logged and swallowed: the deterministic reason is always already present.
func (e *Engine) narrate(ctx context.Context, result *SuggestResult, tasks []Task) {
	if e.narrator == nil {
		return
	}
	byID := make(map[int]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for i := range result.Suggestions {
		s := result.Suggestions[i]
		text, err := e.narrator.Narrate(ctx, byID[s.TaskID], s)
		if err != nil {
			e.log.Warn().Err(err).Int("task_id", s.TaskID).Msg("narrative unavailable, keeping deterministic reason")
			continue
		}
		if text != "" {
			result.Suggestions[i].Reason = text
		}
	}
}
