package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mondayMorning is a Monday so weekday math in the tests is predictable.
var mondayMorning = time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)

func testCalendar() BusinessCalendar {
	return DefaultCalendar(time.UTC)
}

func at(day int, hour, min int) time.Time {
	return time.Date(2025, time.January, day, hour, min, 0, 0, time.UTC)
}

// memStore is an in-memory snapshot + interval store used as every engine
// collaborator in these tests. Book rejects overlapping inserts the way the
// sqlite store does.
type memStore struct {
	mu        sync.Mutex
	tasks     []Task
	projects  []Project
	intervals []Interval
	nextID    int64
}

func (m *memStore) Snapshot(ctx context.Context) ([]Task, []Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Task(nil), m.tasks...), append([]Project(nil), m.projects...), nil
}

func (m *memStore) IntervalsBetween(ctx context.Context, from, to time.Time) ([]Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Interval
	for _, iv := range m.intervals {
		if iv.Overlaps(from, to) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *memStore) Book(ctx context.Context, iv Interval) (Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.intervals {
		if existing.Overlaps(iv.Start, iv.End) {
			return Interval{}, ErrConflict
		}
	}
	m.nextID++
	iv.ID = m.nextID
	m.intervals = append(m.intervals, iv)
	return iv, nil
}

func TestAvailabilityFree(t *testing.T) {
	busy := []Interval{{Start: at(6, 9, 0), End: at(6, 10, 0)}}
	avail := NewAvailability(busy)
	buffer := 15 * time.Minute
	now := mondayMorning

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside busy", at(6, 9, 15), at(6, 9, 45), false},
		{"touching buffer before", at(6, 8, 30), at(6, 8, 45), false},
		{"clear before buffer", at(6, 8, 15), at(6, 8, 30), true},
		{"touching buffer after", at(6, 10, 0), at(6, 10, 30), false},
		{"clear after buffer", at(6, 10, 15), at(6, 10, 45), true},
		{"before now", at(6, 7, 0), at(6, 7, 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := avail.Free(tt.start, tt.end, buffer, now); got != tt.want {
				t.Errorf("Free(%s, %s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestPrioritizeOrdering(t *testing.T) {
	projects := map[int]Project{
		1: {ID: 1, Name: "Launch", Priority: PriorityHigh},
		2: {ID: 2, Name: "Chores", Priority: PriorityLow},
	}
	tasks := []Task{
		{ID: 1, Title: "low project, high task", Priority: PriorityHigh, Status: StatusNotStarted, ProjectID: 2},
		{ID: 2, Title: "high project, low task", Priority: PriorityLow, Status: StatusNotStarted, ProjectID: 1},
		{ID: 3, Title: "no project", Priority: PriorityHigh, Status: StatusOnHold},
		{ID: 4, Title: "in progress", Priority: PriorityHigh, Status: StatusInProgress, ProjectID: 1},
		{ID: 5, Title: "done", Priority: PriorityHigh, Status: StatusCompleted, ProjectID: 1},
	}

	got := Prioritize(tasks, projects)
	wantIDs := []int{2, 3, 1} // scores 13, 21, 31
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d candidates, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].Task.ID != id {
			t.Errorf("candidate %d = task %d (score %d), want task %d", i, got[i].Task.ID, got[i].Score, id)
		}
	}
	if got[0].Score != 13 || got[1].Score != 21 || got[2].Score != 31 {
		t.Errorf("unexpected scores: %d, %d, %d", got[0].Score, got[1].Score, got[2].Score)
	}
}

func TestDependencyGating(t *testing.T) {
	tasks := []Task{
		{ID: 1, Title: "W", Status: StatusInProgress, Priority: PriorityMedium},
		{ID: 2, Title: "Z", Status: StatusNotStarted, Priority: PriorityHigh, DependsOn: []int{1}},
	}
	byID := map[int]Task{1: tasks[0], 2: tasks[1]}

	if DependenciesReady(tasks[1], byID) {
		t.Error("Z should not be ready while W is InProgress")
	}
	if got := Prioritize(tasks, nil); len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}

	byID[1] = Task{ID: 1, Title: "W", Status: StatusCompleted}
	if !DependenciesReady(tasks[1], byID) {
		t.Error("Z should be ready once W completes")
	}
}

func TestFindSlotsBufferScenario(t *testing.T) {
	// Monday 08:00, one 09:00–10:00 commitment, 15-minute buffer: the
	// first 30-minute slot must be 10:15 (nothing overlapping
	// [08:45, 10:15) is free).
	cal := testCalendar()
	avail := NewAvailability([]Interval{{Start: at(6, 9, 0), End: at(6, 10, 0)}})

	starts, err := FindSlots(cal, avail, mondayMorning, 30, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(starts) != 1 {
		t.Fatalf("got %d slots, want 1", len(starts))
	}
	if want := at(6, 10, 15); !starts[0].Equal(want) {
		t.Errorf("first slot = %s, want %s", starts[0], want)
	}
}

func TestFindSlotsStayInsideBusinessWindow(t *testing.T) {
	cal := testCalendar()
	avail := NewAvailability(nil)

	// Friday 16:00: a 120-minute task cannot fit before 17:00, so the
	// slot must move to Monday 09:00.
	friday := time.Date(2025, time.January, 10, 16, 0, 0, 0, time.UTC)
	starts, err := FindSlots(cal, avail, friday, 120, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, time.January, 13, 9, 0, 0, 0, time.UTC); !starts[0].Equal(want) {
		t.Errorf("slot = %s, want %s", starts[0], want)
	}
}

func TestFindSlotsWeekendSkipped(t *testing.T) {
	cal := testCalendar()
	avail := NewAvailability(nil)

	saturday := time.Date(2025, time.January, 11, 10, 0, 0, 0, time.UTC)
	starts, err := FindSlots(cal, avail, saturday, 60, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range starts {
		wd := s.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Errorf("slot %s falls on a weekend", s)
		}
	}
	if want := time.Date(2025, time.January, 13, 9, 0, 0, 0, time.UTC); !starts[0].Equal(want) {
		t.Errorf("first slot = %s, want %s", starts[0], want)
	}
}

func TestFindSlotsUnschedulableDuration(t *testing.T) {
	cal := testCalendar()
	_, err := FindSlots(cal, NewAvailability(nil), mondayMorning, 600, 1)
	if !errors.Is(err, ErrUnschedulable) {
		t.Errorf("600-minute task: err = %v, want ErrUnschedulable", err)
	}
}

func TestFindSlotsHorizonExhausted(t *testing.T) {
	cal := testCalendar()
	cal.HorizonDays = 2
	// Block the whole scan window.
	busy := []Interval{{Start: at(6, 0, 0), End: at(9, 0, 0)}}

	starts, err := FindSlots(cal, NewAvailability(busy), mondayMorning, 60, 1)
	if err != nil {
		t.Fatalf("horizon exhaustion must not be an error, got %v", err)
	}
	if len(starts) != 0 {
		t.Errorf("got %d slots, want none", len(starts))
	}
}

func TestFindSlotsMultipleCandidatesSpaced(t *testing.T) {
	cal := testCalendar()
	starts, err := FindSlots(cal, NewAvailability(nil), mondayMorning, 60, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(starts) != 3 {
		t.Fatalf("got %d slots, want 3", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1].Add(60 * time.Minute))
		if gap < cal.Buffer() {
			t.Errorf("slots %d and %d only %s apart, want >= buffer", i-1, i, gap)
		}
	}
}

func TestSuggestOrderingAndInvariants(t *testing.T) {
	store := &memStore{
		projects: []Project{{ID: 1, Name: "Launch", Priority: PriorityHigh}},
		tasks: []Task{
			{ID: 1, Title: "A", Priority: PriorityHigh, EstimatedMinutes: 30, Status: StatusNotStarted, ProjectID: 1}, // score 11
			{ID: 2, Title: "B", Priority: PriorityLow, EstimatedMinutes: 45, Status: StatusNotStarted},               // score 23
		},
		intervals: []Interval{{ID: 1, Start: at(6, 9, 0), End: at(6, 10, 0)}},
	}
	cal := testCalendar()
	eng := NewEngine(cal, store, store, WithClock(func() time.Time { return mondayMorning }))

	res, err := eng.Suggest(context.Background(), SuggestRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Suggestions) == 0 {
		t.Fatal("expected suggestions")
	}

	seenB := false
	for _, s := range res.Suggestions {
		if s.TaskID == 2 {
			seenB = true
		}
		if s.TaskID == 1 && seenB {
			t.Error("task A (score 11) ranked after task B (score 23)")
		}

		local := s.Start.In(cal.Location)
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("suggestion on weekend: %s", s.Start)
		}
		mins := local.Hour()*60 + local.Minute()
		if mins < cal.DayStartMin || mins+s.Minutes > cal.DayEndMin {
			t.Errorf("suggestion outside business window: %s + %dmin", s.Start, s.Minutes)
		}
		for _, iv := range store.intervals {
			if iv.Overlaps(s.Start.Add(-cal.Buffer()), s.End().Add(cal.Buffer())) {
				t.Errorf("suggestion %s overlaps committed interval %d (with buffer)", s.Start, iv.ID)
			}
		}
	}

	// Idempotence: unchanged inputs, identical ordered output.
	again, err := eng.Suggest(context.Background(), SuggestRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Suggestions) != len(res.Suggestions) {
		t.Fatalf("second call returned %d suggestions, first %d", len(again.Suggestions), len(res.Suggestions))
	}
	for i := range res.Suggestions {
		if res.Suggestions[i] != again.Suggestions[i] {
			t.Errorf("suggestion %d differs between identical calls", i)
		}
	}
}

func TestSuggestUnknownTask(t *testing.T) {
	store := &memStore{}
	eng := NewEngine(testCalendar(), store, store, WithClock(func() time.Time { return mondayMorning }))

	_, err := eng.Suggest(context.Background(), SuggestRequest{TaskID: 99})
	if !errors.Is(err, ErrInvalidTask) {
		t.Errorf("err = %v, want ErrInvalidTask", err)
	}
}

func TestSuggestExplicitBlockedTaskGetsNote(t *testing.T) {
	store := &memStore{
		tasks: []Task{
			{ID: 1, Title: "W", Status: StatusInProgress, Priority: PriorityMedium, EstimatedMinutes: 30},
			{ID: 2, Title: "Z", Status: StatusNotStarted, Priority: PriorityHigh, EstimatedMinutes: 30, DependsOn: []int{1}},
		},
	}
	eng := NewEngine(testCalendar(), store, store, WithClock(func() time.Time { return mondayMorning }))

	res, err := eng.Suggest(context.Background(), SuggestRequest{TaskID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Suggestions) != 0 {
		t.Errorf("blocked task produced %d suggestions", len(res.Suggestions))
	}
	if len(res.Notes) != 1 || res.Notes[0].Condition != NoteDependencyNotSatisfied {
		t.Fatalf("notes = %+v, want one dependency_not_satisfied", res.Notes)
	}

	// Batch calls silently omit the blocked task.
	batch, err := eng.Suggest(context.Background(), SuggestRequest{})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range batch.Suggestions {
		if s.TaskID == 2 {
			t.Error("blocked task appeared in batch suggestions")
		}
	}
}

func TestSuggestExplicitInProgressTaskAllowed(t *testing.T) {
	store := &memStore{
		tasks: []Task{{ID: 1, Title: "W", Status: StatusInProgress, Priority: PriorityMedium, EstimatedMinutes: 30}},
	}
	eng := NewEngine(testCalendar(), store, store, WithClock(func() time.Time { return mondayMorning }))

	res, err := eng.Suggest(context.Background(), SuggestRequest{TaskID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Suggestions) == 0 {
		t.Error("explicitly requested InProgress task produced no suggestions")
	}
}

type failingNarrator struct{}

func (failingNarrator) Narrate(ctx context.Context, task Task, s Suggestion) (string, error) {
	return "", errors.New("model unavailable")
}

func TestNarratorFailureKeepsFallbackReason(t *testing.T) {
	store := &memStore{
		tasks: []Task{{ID: 1, Title: "A", Priority: PriorityHigh, EstimatedMinutes: 30, Status: StatusNotStarted}},
	}
	eng := NewEngine(testCalendar(), store, store,
		WithClock(func() time.Time { return mondayMorning }),
		WithNarrator(failingNarrator{}))

	res, err := eng.Suggest(context.Background(), SuggestRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Suggestions) == 0 {
		t.Fatal("narrator failure must not block suggestions")
	}
	want := DeterministicReason(store.tasks[0], neutralProjectPriority, 30)
	if res.Suggestions[0].Reason != want {
		t.Errorf("reason = %q, want deterministic fallback %q", res.Suggestions[0].Reason, want)
	}
}

func TestApproveHappyPathAndStaleConflict(t *testing.T) {
	store := &memStore{
		tasks: []Task{{ID: 1, Title: "A", Priority: PriorityHigh, EstimatedMinutes: 30, Status: StatusNotStarted}},
	}
	com := NewCommitter(testCalendar(), store, store, store,
		WithCommitClock(func() time.Time { return mondayMorning }))

	req := ApproveRequest{TaskID: 1, Start: at(6, 10, 15), Minutes: 30}
	booked, err := com.Approve(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if booked.ID == 0 || !booked.End.Equal(at(6, 10, 45)) {
		t.Errorf("booked = %+v", booked)
	}

	// Approving the same (now stale) suggestion again must conflict.
	if _, err := com.Approve(context.Background(), req); !errors.Is(err, ErrConflict) {
		t.Errorf("second approve err = %v, want ErrConflict", err)
	}
}

func TestApproveUnknownTask(t *testing.T) {
	store := &memStore{}
	com := NewCommitter(testCalendar(), store, store, store,
		WithCommitClock(func() time.Time { return mondayMorning }))

	_, err := com.Approve(context.Background(), ApproveRequest{TaskID: 7, Start: at(6, 10, 0), Minutes: 30})
	if !errors.Is(err, ErrInvalidTask) {
		t.Errorf("err = %v, want ErrInvalidTask", err)
	}
}

func TestConcurrentApprovesExactlyOneWins(t *testing.T) {
	store := &memStore{
		tasks: []Task{
			{ID: 1, Title: "A", Priority: PriorityHigh, EstimatedMinutes: 60, Status: StatusNotStarted},
			{ID: 2, Title: "B", Priority: PriorityLow, EstimatedMinutes: 60, Status: StatusNotStarted},
		},
	}
	com := NewCommitter(testCalendar(), store, store, store,
		WithCommitClock(func() time.Time { return mondayMorning }))

	reqs := []ApproveRequest{
		{TaskID: 1, Start: at(6, 11, 0), Minutes: 60},
		{TaskID: 2, Start: at(6, 11, 30), Minutes: 60}, // overlaps the first
	}

	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req ApproveRequest) {
			defer wg.Done()
			_, errs[i] = com.Approve(context.Background(), req)
		}(i, req)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Errorf("wins = %d, conflicts = %d; want exactly one of each", wins, conflicts)
	}
	if len(store.intervals) != 1 {
		t.Errorf("store holds %d intervals, want 1", len(store.intervals))
	}
}
