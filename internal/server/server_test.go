package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/waynehead99/SmartSchedular/internal/config"
	"github.com/waynehead99/SmartSchedular/internal/schedule"
	"github.com/waynehead99/SmartSchedular/internal/store"
)

var testNow = time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC) // a Monday

func newTestServer(t *testing.T) (*httptest.Server, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cal := schedule.DefaultCalendar(time.UTC)
	clock := func() time.Time { return testNow }
	engine := schedule.NewEngine(cal, db, db, schedule.WithClock(clock))
	committer := schedule.NewCommitter(cal, db, db, db, schedule.WithCommitClock(clock))

	srv := New(config.DefaultConfig().Server, engine, committer, db, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, db
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestSuggestEndToEnd(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/projects", map[string]any{"name": "Launch", "priority": 1})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d", resp.StatusCode)
	}
	proj := decode[store.Project](t, resp)

	resp = postJSON(t, ts.URL+"/api/tasks", map[string]any{
		"title":             "X",
		"priority":          1,
		"estimated_minutes": 30,
		"project_id":        proj.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d", resp.StatusCode)
	}

	// Existing commitment Monday 09:00–10:00; with the 15-minute buffer
	// the first suggestion must start 10:15.
	resp = postJSON(t, ts.URL+"/api/calendar", map[string]any{
		"title": "standup",
		"start": "2025-01-06T09:00:00Z",
		"end":   "2025-01-06T10:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create interval: %d", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/schedule/suggest")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggest: %d", resp.StatusCode)
	}
	result := decode[schedule.SuggestResult](t, resp)
	if len(result.Suggestions) == 0 {
		t.Fatal("expected suggestions")
	}
	want := time.Date(2025, time.January, 6, 10, 15, 0, 0, time.UTC)
	if !result.Suggestions[0].Start.Equal(want) {
		t.Errorf("first suggestion start = %s, want %s", result.Suggestions[0].Start, want)
	}
	if result.Suggestions[0].Reason == "" {
		t.Error("suggestion missing reason")
	}
}

func TestSuggestEmptyListIsNotNull(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/schedule/suggest")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggest: %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), `"suggestions":[]`) {
		t.Errorf("empty suggest body = %s", buf.String())
	}
}

func TestSuggestUnknownTaskIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/schedule/suggest?task_id=42")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestApproveThenConflict(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/tasks", map[string]any{
		"title":             "X",
		"estimated_minutes": 30,
	})
	task := decode[store.Task](t, resp)

	body := map[string]any{
		"task_id":          task.ID,
		"suggested_start":  "2025-01-06T10:15:00Z",
		"duration_minutes": 30,
	}
	resp = postJSON(t, ts.URL+"/api/schedule/approve", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("approve: %d", resp.StatusCode)
	}
	booked := decode[approveResponse](t, resp)
	if booked.ID == 0 || booked.TaskID != task.ID {
		t.Errorf("booked = %+v", booked)
	}
	if !booked.End.Equal(time.Date(2025, time.January, 6, 10, 45, 0, 0, time.UTC)) {
		t.Errorf("end = %s", booked.End)
	}

	resp = postJSON(t, ts.URL+"/api/schedule/approve", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second approve status = %d, want 409", resp.StatusCode)
	}
}

func TestApproveBadPayloads(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad start", map[string]any{"task_id": 1, "suggested_start": "monday-ish", "duration_minutes": 30}, http.StatusBadRequest},
		{"zero duration", map[string]any{"task_id": 1, "suggested_start": "2025-01-06T10:00:00Z", "duration_minutes": 0}, http.StatusBadRequest},
		{"unknown task", map[string]any{"task_id": 9, "suggested_start": "2025-01-06T10:00:00Z", "duration_minutes": 30}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/schedule/approve", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestProjectStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/projects", map[string]any{"name": "Launch"})
	proj := decode[store.Project](t, resp)
	for _, status := range []string{"Completed", "NotStarted"} {
		resp := postJSON(t, ts.URL+"/api/tasks", map[string]any{
			"title":             "t",
			"estimated_minutes": 30,
			"status":            status,
			"project_id":        proj.ID,
		})
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/project-status")
	if err != nil {
		t.Fatal(err)
	}
	rows := decode[[]store.ProjectProgress](t, resp)
	if len(rows) != 1 || rows[0].TotalTasks != 2 || rows[0].CompletedTasks != 1 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestColorForDeterministic(t *testing.T) {
	for id := 0; id < 50; id++ {
		a, b := ColorFor(id), ColorFor(id)
		if a != b {
			t.Fatalf("ColorFor(%d) unstable: %s vs %s", id, a, b)
		}
		if !strings.HasPrefix(a, "#") || len(a) != 7 {
			t.Fatalf("ColorFor(%d) = %q", id, a)
		}
	}
	if ColorFor(1) == ColorFor(2) && ColorFor(2) == ColorFor(3) && ColorFor(3) == ColorFor(4) {
		t.Error("palette assignment looks constant")
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}
}
