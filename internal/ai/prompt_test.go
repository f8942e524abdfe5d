package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

func TestUserPromptMentionsTaskAndSlot(t *testing.T) {
	task := schedule.Task{
		Title:            "Write launch notes",
		Priority:         schedule.PriorityHigh,
		EstimatedMinutes: 45,
		Status:           schedule.StatusNotStarted,
	}
	s := schedule.Suggestion{
		Start:   time.Date(2025, time.January, 6, 10, 15, 0, 0, time.UTC),
		Minutes: 45,
	}

	got := buildUserPrompt(task, s)
	for _, want := range []string{"Write launch notes", "High", "45"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q: %s", want, got)
		}
	}
}

func TestNarrativeSchemaReflected(t *testing.T) {
	if narrativeSchema == nil {
		t.Fatal("schema not built")
	}
}
