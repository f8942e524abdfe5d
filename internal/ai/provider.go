package ai

import (
	"context"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

// Provider generates narrative reason text for a suggestion. Implementations
// are best-effort: any error leaves the suggestion's deterministic reason in
// place.
type Provider interface {
	Narrate(ctx context.Context, task schedule.Task, s schedule.Suggestion) (string, error)
}
