package ai

import (
	"fmt"
	"time"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

func buildSystemPrompt() string {
	return `You are a scheduling assistant. You are given a task and a time slot that has already been chosen by a deterministic scheduler; the slot is final. Write a short, friendly justification for why the slot suits the task. Do not propose a different time. Return valid JSON matching the required schema.`
}

func buildUserPrompt(task schedule.Task, s schedule.Suggestion) string {
	return fmt.Sprintf(
		"Task: %s (priority %s, estimated %d minutes, status %s)\nChosen slot: %s for %d minutes",
		task.Title,
		schedule.PriorityLabel(task.Priority),
		task.EstimatedMinutes,
		task.Status,
		s.Start.Format(time.RFC1123),
		s.Minutes,
	)
}
