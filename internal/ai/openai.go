package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

// narrativeSchema is reflected once from the Narrative type so the model is
// held to the exact response shape.
var narrativeSchema = func() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&Narrative{})
}()

// OpenAI asks a chat model for narrative reason text using structured
// output.
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAI{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAI) Narrate(ctx context.Context, task schedule.Task, s schedule.Suggestion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildSystemPrompt()),
			openai.UserMessage(buildUserPrompt(task, s)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "narrative",
					Description: openai.String("Justification for a chosen time slot"),
					Schema:      narrativeSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("requesting narrative: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}

	var narrative Narrative
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &narrative); err != nil {
		return "", fmt.Errorf("parsing narrative: %w", err)
	}
	return narrative.Reason, nil
}
