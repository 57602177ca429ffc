package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"recbox/logger"
	"recbox/model"

	"github.com/sashabaranov/go-openai"
)

const extractSystemPrompt = `You extract actionable points from meeting transcripts.

RULES:
- Return ONLY a JSON array, no prose and no markdown fences.
- Each element: {"title","description","priority","category","dueDate","assignee"}.
- priority is one of: low, medium, high, urgent.
- dueDate is free-form text taken from the transcript, or empty when none was mentioned.
- Do not invent tasks that were not discussed.`

// openaiProvider extracts actionable points with a chat-completion model.
type openaiProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a Provider backed by the OpenAI API.
func NewOpenAIProvider(apiKey string) Provider {
	return &openaiProvider{client: openai.NewClient(apiKey)}
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Extract(ctx context.Context, transcription, meetingContext string) ([]model.ActionablePoint, error) {
	userPrompt := fmt.Sprintf("Meeting context: %s\n\nTranscript:\n%s\n\nExtract the actionable points.",
		meetingContext, transcription)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("openai extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai extraction returned no choices")
	}

	points, err := ParsePoints(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	logger.Info("actionable points extracted",
		logger.String("provider", "openai"),
		logger.Int("count", len(points)))
	return sanitize(points), nil
}

// ParsePoints decodes a model reply into actionable points, tolerating
// markdown code fences the model sometimes adds despite instructions.
func ParsePoints(reply string) ([]model.ActionablePoint, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var points []model.ActionablePoint
	if err := json.Unmarshal([]byte(cleaned), &points); err != nil {
		return nil, fmt.Errorf("failed to parse extraction reply: %w", err)
	}
	return points, nil
}
