// Package answer renders a ranked candidate list into a natural-language
// recommendation via an OpenAI-compatible chat model. When no model is
// configured the service degrades to a deterministic summary, so retrieval
// keeps working without an LLM.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/staffdex/staffdex/internal/domain"
)

// ChatModel is the consumer-side slice of llms.Model the service needs.
type ChatModel interface {
	GenerateContent(
		ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption,
	) (*llms.ContentResponse, error)
}

// Service generates answers from retrieval output. It consumes ranked items
// only and never reaches back into the retrieval pipeline.
type Service struct {
	model  ChatModel
	logger *zap.Logger
}

// New creates an answer service. A nil model disables generation and switches
// to the deterministic fallback rendering.
func New(model ChatModel, logger *zap.Logger) *Service {
	return &Service{model: model, logger: logger}
}

// Enabled reports whether a chat model is configured.
func (s *Service) Enabled() bool { return s.model != nil }

// Generate produces a prose recommendation for the ranked candidates.
func (s *Service) Generate(ctx context.Context, query string, items []domain.RetrievedItem) (string, error) {
	if s.model == nil {
		return fallbackAnswer(items), nil
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemStyle)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildPrompt(query, items))},
		},
	}

	resp, err := s.model.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w: %w", domain.ErrAnswerProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion: %w", domain.ErrAnswerProvider)
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		s.logger.Warn("answer model returned blank text, using fallback",
			zap.Int("candidates", len(items)))
		return fallbackAnswer(items), nil
	}
	return text, nil
}

// fallbackAnswer renders candidates as bullet points when no model is
// available.
func fallbackAnswer(items []domain.RetrievedItem) string {
	if len(items) == 0 {
		return "No candidates found."
	}

	var b strings.Builder
	b.WriteString("Candidates:\n")
	for _, item := range items {
		e := item.Employee
		fmt.Fprintf(&b, "- %s (%d yrs) — skills: %s; projects: %s; availability: %s\n",
			e.Name, e.ExperienceYears,
			strings.Join(e.Skills, ", "),
			strings.Join(e.Projects, ", "),
			e.Availability,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
