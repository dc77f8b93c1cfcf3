package insight

import (
	"context"
	"strings"

	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/logger"
)

const screeningSystemPrompt = "You are a relevance screener for a meeting AI assistant. " +
	"Analyze the transcript segment and determine if it contains " +
	"actionable information (decisions, tasks, risks, ideas). " +
	`Respond with JSON: {"relevant": true/false, "reason": "..."}`

// Verdict is the outcome of screening a transcript segment.
type Verdict struct {
	Relevant   bool   `json:"relevant"`
	Reason     string `json:"reason"`
	TextLength int    `json:"text_length"`
}

// Screener filters transcript segments for relevance using the cheapest
// model tier.
type Screener struct {
	provider llm.Provider
	model    string
	log      *logger.Logger
}

// NewScreener creates a screener bound to a model.
func NewScreener(provider llm.Provider, model string) *Screener {
	return &Screener{
		provider: provider,
		model:    model,
		log:      logger.WithComponent("screener"),
	}
}

// Screen classifies a transcript segment. Failures never propagate: a
// provider error screens as not relevant, an unparseable response screens
// as relevant (better to over-analyze than to drop a decision).
func (s *Screener) Screen(ctx context.Context, text string) (Verdict, llm.Usage) {
	if strings.TrimSpace(text) == "" {
		return Verdict{Relevant: false, Reason: "Empty text"}, llm.Usage{}
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:        s.model,
		SystemPrompt: screeningSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: text}},
		Temperature:  0.1,
		MaxTokens:    256,
	})
	if err != nil {
		s.log.Error("screening call failed", logger.ErrorFields("screen", err))
		return Verdict{
			Relevant:   false,
			Reason:     "Screening error: " + err.Error(),
			TextLength: len(text),
		}, llm.Usage{}
	}

	var parsed struct {
		Relevant bool   `json:"relevant"`
		Reason   string `json:"reason"`
	}
	if err := ExtractJSON(resp.Content, &parsed); err != nil {
		s.log.Warn("screening response unparseable, defaulting to relevant",
			logger.Fields("text_length", len(text)))
		return Verdict{
			Relevant:   true,
			Reason:     "Failed to parse screening response",
			TextLength: len(text),
		}, resp.Usage
	}

	reason := parsed.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	s.log.Info("screening complete", logger.Fields(
		"relevant", parsed.Relevant,
		"text_length", len(text),
	))

	return Verdict{
		Relevant:   parsed.Relevant,
		Reason:     reason,
		TextLength: len(text),
	}, resp.Usage
}
