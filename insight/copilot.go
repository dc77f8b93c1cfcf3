package insight

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/logger"
)

const copilotSystemPrompt = `You are a hidden assistant during meetings. The user asks you questions
silently while the meeting is happening. You have the full transcript of
everything said so far. Nobody else in the meeting knows you exist.

Rules:
- Keep responses SHORT (2-5 lines max). The user is in a meeting.
- Be actionable: give the user something they can say RIGHT NOW.
- If someone proposes something risky, point it out diplomatically.
- Never repeat what was already said in the transcript.
- Use bullet points for multiple items, plain text for opinions.`

// Query tiers for smart routing.
const (
	QuerySimple  = "simple"
	QueryComplex = "complex"
)

// Patterns indicating a simple, factual query (cheap tier).
var simplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(who said|when did|what time|how many|list|name)\b`),
	regexp.MustCompile(`(?i)^(repeat)\b`),
}

// Patterns indicating a complex, analytical query (quality tier).
var complexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(why|explain|analyze|impact|risk|strategy|compare)\b`),
	regexp.MustCompile(`(?i)\b(summarize|suggest|recommend|pros.cons)\b`),
}

// ClassifyQuery routes a copilot question to a model tier. Short factual
// lookups go to the cheap tier; analytical questions and ambiguous ones go
// to the quality tier.
func ClassifyQuery(question string) string {
	if len(strings.Fields(question)) <= 4 {
		return QuerySimple
	}
	for _, p := range complexPatterns {
		if p.MatchString(question) {
			return QueryComplex
		}
	}
	for _, p := range simplePatterns {
		if p.MatchString(question) {
			return QuerySimple
		}
	}
	return QueryComplex
}

// CopilotResponse is the answer to a silent in-meeting question.
type CopilotResponse struct {
	Answer    string  `json:"answer"`
	LatencyMS float64 `json:"latency_ms"`
	ModelTier string  `json:"model_tier,omitempty"`
	Error     bool    `json:"error,omitempty"`
}

// Copilot answers user questions against the live transcript.
type Copilot struct {
	provider     llm.Provider
	simpleModel  string
	complexModel string
	log          *logger.Logger
}

// NewCopilot creates a copilot with per-tier models.
func NewCopilot(provider llm.Provider, simpleModel, complexModel string) *Copilot {
	return &Copilot{
		provider:     provider,
		simpleModel:  simpleModel,
		complexModel: complexModel,
		log:          logger.WithComponent("copilot"),
	}
}

// Respond answers a question using the transcript so far.
func (c *Copilot) Respond(ctx context.Context, question, transcript string) (CopilotResponse, llm.Usage, error) {
	tier := ClassifyQuery(question)
	model := c.complexModel
	if tier == QuerySimple {
		model = c.simpleModel
	}

	start := time.Now()
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model:        model,
		SystemPrompt: copilotSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: buildCopilotPrompt(question, transcript)}},
	})
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return CopilotResponse{
			Answer:    "Error: " + err.Error(),
			LatencyMS: latency,
			ModelTier: tier,
			Error:     true,
		}, llm.Usage{}, apperrors.ProviderCallFailed("copilot", err)
	}

	c.log.Info("copilot response", logger.Fields(
		"question_length", len(question),
		"answer_length", len(resp.Content),
		"model_tier", tier,
		logger.FieldDuration, latency,
	))

	return CopilotResponse{
		Answer:    strings.TrimSpace(resp.Content),
		LatencyMS: latency,
		ModelTier: tier,
	}, resp.Usage, nil
}

func buildCopilotPrompt(question, transcript string) string {
	if transcript != "" {
		return fmt.Sprintf(
			"## Meeting Transcript (so far)\n\n%s\n\n---\n\n## User's Question\n\n%s\n\n"+
				"Answer concisely (2-5 lines max). The user is in the meeting right now.",
			transcript, question)
	}
	return fmt.Sprintf(
		"The meeting just started and there's no transcript yet.\n\n## User's Question\n\n%s\n\n"+
			"Answer concisely (2-5 lines max).",
		question)
}
