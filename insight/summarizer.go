package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/logger"
)

const summarySystemPrompt = `You are an expert meeting summarizer. Analyze the full meeting transcript
and produce a structured JSON summary.

## Output Format (strict JSON)

{
  "title": "Meeting title (inferred from context)",
  "key_topics": ["topic1", "topic2", ...],
  "decisions": [
    {"what": "Description of the decision", "who": "Person(s) involved"}
  ],
  "action_items": [
    {"task": "What needs to be done", "owner": "Person responsible", "deadline": "If mentioned"}
  ],
  "risks": [
    {"description": "Risk identified", "severity": "high|medium|low"}
  ],
  "next_steps": ["Next step 1", "Next step 2"],
  "summary": "2-3 sentence executive summary of the entire meeting"
}

## Rules
- Extract ONLY what was explicitly said, never invent information
- If no owner was mentioned for an action item, use "TBD"
- If no deadline was mentioned, use "Not specified"
- Keep descriptions concise (1-2 lines each)
- Respond with ONLY the JSON object, no extra text`

// Decision is a decision extracted from the meeting.
type Decision struct {
	What string `json:"what"`
	Who  string `json:"who"`
}

// ActionItem is a task extracted from the meeting.
type ActionItem struct {
	Task     string `json:"task"`
	Owner    string `json:"owner"`
	Deadline string `json:"deadline"`
}

// Risk is a risk surfaced during the meeting.
type Risk struct {
	Description string `json:"description"`
	Severity    string `json:"severity"` // high, medium, low
}

// Summary is the structured post-meeting report.
type Summary struct {
	Title       string       `json:"title"`
	KeyTopics   []string     `json:"key_topics"`
	Decisions   []Decision   `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	Risks       []Risk       `json:"risks"`
	NextSteps   []string     `json:"next_steps"`
	Summary     string       `json:"summary"`
	LatencyMS   float64      `json:"latency_ms,omitempty"`
}

// Summarizer generates the structured post-meeting report.
type Summarizer struct {
	provider llm.Provider
	model    string
	log      *logger.Logger
}

// NewSummarizer creates a summarizer bound to a model.
func NewSummarizer(provider llm.Provider, model string) *Summarizer {
	return &Summarizer{
		provider: provider,
		model:    model,
		log:      logger.WithComponent("summarizer"),
	}
}

// Summarize produces a structured summary of the full transcript. An empty
// transcript returns a stub without a provider call.
func (s *Summarizer) Summarize(ctx context.Context, fullTranscript string) (Summary, llm.Usage, error) {
	if strings.TrimSpace(fullTranscript) == "" {
		return Summary{
			Title:   "Empty Meeting",
			Summary: "No transcript content was captured.",
		}, llm.Usage{}, nil
	}

	prompt := fmt.Sprintf(
		"## Full Meeting Transcript\n\n%s\n\n---\n\nGenerate the structured JSON summary now.",
		fullTranscript)

	start := time.Now()
	resp, err := s.provider.CompleteStructured(ctx, llm.CompletionRequest{
		Model:        s.model,
		SystemPrompt: summarySystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
	}, nil)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return Summary{}, llm.Usage{}, apperrors.ProviderCallFailed("summary", err)
	}

	var parsed Summary
	if err := ExtractJSON(resp.Content, &parsed); err != nil {
		// Unparseable output still carries content worth surfacing.
		s.log.Warn("summary response unparseable, using raw excerpt")
		excerpt := resp.Content
		if len(excerpt) > 500 {
			excerpt = excerpt[:500]
		}
		parsed = Summary{Title: "Meeting Summary", Summary: excerpt}
	}
	if parsed.Title == "" {
		parsed.Title = "Meeting Summary"
	}
	parsed.LatencyMS = latency

	s.log.Info("summary generated", logger.Fields(
		"decisions", len(parsed.Decisions),
		"action_items", len(parsed.ActionItems),
		"risks", len(parsed.Risks),
		logger.FieldDuration, latency,
	))

	return parsed, resp.Usage, nil
}
