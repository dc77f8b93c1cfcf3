package insight

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/logger"
)

const analysisPromptTemplate = `Analyze this meeting transcript segment and provide a structured insight.

Context: %s

Relevant segment: %s

Screening reason: %s

Respond with JSON:
{
  "title": "Brief insight title (1 line)",
  "analysis": "Your analysis (2-3 sentences)",
  "recommendation": "Concrete actionable recommendation",
  "category": "decision|action|risk|idea"
}`

// maxAnalysisContext bounds the transcript context passed to analysis
// (roughly 1000 tokens).
const maxAnalysisContext = 4000

// Insight is a structured finding from transcript analysis.
type Insight struct {
	Title          string    `json:"title"`
	Analysis       string    `json:"analysis"`
	Recommendation string    `json:"recommendation"`
	Category       string    `json:"category"` // decision, action, risk, idea
	CreatedAt      time.Time `json:"created_at"`
}

// Analyzer generates insights from transcript segments that passed
// screening.
type Analyzer struct {
	provider llm.Provider
	model    string
	log      *logger.Logger
}

// NewAnalyzer creates an analyzer bound to a model.
func NewAnalyzer(provider llm.Provider, model string) *Analyzer {
	return &Analyzer{
		provider: provider,
		model:    model,
		log:      logger.WithComponent("analyzer"),
	}
}

// Analyze generates an insight for a relevant segment. A nil insight with
// nil error means the response was unparseable and the segment is skipped.
func (a *Analyzer) Analyze(ctx context.Context, segment, transcriptContext, screeningReason string) (*Insight, llm.Usage, error) {
	if len(transcriptContext) > maxAnalysisContext {
		transcriptContext = transcriptContext[:maxAnalysisContext]
	}
	prompt := fmt.Sprintf(analysisPromptTemplate, transcriptContext, segment, screeningReason)

	resp, err := a.provider.CompleteStructured(ctx, llm.CompletionRequest{
		Model:    a.model,
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	}, nil)
	if err != nil {
		return nil, llm.Usage{}, apperrors.ProviderCallFailed("analysis", err)
	}

	var parsed Insight
	if err := ExtractJSON(resp.Content, &parsed); err != nil {
		a.log.Warn("analysis response unparseable, skipping segment")
		return nil, resp.Usage, nil
	}

	if parsed.Title == "" {
		parsed.Title = "Untitled Insight"
	}
	if parsed.Category == "" {
		parsed.Category = "idea"
	}
	parsed.CreatedAt = time.Now()

	a.log.Info("analysis complete", logger.Fields(
		"title", parsed.Title,
		"category", parsed.Category,
	))

	return &parsed, resp.Usage, nil
}
