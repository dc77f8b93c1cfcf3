package insight

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/meetmind/meetmind/llm"
)

// scriptedProvider returns canned completions in call order; once the
// script is exhausted it repeats the last entry.
type scriptedProvider struct {
	mu     sync.Mutex
	script []scriptedCall
	calls  int
}

type scriptedCall struct {
	content string
	usage   llm.Usage
	err     error
}

func (s *scriptedProvider) Name() string                         { return "scripted" }
func (s *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *scriptedProvider) next() (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	c := s.script[idx]
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content, Usage: c.usage}, nil
}

func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return s.next()
}

func (s *scriptedProvider) CompleteStructured(ctx context.Context, req llm.CompletionRequest, schema any) (*llm.CompletionResponse, error) {
	return s.next()
}

func (s *scriptedProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingEmitter captures every pipeline event.
type recordingEmitter struct {
	mu             sync.Mutex
	screenings     []Verdict
	screeningIDs   []int64
	analyses       []Insight
	copilots       []CopilotResponse
	summaries      []Summary
	summaryErrors  []string
	costUpdates    []CostSnapshot
	budgetMessages []string
}

func (r *recordingEmitter) EmitScreening(segmentID int64, v Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screeningIDs = append(r.screeningIDs, segmentID)
	r.screenings = append(r.screenings, v)
}

func (r *recordingEmitter) EmitAnalysis(ins Insight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, ins)
}

func (r *recordingEmitter) EmitCopilot(resp CopilotResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.copilots = append(r.copilots, resp)
}

func (r *recordingEmitter) EmitSummary(sum Summary, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, sum)
	r.summaryErrors = append(r.summaryErrors, errMsg)
}

func (r *recordingEmitter) EmitCostUpdate(snap CostSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.costUpdates = append(r.costUpdates, snap)
}

func (r *recordingEmitter) EmitBudgetExceeded(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.budgetMessages = append(r.budgetMessages, message)
}

func testConfig(budget float64) PipelineConfig {
	return PipelineConfig{
		ScreeningModel:      "haiku",
		AnalysisModel:       "sonnet",
		CopilotSimpleModel:  "haiku",
		CopilotComplexModel: "sonnet",
		SummaryModel:        "sonnet",
		BudgetUSD:           budget,
	}
}

func TestPipeline_RelevantSegmentReachesAnalysis(t *testing.T) {
	provider := &scriptedProvider{script: []scriptedCall{
		{content: `{"relevant": true, "reason": "decision discussed"}`, usage: llm.Usage{PromptTokens: 100, CompletionTokens: 20}},
		{content: `{"title": "Ship it", "analysis": "Team agreed.", "recommendation": "Announce.", "category": "decision"}`, usage: llm.Usage{PromptTokens: 500, CompletionTokens: 100}},
	}}
	emitter := &recordingEmitter{}
	p := NewPipeline(provider, testConfig(1.00), emitter)

	p.ProcessSegment(context.Background(), 1, "we decided to ship on friday", "full transcript")

	if len(emitter.screenings) != 1 || !emitter.screenings[0].Relevant {
		t.Fatalf("screenings = %+v, want one relevant verdict", emitter.screenings)
	}
	if emitter.screeningIDs[0] != 1 {
		t.Errorf("screening segment ID = %d, want 1", emitter.screeningIDs[0])
	}
	if len(emitter.analyses) != 1 || emitter.analyses[0].Title != "Ship it" {
		t.Fatalf("analyses = %+v, want one 'Ship it' insight", emitter.analyses)
	}
	if emitter.analyses[0].CreatedAt.IsZero() {
		t.Error("insight CreatedAt should be stamped by the analyzer")
	}
	if len(emitter.costUpdates) != 2 {
		t.Errorf("cost updates = %d, want 2 (screening + analysis)", len(emitter.costUpdates))
	}
}

func TestPipeline_IrrelevantSegmentSkipsAnalysis(t *testing.T) {
	provider := &scriptedProvider{script: []scriptedCall{
		{content: `{"relevant": false, "reason": "small talk"}`, usage: llm.Usage{PromptTokens: 50, CompletionTokens: 10}},
	}}
	emitter := &recordingEmitter{}
	p := NewPipeline(provider, testConfig(1.00), emitter)

	p.ProcessSegment(context.Background(), 1, "how was your weekend", "full transcript")

	if len(emitter.analyses) != 0 {
		t.Errorf("analyses = %d, want 0 for irrelevant segment", len(emitter.analyses))
	}
	if provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1 (screening only)", provider.callCount())
	}
}

func TestPipeline_ScreeningFailOpen(t *testing.T) {
	provider := &scriptedProvider{script: []scriptedCall{
		{content: "I think this is probably relevant but here is no JSON", usage: llm.Usage{PromptTokens: 50, CompletionTokens: 30}},
		{content: `{"title": "T", "analysis": "A", "recommendation": "R", "category": "idea"}`, usage: llm.Usage{PromptTokens: 100, CompletionTokens: 50}},
	}}
	emitter := &recordingEmitter{}
	p := NewPipeline(provider, testConfig(1.00), emitter)

	p.ProcessSegment(context.Background(), 1, "some segment", "ctx")

	// Unparseable screening defaults to relevant, so analysis still runs.
	if len(emitter.screenings) != 1 || !emitter.screenings[0].Relevant {
		t.Fatal("unparseable screening should default to relevant")
	}
	if len(emitter.analyses) != 1 {
		t.Errorf("analyses = %d, want 1 after fail-open screening", len(emitter.analyses))
	}
}

func TestPipeline_ScreeningProviderErrorFailsClosed(t *testing.T) {
	provider := &scriptedProvider{script: []scriptedCall{
		{err: errors.New("provider down")},
	}}
	emitter := &recordingEmitter{}
	p := NewPipeline(provider, testConfig(1.00), emitter)

	p.ProcessSegment(context.Background(), 1, "segment", "ctx")

	if len(emitter.screenings) != 1 || emitter.screenings[0].Relevant {
		t.Fatal("provider error should screen as not relevant")
	}
	if len(emitter.costUpdates) != 0 {
		t.Errorf("cost updates = %d, want 0 for a failed call", len(emitter.costUpdates))
	}
}

func TestPipeline_BudgetExceededFiresOnceAndGates(t *testing.T) {
	// Each screening burns 1M haiku input tokens ($0.25) against a $0.20
	// budget, so the first segment crosses the line.
	provider := &scriptedProvider{script: []scriptedCall{
		{content: `{"relevant": false, "reason": "noise"}`, usage: llm.Usage{PromptTokens: 1_000_000}},
	}}
	emitter := &recordingEmitter{}
	p := NewPipeline(provider, testConfig(0.20), emitter)

	p.ProcessSegment(context.Background(), 1, "segment one", "ctx")
	p.ProcessSegment(context.Background(), 2, "segment two", "ctx")
	p.ProcessSegment(context.Background(), 3, "segment three", "ctx")

	if len(emitter.budgetMessages) != 1 {
		t.Fatalf("budget_exceeded events = %d, want exactly 1", len(emitter.budgetMessages))
	}
	if emitter.budgetMessages[0] != BudgetExceededMessage {
		t.Errorf("message = %q, want %q", emitter.budgetMessages[0], BudgetExceededMessage)
	}

	// Screening keeps running (and being recorded) after exhaustion.
	if len(emitter.screenings) != 3 {
		t.Errorf("screenings = %d, want 3", len(emitter.screenings))
	}
	if len(emitter.costUpdates) != 3 {
		t.Errorf("cost updates = %d, want 3", len(emitter.costUpdates))
	}

	// Gated stages refuse without a provider call.
	calls := provider.callCount()
	p.HandleCopilot(context.Background(), "what did I miss?", "ctx")
	p.GenerateSummary(context.Background(), "transcript")
	if provider.callCount() != calls {
		t.Error("gated stages must not call the provider after budget exhaustion")
	}
	if len(emitter.copilots) != 1 || !emitter.copilots[0].Error {
		t.Fatalf("copilots = %+v, want one error response", emitter.copilots)
	}
	if emitter.copilots[0].Answer != BudgetExceededMessage {
		t.Errorf("copilot answer = %q, want budget message", emitter.copilots[0].Answer)
	}
	if len(emitter.summaryErrors) != 1 || emitter.summaryErrors[0] != BudgetExceededMessage {
		t.Errorf("summary errors = %v, want budget message", emitter.summaryErrors)
	}
}

func TestPipeline_CopilotFlow(t *testing.T) {
	provider := &scriptedProvider{script: []scriptedCall{
		{content: "Mention the rollback plan.", usage: llm.Usage{PromptTokens: 200, CompletionTokens: 30}},
	}}
	emitter := &recordingEmitter{}
	p := NewPipeline(provider, testConfig(1.00), emitter)

	p.HandleCopilot(context.Background(), "why is this deploy risky for the payment service?", "transcript")

	if len(emitter.copilots) != 1 {
		t.Fatalf("copilots = %d, want 1", len(emitter.copilots))
	}
	resp := emitter.copilots[0]
	if resp.Error {
		t.Errorf("unexpected error response: %+v", resp)
	}
	if resp.Answer != "Mention the rollback plan." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.ModelTier != QueryComplex {
		t.Errorf("tier = %q, want complex for an analytical question", resp.ModelTier)
	}
	if len(emitter.costUpdates) != 1 {
		t.Errorf("cost updates = %d, want 1", len(emitter.costUpdates))
	}
}

func TestPipeline_SummaryEmptyTranscriptStub(t *testing.T) {
	provider := &scriptedProvider{script: []scriptedCall{
		{content: "should never be called"},
	}}
	emitter := &recordingEmitter{}
	p := NewPipeline(provider, testConfig(1.00), emitter)

	p.GenerateSummary(context.Background(), "   ")

	if provider.callCount() != 0 {
		t.Error("empty transcript must not call the provider")
	}
	if len(emitter.summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(emitter.summaries))
	}
	if emitter.summaries[0].Title != "Empty Meeting" {
		t.Errorf("Title = %q, want 'Empty Meeting'", emitter.summaries[0].Title)
	}
	if emitter.summaryErrors[0] != "" {
		t.Errorf("stub summary should not carry an error, got %q", emitter.summaryErrors[0])
	}
}

func TestPipeline_TrimContextKeepsTail(t *testing.T) {
	cfg := testConfig(1.00)
	cfg.MaxContextChars = 10
	p := NewPipeline(&scriptedProvider{}, cfg, &recordingEmitter{})

	long := "aaaaabbbbbccccc"
	if got := p.trimContext(long); got != "bbbbbccccc" {
		t.Errorf("trimContext = %q, want tail of length 10", got)
	}
	short := "hello"
	if got := p.trimContext(short); got != short {
		t.Errorf("trimContext(%q) = %q, want unchanged", short, got)
	}
}

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"who said that?", QuerySimple},
		{"repeat the last point please", QuerySimple},
		{"how many action items do we have now", QuerySimple},
		{"why is the migration risky for our uptime targets", QueryComplex},
		{"can you summarize the discussion about hiring so far", QueryComplex},
		{"tell me something about the general direction here", QueryComplex}, // ambiguous defaults complex
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := ClassifyQuery(tt.question); got != tt.want {
				t.Errorf("ClassifyQuery(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}
