package insight

import (
	"context"

	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/logger"
)

// BudgetExceededMessage is sent to clients exactly once, when the session
// crosses its budget.
const BudgetExceededMessage = "Session budget limit reached. AI paused."

// Emitter receives pipeline events. Implementations must be safe for
// concurrent use; the pipeline's stages run from multiple goroutines.
type Emitter interface {
	// EmitScreening reports the verdict for the source segment.
	EmitScreening(segmentID int64, v Verdict)
	EmitAnalysis(ins Insight)
	EmitCopilot(resp CopilotResponse)
	// EmitSummary delivers the summary; errMsg is non-empty on failure.
	EmitSummary(sum Summary, errMsg string)
	EmitCostUpdate(snap CostSnapshot)
	EmitBudgetExceeded(message string)
}

// PipelineConfig binds each stage to a model.
type PipelineConfig struct {
	ScreeningModel      string
	AnalysisModel       string
	CopilotSimpleModel  string
	CopilotComplexModel string
	SummaryModel        string
	BudgetUSD           float64
	// MaxContextChars bounds the transcript context handed to each stage;
	// longer transcripts are truncated to their tail.
	MaxContextChars int
}

// Pipeline orchestrates the staged insight flow for one session.
//
// Screening always runs, even after the budget is exhausted, and its cost
// is always recorded. Analysis, copilot, and summary are gated: once the
// budget is gone they refuse before any provider call and record nothing.
type Pipeline struct {
	cfg        PipelineConfig
	screener   *Screener
	analyzer   *Analyzer
	copilot    *Copilot
	summarizer *Summarizer
	ledger     *CostLedger
	emitter    Emitter
	log        *logger.Logger
}

// NewPipeline wires the stages to one LLM provider and an emitter.
func NewPipeline(provider llm.Provider, cfg PipelineConfig, emitter Emitter) *Pipeline {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 12000
	}
	return &Pipeline{
		cfg:        cfg,
		screener:   NewScreener(provider, cfg.ScreeningModel),
		analyzer:   NewAnalyzer(provider, cfg.AnalysisModel),
		copilot:    NewCopilot(provider, cfg.CopilotSimpleModel, cfg.CopilotComplexModel),
		summarizer: NewSummarizer(provider, cfg.SummaryModel),
		ledger:     NewCostLedger(cfg.BudgetUSD),
		emitter:    emitter,
		log:        logger.WithComponent("pipeline"),
	}
}

// Ledger exposes the session's cost ledger.
func (p *Pipeline) Ledger() *CostLedger { return p.ledger }

// ProcessSegment screens a finalized transcript segment and, when relevant
// and within budget, analyzes it.
func (p *Pipeline) ProcessSegment(ctx context.Context, segmentID int64, segment, fullTranscript string) {
	verdict, usage := p.screener.Screen(ctx, segment)
	p.record(p.cfg.ScreeningModel, usage)
	p.emitter.EmitScreening(segmentID, verdict)

	if !verdict.Relevant {
		return
	}
	if p.ledger.Exceeded() {
		p.log.Info("analysis skipped, budget exhausted")
		return
	}

	ins, usage, err := p.analyzer.Analyze(ctx, segment, p.trimContext(fullTranscript), verdict.Reason)
	p.record(p.cfg.AnalysisModel, usage)
	if err != nil {
		p.log.Error("analysis failed", logger.ErrorFields("analyze", err))
		return
	}
	if ins != nil {
		p.emitter.EmitAnalysis(*ins)
	}
}

// HandleCopilot answers a silent question, refusing without cost when the
// budget is exhausted.
func (p *Pipeline) HandleCopilot(ctx context.Context, question, transcript string) {
	if p.ledger.Exceeded() {
		p.emitter.EmitCopilot(CopilotResponse{
			Answer: BudgetExceededMessage,
			Error:  true,
		})
		return
	}

	resp, usage, err := p.copilot.Respond(ctx, question, p.trimContext(transcript))
	p.record(modelForTier(p.cfg, ClassifyQuery(question)), usage)
	if err != nil {
		p.log.Error("copilot failed", logger.ErrorFields("copilot", err))
	}
	p.emitter.EmitCopilot(resp)
}

// GenerateSummary produces the post-meeting report, refusing without cost
// when the budget is exhausted.
func (p *Pipeline) GenerateSummary(ctx context.Context, transcript string) {
	if p.ledger.Exceeded() {
		p.emitter.EmitSummary(Summary{}, BudgetExceededMessage)
		return
	}

	sum, usage, err := p.summarizer.Summarize(ctx, p.trimContext(transcript))
	p.record(p.cfg.SummaryModel, usage)
	if err != nil {
		p.emitter.EmitSummary(Summary{}, err.Error())
		return
	}
	p.emitter.EmitSummary(sum, "")
}

// record books usage into the ledger and emits the cost update plus, on
// the first budget crossing, the budget_exceeded event.
func (p *Pipeline) record(model string, usage llm.Usage) {
	if usage.TotalTokens == 0 && usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return
	}
	snap, crossed := p.ledger.Record(model, usage)
	p.emitter.EmitCostUpdate(snap)
	if crossed {
		p.log.Warn("session budget exceeded", logger.Fields(
			logger.FieldCostUSD, snap.TotalCostUSD,
			"budget_usd", snap.BudgetUSD,
		))
		p.emitter.EmitBudgetExceeded(BudgetExceededMessage)
	}
}

// trimContext keeps the most recent part of the transcript. The tail
// matters more than the head for live meetings.
func (p *Pipeline) trimContext(transcript string) string {
	if len(transcript) <= p.cfg.MaxContextChars {
		return transcript
	}
	return transcript[len(transcript)-p.cfg.MaxContextChars:]
}

func modelForTier(cfg PipelineConfig, tier string) string {
	if tier == QuerySimple {
		return cfg.CopilotSimpleModel
	}
	return cfg.CopilotComplexModel
}
