package insight

import (
	"math"
	"sync"
	"time"

	"github.com/meetmind/meetmind/llm"
)

// TierUsage is accumulated token usage for one pricing tier.
type TierUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Requests     int     `json:"requests"`
	CostUSD      float64 `json:"cost_usd"`
}

// CostSnapshot is a point-in-time view of the ledger, shaped for the
// cost_update protocol message.
type CostSnapshot struct {
	TotalCostUSD       float64              `json:"total_cost_usd"`
	BudgetUSD          float64              `json:"budget_usd"`
	BudgetRemainingUSD float64              `json:"budget_remaining_usd"`
	BudgetPct          float64              `json:"budget_pct"`
	TotalInputTokens   int                  `json:"total_input_tokens"`
	TotalOutputTokens  int                  `json:"total_output_tokens"`
	TotalRequests      int                  `json:"total_requests"`
	SessionDurationS   float64              `json:"session_duration_s"`
	ByTier             map[string]TierUsage `json:"by_tier"`
}

// CostLedger tracks per-session token usage and USD cost with budget
// enforcement. Totals are monotonic: usage is only ever added.
type CostLedger struct {
	mu            sync.Mutex
	budgetUSD     float64
	usage         map[string]*TierUsage
	totalRequests int
	started       time.Time
	exceededSeen  bool
}

// NewCostLedger creates a ledger with the given session budget.
func NewCostLedger(budgetUSD float64) *CostLedger {
	return &CostLedger{
		budgetUSD: budgetUSD,
		usage:     make(map[string]*TierUsage),
		started:   time.Now(),
	}
}

// Record adds a call's token usage under the model's pricing tier. It
// returns the updated snapshot and whether this call crossed the budget
// line; the crossing is reported exactly once per session.
func (l *CostLedger) Record(model string, usage llm.Usage) (CostSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tier := llm.ClassifyModel(model)
	tu, ok := l.usage[tier]
	if !ok {
		tu = &TierUsage{}
		l.usage[tier] = tu
	}
	tu.InputTokens += usage.PromptTokens
	tu.OutputTokens += usage.CompletionTokens
	tu.Requests++
	tu.CostUSD = llm.EstimatedCostUSD(tier, llm.Usage{
		PromptTokens:     tu.InputTokens,
		CompletionTokens: tu.OutputTokens,
	})
	l.totalRequests++

	snapshot := l.snapshotLocked()

	crossed := false
	if snapshot.TotalCostUSD >= l.budgetUSD && !l.exceededSeen {
		l.exceededSeen = true
		crossed = true
	}
	return snapshot, crossed
}

// Exceeded reports whether the budget has been exhausted.
func (l *CostLedger) Exceeded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exceededSeen
}

// Snapshot returns the current ledger state.
func (l *CostLedger) Snapshot() CostSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *CostLedger) snapshotLocked() CostSnapshot {
	var total float64
	var inTokens, outTokens int
	byTier := make(map[string]TierUsage, len(l.usage))
	for tier, tu := range l.usage {
		total += tu.CostUSD
		inTokens += tu.InputTokens
		outTokens += tu.OutputTokens
		byTier[tier] = *tu
	}
	total = math.Round(total*1e6) / 1e6

	remaining := l.budgetUSD - total
	if remaining < 0 {
		remaining = 0
	}
	pct := 100.0
	if l.budgetUSD > 0 {
		pct = math.Round(total/l.budgetUSD*1000) / 10
	}

	return CostSnapshot{
		TotalCostUSD:       total,
		BudgetUSD:          l.budgetUSD,
		BudgetRemainingUSD: remaining,
		BudgetPct:          pct,
		TotalInputTokens:   inTokens,
		TotalOutputTokens:  outTokens,
		TotalRequests:      l.totalRequests,
		SessionDurationS:   math.Round(time.Since(l.started).Seconds()*10) / 10,
		ByTier:             byTier,
	}
}
