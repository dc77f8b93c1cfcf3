package llm

import (
	"math"
	"strings"
)

// TierPricing is per-1M-token pricing in USD.
type TierPricing struct {
	InputUSD  float64
	OutputUSD float64
}

// Per-1M-token pricing by model tier (USD), Jan 2025.
var tierPricing = map[string]TierPricing{
	"haiku":  {InputUSD: 0.25, OutputUSD: 1.25},
	"sonnet": {InputUSD: 3.00, OutputUSD: 15.00},
	"opus":   {InputUSD: 15.00, OutputUSD: 75.00},
}

// ClassifyModel maps a model identifier to a pricing tier. Unknown models
// price as "sonnet".
func ClassifyModel(model string) string {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "haiku") {
		return "haiku"
	}
	if strings.Contains(lower, "opus") {
		return "opus"
	}
	return "sonnet"
}

// PricingFor returns the pricing for a model's tier.
func PricingFor(model string) TierPricing {
	return tierPricing[ClassifyModel(model)]
}

// EstimatedCostUSD estimates the USD cost of a call, rounded to 6 decimals.
func EstimatedCostUSD(model string, usage Usage) float64 {
	p := PricingFor(model)
	cost := float64(usage.PromptTokens)/1_000_000*p.InputUSD +
		float64(usage.CompletionTokens)/1_000_000*p.OutputUSD
	return math.Round(cost*1e6) / 1e6
}
