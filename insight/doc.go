// Package insight implements the staged AI pipeline over the live
// transcript: cheap relevance screening, gated deep analysis, the meeting
// copilot, and post-meeting summarization, all metered by a per-session
// cost ledger with budget enforcement.
//
// Stage ordering is cost-driven: every transcript segment is screened with
// the cheapest tier, and only segments marked relevant reach the expensive
// analysis tier. Once the session budget is exhausted the gated stages
// refuse without spending; screening keeps running so the session can
// report what it would have analyzed.
package insight
