// Package llm defines the language-model provider interface, universal
// request/response types, and per-tier token pricing.
//
// # Backends
//
//   - llm/ollama: local Ollama HTTP API
//   - llm/openai: OpenAI-compatible chat completions API
//
// # Usage
//
//	reg := llm.NewRegistry()
//	reg.RegisterFactory("ollama", ollama.Factory())
//	p, err := reg.Create("ollama", cfg)
//	resp, err := p.Complete(ctx, llm.CompletionRequest{...})
package llm
