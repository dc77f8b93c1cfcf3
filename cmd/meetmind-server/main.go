// meetmind-server hosts the meeting websocket endpoint: per-connection
// streaming transcription, the staged insight pipeline, and persistence of
// finished sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meetmind/meetmind/config"
	"github.com/meetmind/meetmind/insight"
	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/llm/ollama"
	"github.com/meetmind/meetmind/llm/openai"
	"github.com/meetmind/meetmind/logger"
	"github.com/meetmind/meetmind/server"
	"github.com/meetmind/meetmind/session"
	"github.com/meetmind/meetmind/store"
	"github.com/meetmind/meetmind/stt"
	"github.com/meetmind/meetmind/stt/whisper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "meetmind-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if err := config.LoadConfig("meetmind", &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger.Init(cfg.Logging)
	log := logger.WithComponent("main")

	recognizer, err := buildRecognizer(cfg)
	if err != nil {
		return fmt.Errorf("stt provider: %w", err)
	}
	provider, err := buildLLM(cfg)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}

	st, err := store.NewLocalStore(cfg.Store.Dir, cfg.Store.ExportMarkdown)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	hub := session.NewHub(recognizer, provider, st, session.HubConfig{
		Engine: stt.EngineConfig{
			SampleRate:        cfg.Audio.SampleRate,
			StepSeconds:       cfg.STT.StepSeconds,
			ContextSeconds:    cfg.STT.ContextSeconds,
			MaxSegmentSeconds: cfg.STT.MaxSegmentSeconds,
			Language:          cfg.STT.Language,
			Model:             cfg.STT.Model,
		},
		Pipeline: insight.PipelineConfig{
			ScreeningModel:      cfg.LLM.ScreeningModel,
			AnalysisModel:       cfg.LLM.AnalysisModel,
			CopilotSimpleModel:  cfg.LLM.CopilotSimpleModel,
			CopilotComplexModel: cfg.LLM.CopilotComplexModel,
			SummaryModel:        cfg.LLM.SummaryModel,
			BudgetUSD:           cfg.Insight.BudgetUSD,
			MaxContextChars:     cfg.Insight.MaxContextChars,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := server.New(cfg.Name, cfg.Server, hub)
	srv.AddHealthCheck("stt", recognizer.IsAvailable)
	srv.AddHealthCheck("llm", provider.IsAvailable)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.Info("meetmind server ready", logger.Fields(
		"stt", recognizer.Name(),
		"llm", provider.Name(),
		"budget_usd", cfg.Insight.BudgetUSD,
	))

	<-ctx.Done()
	log.Info("shutdown signal received")
	return srv.Stop(context.Background())
}

func buildRecognizer(cfg config.Config) (stt.Recognizer, error) {
	registry := stt.NewRegistry()
	registry.RegisterFactory("whisper", whisper.Factory())
	return registry.Create(cfg.STT.Provider, map[string]any{
		"url":      cfg.STT.BaseURL,
		"model":    cfg.STT.Model,
		"language": cfg.STT.Language,
		"timeout":  cfg.STT.Timeout,
	})
}

func buildLLM(cfg config.Config) (llm.Provider, error) {
	registry := llm.NewRegistry()
	registry.RegisterFactory("ollama", ollama.Factory())
	registry.RegisterFactory("openai", openai.Factory())
	return registry.Create(cfg.LLM.Provider, map[string]any{
		"base_url": cfg.LLM.BaseURL,
		"api_key":  cfg.LLM.APIKey,
		"timeout":  cfg.LLM.Timeout,
	})
}
