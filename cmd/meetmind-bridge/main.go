// meetmind-bridge is the capture-side binary: it records the configured
// audio device through ffmpeg, gates silence, and streams voiced frames to
// a meetmind server while printing transcripts and insights as they
// arrive.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetmind/meetmind/audio"
	"github.com/meetmind/meetmind/config"
	"github.com/meetmind/meetmind/logger"
	"github.com/meetmind/meetmind/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "meetmind-bridge:", err)
		os.Exit(1)
	}
}

func run() error {
	title := flag.String("title", "", "meeting title")
	device := flag.String("device", "", "capture device (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if err := config.LoadConfig("meetmind", &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if *device != "" {
		cfg.Audio.Source = *device
	}

	logger.Init(cfg.Logging)
	log := logger.WithComponent("bridge")

	source := audio.NewFFmpegSource(audio.FFmpegSourceConfig{
		Device:       cfg.Audio.Source,
		FFmpegPath:   cfg.Audio.FFmpegPath,
		SampleRate:   cfg.Audio.SampleRate,
		FrameSeconds: cfg.Audio.FrameSeconds,
	})
	capturer := audio.NewCapturer(source, audio.CapturerConfig{SilenceRMS: cfg.Audio.SilenceRMS})

	client := session.NewClient(session.ClientConfig{
		URL:               cfg.Client.ServerURL,
		MeetingTitle:      *title,
		HeartbeatInterval: cfg.Client.HeartbeatInterval,
		ReconnectInitial:  cfg.Client.ReconnectInitial,
		ReconnectMax:      cfg.Client.ReconnectMax,
	})

	summaryDone := make(chan struct{}, 1)
	client.SetMessageHandler(func(messageType string, payload []byte) {
		handleServerMessage(messageType, payload, summaryDone)
	})
	client.SetStateChangeHandler(func(oldState, newState session.ClientState) {
		log.Info("channel state changed", logger.Fields(
			"from", oldState.String(),
			"to", newState.String(),
		))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	log.Info("connected", logger.Fields("url", cfg.Client.ServerURL))

	captureErr := make(chan error, 1)
	go func() {
		stats, err := capturer.Run(ctx, func(f audio.Frame) {
			client.SendFrame(f)
		})
		log.Info("capture finished", logger.Fields(
			logger.FieldFrames, stats.Emitted,
			"dropped", stats.Dropped,
			"sent", client.FramesSent(),
			"lost", client.FramesDropped(),
		))
		captureErr <- err
	}()

	select {
	case err := <-captureErr:
		if err != nil && ctx.Err() == nil {
			client.Close()
			return err
		}
	case <-ctx.Done():
		log.Info("stopping capture")
		if err := <-captureErr; err != nil && err != context.Canceled {
			log.Warn("capture ended with error", logger.ErrorFields("capture", err))
		}
	}

	// Ask for the final summary before tearing the channel down.
	client.RequestSummary()
	select {
	case <-summaryDone:
	case <-time.After(30 * time.Second):
		log.Warn("summary timed out")
	}
	return client.Stop()
}

func handleServerMessage(messageType string, payload []byte, summaryDone chan struct{}) {
	switch messageType {
	case session.TypeTranscriptAck:
		var msg session.TranscriptAckMessage
		if json.Unmarshal(payload, &msg) != nil {
			return
		}
		marker := "*"
		if !msg.Partial {
			marker = " "
		}
		speaker := msg.Speaker
		if speaker == "" {
			speaker = "..."
		}
		fmt.Printf("%s [%s] %s\n", marker, speaker, msg.Text)

	case session.TypeAnalysis:
		var msg session.AnalysisMessage
		if json.Unmarshal(payload, &msg) != nil {
			return
		}
		fmt.Printf("\n== %s (%s)\n   %s\n\n", msg.Insight.Title, msg.Insight.Category, msg.Insight.Recommendation)

	case session.TypeCopilotResponse:
		var msg session.CopilotResponseMessage
		if json.Unmarshal(payload, &msg) != nil {
			return
		}
		fmt.Printf("\n?? %s\n\n", msg.Answer)

	case session.TypeBudgetExceeded:
		var msg session.BudgetExceededMessage
		if json.Unmarshal(payload, &msg) != nil {
			return
		}
		fmt.Printf("\n!! %s\n\n", msg.Message)

	case session.TypeMeetingSummary:
		var msg session.MeetingSummaryMessage
		if json.Unmarshal(payload, &msg) != nil {
			return
		}
		if msg.Error != "" {
			fmt.Printf("\nsummary failed: %s\n", msg.Error)
		} else if msg.Summary != nil {
			fmt.Printf("\n## %s\n%s\n", msg.Summary.Title, msg.Summary.Summary)
		}
		select {
		case summaryDone <- struct{}{}:
		default:
		}
	}
}
