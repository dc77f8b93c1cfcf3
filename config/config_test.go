package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Name != "meetmind" {
		t.Errorf("Name = %q, want meetmind", cfg.Name)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if !cfg.Debug {
		t.Error("Debug should default to true in development")
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.FrameSeconds != 0.25 {
		t.Errorf("Audio.FrameSeconds = %v, want 0.25", cfg.Audio.FrameSeconds)
	}
	if cfg.Audio.SilenceRMS != 0.001 {
		t.Errorf("Audio.SilenceRMS = %v, want 0.001", cfg.Audio.SilenceRMS)
	}
	if cfg.STT.StepSeconds != 2.0 {
		t.Errorf("STT.StepSeconds = %v, want 2.0", cfg.STT.StepSeconds)
	}
	if cfg.STT.ContextSeconds != 0.5 {
		t.Errorf("STT.ContextSeconds = %v, want 0.5", cfg.STT.ContextSeconds)
	}
	if cfg.Insight.BudgetUSD != 1.00 {
		t.Errorf("Insight.BudgetUSD = %v, want 1.00", cfg.Insight.BudgetUSD)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Client.HeartbeatInterval != 15*time.Second {
		t.Errorf("Client.HeartbeatInterval = %v, want 15s", cfg.Client.HeartbeatInterval)
	}
	if cfg.LLM.ScreeningModel != "haiku" {
		t.Errorf("LLM.ScreeningModel = %q, want haiku", cfg.LLM.ScreeningModel)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"missing name", func(c *Config) { c.Name = "" }, "name is required"},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "environment"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "validation failed"},
		{"negative silence rms", func(c *Config) { c.Audio.SilenceRMS = -0.1 }, "validation failed"},
		{"context not smaller than step", func(c *Config) {
			c.STT.StepSeconds = 0.5
			c.STT.ContextSeconds = 0.5
		}, "context_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// fakeFS is a FileSystem with no files, so LoadConfig exercises only the
// environment path.
type fakeFS struct{}

func (fakeFS) Exists(string) bool   { return false }
func (fakeFS) LoadEnv(string) error { return nil }

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("STT_STEP_SECONDS", "3.5")
	t.Setenv("INSIGHT_BUDGET_USD", "2.0")

	cfg := Default()
	if err := LoadConfig("meetmind-server", &cfg, WithFileSystem(fakeFS{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.STT.StepSeconds != 3.5 {
		t.Errorf("STT.StepSeconds = %v, want 3.5 from env", cfg.STT.StepSeconds)
	}
	if cfg.Insight.BudgetUSD != 2.0 {
		t.Errorf("Insight.BudgetUSD = %v, want 2.0 from env", cfg.Insight.BudgetUSD)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("STT_STEP_SECONDS")

	want := map[string]bool{
		"stt_step_seconds": false,
		"stt.step.seconds": false,
		"stt.step_seconds": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("expected variant %q in %v", k, variants)
		}
	}
}
