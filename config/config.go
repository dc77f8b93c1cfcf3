package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meetmind/meetmind/logger"
)

// ServiceConfig contains the essential configuration fields every service
// needs. Larger config structs embed it.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

func (c *ServerConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// AudioConfig configures capture-side frame slicing and the silence gate.
type AudioConfig struct {
	SampleRate   int     `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gt=0"`
	FrameSeconds float64 `yaml:"frame_seconds" mapstructure:"frame_seconds" validate:"gt=0"`
	// SilenceRMS is the RMS energy below which a frame is treated as
	// silence and dropped before transmission.
	SilenceRMS float64 `yaml:"silence_rms" mapstructure:"silence_rms" validate:"gte=0"`
	Source     string  `yaml:"source" mapstructure:"source"`
	FFmpegPath string  `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
}

func (c *AudioConfig) ApplyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.FrameSeconds == 0 {
		c.FrameSeconds = 0.25
	}
	if c.SilenceRMS == 0 {
		c.SilenceRMS = 0.001
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
}

// STTConfig configures the recognition provider and the streaming engine.
type STTConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"`
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Language string        `yaml:"language" mapstructure:"language"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// StepSeconds is how much buffered audio triggers a recognition pass.
	StepSeconds float64 `yaml:"step_seconds" mapstructure:"step_seconds" validate:"gt=0"`
	// ContextSeconds is how much trailing audio is retained across passes.
	ContextSeconds    float64 `yaml:"context_seconds" mapstructure:"context_seconds" validate:"gte=0"`
	MaxSegmentSeconds float64 `yaml:"max_segment_seconds" mapstructure:"max_segment_seconds"`
}

func (c *STTConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "whisper"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:9000"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.StepSeconds == 0 {
		c.StepSeconds = 2.0
	}
	if c.ContextSeconds == 0 {
		c.ContextSeconds = 0.5
	}
	if c.MaxSegmentSeconds == 0 {
		c.MaxSegmentSeconds = 30.0
	}
}

// LLMConfig configures the language-model provider and per-stage models.
type LLMConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"`
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey   string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`

	ScreeningModel      string `yaml:"screening_model" mapstructure:"screening_model"`
	AnalysisModel       string `yaml:"analysis_model" mapstructure:"analysis_model"`
	CopilotSimpleModel  string `yaml:"copilot_simple_model" mapstructure:"copilot_simple_model"`
	CopilotComplexModel string `yaml:"copilot_complex_model" mapstructure:"copilot_complex_model"`
	SummaryModel        string `yaml:"summary_model" mapstructure:"summary_model"`
}

func (c *LLMConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.ScreeningModel == "" {
		c.ScreeningModel = "haiku"
	}
	if c.AnalysisModel == "" {
		c.AnalysisModel = "sonnet"
	}
	if c.CopilotSimpleModel == "" {
		c.CopilotSimpleModel = "haiku"
	}
	if c.CopilotComplexModel == "" {
		c.CopilotComplexModel = "sonnet"
	}
	if c.SummaryModel == "" {
		c.SummaryModel = "sonnet"
	}
}

// InsightConfig configures the staged pipeline and the session budget.
type InsightConfig struct {
	BudgetUSD       float64 `yaml:"budget_usd" mapstructure:"budget_usd" validate:"gte=0"`
	MaxContextChars int     `yaml:"max_context_chars" mapstructure:"max_context_chars"`
}

func (c *InsightConfig) ApplyDefaults() {
	if c.BudgetUSD == 0 {
		c.BudgetUSD = 1.00
	}
	if c.MaxContextChars == 0 {
		c.MaxContextChars = 12000
	}
}

// ClientConfig configures the capture-side duplex client.
type ClientConfig struct {
	ServerURL         string        `yaml:"server_url" mapstructure:"server_url"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	ReconnectInitial  time.Duration `yaml:"reconnect_initial" mapstructure:"reconnect_initial"`
	ReconnectMax      time.Duration `yaml:"reconnect_max" mapstructure:"reconnect_max"`
}

func (c *ClientConfig) ApplyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "ws://localhost:8000/ws"
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.ReconnectInitial == 0 {
		c.ReconnectInitial = 500 * time.Millisecond
	}
	if c.ReconnectMax == 0 {
		c.ReconnectMax = 15 * time.Second
	}
}

// StoreConfig configures meeting persistence.
type StoreConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	ExportMarkdown bool   `yaml:"export_markdown" mapstructure:"export_markdown"`
}

func (c *StoreConfig) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = "./meetings"
	}
}

// Config is the full meetmind configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Audio   AudioConfig   `yaml:"audio" mapstructure:"audio"`
	STT     STTConfig     `yaml:"stt" mapstructure:"stt"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Insight InsightConfig `yaml:"insight" mapstructure:"insight"`
	Client  ClientConfig  `yaml:"client" mapstructure:"client"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	cfg := Config{}
	cfg.Name = "meetmind"
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Audio.ApplyDefaults()
	c.STT.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Insight.ApplyDefaults()
	c.Client.ApplyDefaults()
	c.Store.ApplyDefaults()
}

var validate = validator.New()

// Validate validates the full configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.STT.ContextSeconds >= c.STT.StepSeconds {
		return fmt.Errorf("stt.context_seconds (%v) must be smaller than stt.step_seconds (%v)", c.STT.ContextSeconds, c.STT.StepSeconds)
	}
	return nil
}
