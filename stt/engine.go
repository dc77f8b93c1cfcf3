package stt

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/logger"
)

// EngineConfig configures the streaming engine's rolling window.
type EngineConfig struct {
	SampleRate int
	// StepSeconds is how much buffered audio triggers a recognition pass.
	StepSeconds float64
	// ContextSeconds is how much trailing audio is retained across passes
	// to preserve recognition context at window boundaries.
	ContextSeconds float64
	// MaxSegmentSeconds bounds the active segment before a forced finalize.
	MaxSegmentSeconds float64
	Language          string
	Model             string
}

func (c *EngineConfig) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
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

// Update is a transcript change produced by the engine. Partial updates
// replace the previous partial; final updates close a segment.
type Update struct {
	Text    string `json:"text"`
	Partial bool   `json:"partial"`
	// Speaker is the dominant diarization label for the active segment,
	// when the recognizer provides one.
	Speaker  string `json:"speaker,omitempty"`
	Language string `json:"language,omitempty"`
}

// Stats summarizes a finished engine run.
type Stats struct {
	Segments int           `json:"segments"`
	Passes   int           `json:"passes"`
	Failures int           `json:"failures"`
	Language string        `json:"language,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Engine is a per-session streaming transcription context.
//
// Audio is accumulated until a full step is buffered, then recognized in
// one pass over the whole buffer. After a successful pass only the trailing
// context is retained, so the buffer stays bounded by step+context between
// passes. A failed pass keeps the buffer intact and retries on the next
// push.
type Engine struct {
	rec Recognizer
	cfg EngineConfig
	log *logger.Logger

	mu          sync.Mutex
	buffer      []float32
	parts       []string
	lastPass    string
	lastPartial string
	speaker     string
	language    string
	segments    int
	passes      int
	failures    int
	segSeconds  float64
	started     time.Time
}

// NewEngine creates a streaming engine over the given recognizer.
func NewEngine(rec Recognizer, cfg EngineConfig) *Engine {
	cfg.applyDefaults()
	return &Engine{
		rec: rec,
		cfg: cfg,
		log: logger.WithComponent("stt-engine"),
	}
}

// Push appends samples and runs recognition passes for every full step
// buffered. It returns the transcript updates the passes produced.
//
// Recognition failures are swallowed: the buffer is retained and the same
// audio is retried on the next push.
func (e *Engine) Push(ctx context.Context, samples []float32) []Update {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started.IsZero() {
		e.started = time.Now()
	}
	e.buffer = append(e.buffer, samples...)

	stepSamples := int(float64(e.cfg.SampleRate) * e.cfg.StepSeconds)
	contextSamples := int(float64(e.cfg.SampleRate) * e.cfg.ContextSeconds)

	var updates []Update
	for len(e.buffer) >= stepSamples {
		res, err := e.rec.Recognize(ctx, Request{
			Samples:    e.buffer,
			SampleRate: e.cfg.SampleRate,
			Language:   e.cfg.Language,
			Model:      e.cfg.Model,
		})
		if err != nil {
			e.failures++
			e.log.Warn("recognition pass failed, retaining buffer",
				logger.ErrorFields("recognize", err))
			break
		}
		e.passes++

		keep := contextSamples
		if keep > len(e.buffer) {
			keep = len(e.buffer)
		}
		consumed := len(e.buffer) - keep
		e.buffer = append([]float32(nil), e.buffer[len(e.buffer)-keep:]...)
		e.segSeconds += float64(consumed) / float64(e.cfg.SampleRate)

		if e.language == "" && res.Language != "" {
			e.language = res.Language
		}
		if sp := dominantSpeaker(res.Segments); sp != "" {
			e.speaker = sp
		}

		text := strings.TrimSpace(res.Text)
		if text == "" {
			// Silence closes the active segment.
			if len(e.parts) > 0 {
				updates = append(updates, e.finalizeLocked())
			}
			continue
		}

		// The retained context audio is re-recognized on every pass, so
		// strip the words already covered by the previous pass before
		// appending.
		fresh := stripOverlap(e.lastPass, text)
		e.lastPass = text
		if fresh != "" {
			e.parts = append(e.parts, fresh)
		}
		partial := strings.Join(e.parts, " ")
		if partial != e.lastPartial {
			e.lastPartial = partial
			updates = append(updates, Update{Text: partial, Partial: true, Speaker: e.speaker, Language: e.language})
		}

		if e.cfg.MaxSegmentSeconds > 0 && e.segSeconds >= e.cfg.MaxSegmentSeconds {
			updates = append(updates, e.finalizeLocked())
		}
	}
	return updates
}

// Finish runs a final pass over any remaining audio, closes the active
// segment, and resets the engine. Unlike Push, a recognition failure here
// is returned to the caller.
func (e *Engine) Finish(ctx context.Context) ([]Update, Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.buffer) > 0 {
		res, err := e.rec.Recognize(ctx, Request{
			Samples:    e.buffer,
			SampleRate: e.cfg.SampleRate,
			Language:   e.cfg.Language,
			Model:      e.cfg.Model,
		})
		if err != nil {
			return nil, e.statsLocked(), apperrors.RecognitionFailure(err)
		}
		e.passes++
		if e.language == "" && res.Language != "" {
			e.language = res.Language
		}
		if sp := dominantSpeaker(res.Segments); sp != "" {
			e.speaker = sp
		}
		if text := strings.TrimSpace(res.Text); text != "" {
			if fresh := stripOverlap(e.lastPass, text); fresh != "" {
				e.parts = append(e.parts, fresh)
			}
			e.lastPass = text
		}
	}

	var updates []Update
	if len(e.parts) > 0 {
		updates = append(updates, e.finalizeLocked())
	}

	stats := e.statsLocked()
	e.buffer = nil
	e.lastPass = ""
	e.lastPartial = ""
	e.segSeconds = 0
	e.started = time.Time{}
	return updates, stats, nil
}

// Transcribe is the single-shot batch path: one recognition pass over the
// given samples, independent of the streaming buffer.
func (e *Engine) Transcribe(ctx context.Context, samples []float32) (*Result, error) {
	res, err := e.rec.Recognize(ctx, Request{
		Samples:    samples,
		SampleRate: e.cfg.SampleRate,
		Language:   e.cfg.Language,
		Model:      e.cfg.Model,
	})
	if err != nil {
		return nil, apperrors.RecognitionFailure(err)
	}
	return res, nil
}

// BufferSeconds returns the currently buffered audio duration.
func (e *Engine) BufferSeconds() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(len(e.buffer)) / float64(e.cfg.SampleRate)
}

func (e *Engine) finalizeLocked() Update {
	text := strings.Join(e.parts, " ")
	speaker := e.speaker
	e.parts = nil
	e.lastPass = ""
	e.lastPartial = ""
	e.speaker = ""
	e.segSeconds = 0
	e.segments++
	return Update{Text: text, Partial: false, Speaker: speaker, Language: e.language}
}

// stripOverlap drops from the head of text the longest run of words that
// matches the tail of prev. Comparison is case-insensitive since passes
// may capitalize boundary words differently.
func stripOverlap(prev, text string) string {
	prevWords := strings.Fields(prev)
	words := strings.Fields(text)
	limit := len(prevWords)
	if len(words) < limit {
		limit = len(words)
	}
	for n := limit; n > 0; n-- {
		if wordsEqualFold(prevWords[len(prevWords)-n:], words[:n]) {
			return strings.Join(words[n:], " ")
		}
	}
	return text
}

func wordsEqualFold(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// dominantSpeaker picks the diarization label with the most speaking time
// across a pass's segments.
func dominantSpeaker(segments []Segment) string {
	totals := make(map[string]float64)
	for _, s := range segments {
		if s.Speaker != "" {
			totals[s.Speaker] += s.End - s.Start
		}
	}
	var best string
	var bestTotal float64
	for sp, total := range totals {
		if total > bestTotal {
			best, bestTotal = sp, total
		}
	}
	return best
}

func (e *Engine) statsLocked() Stats {
	var elapsed time.Duration
	if !e.started.IsZero() {
		elapsed = time.Since(e.started)
	}
	return Stats{
		Segments: e.segments,
		Passes:   e.passes,
		Failures: e.failures,
		Language: e.language,
		Elapsed:  elapsed,
	}
}
