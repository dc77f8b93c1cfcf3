package meeting

import (
	"sync"

	"github.com/meetmind/meetmind/logger"
)

// MaxSpeakers is the cap on unique speakers tracked per session.
const MaxSpeakers = 8

// DefaultSpeakerColor is used for unknown speakers.
const DefaultSpeakerColor = "#6B7280"

// Session-wide speaker names, assigned in order of appearance.
var speakerNames = []string{
	"Speaker A",
	"Speaker B",
	"Speaker C",
	"Speaker D",
	"Speaker E",
	"Speaker F",
	"Speaker G",
	"Speaker H",
}

// UI color palette, index-aligned with speakerNames.
var speakerColors = []string{
	"#3B82F6",
	"#10B981",
	"#F59E0B",
	"#EF4444",
	"#8B5CF6",
	"#EC4899",
	"#06B6D4",
	"#84CC16",
}

// SpeakerProfile is one tracked speaker.
type SpeakerProfile struct {
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	TotalDurationMS float64 `json:"total_duration_ms"`
}

// SpeakerTracker maps per-chunk diarization labels to consistent
// session-wide speaker names. Diarizers assign arbitrary labels per chunk
// (SPEAKER_00, SPEAKER_01...); the tracker pins each new label to the next
// free name in order of appearance so a speaker keeps one identity for the
// whole meeting.
type SpeakerTracker struct {
	mu          sync.Mutex
	maxSpeakers int
	profiles    []*SpeakerProfile
	labelMap    map[string]string
	log         *logger.Logger
}

// NewSpeakerTracker creates a tracker capped at maxSpeakers (clamped to the
// name palette).
func NewSpeakerTracker(maxSpeakers int) *SpeakerTracker {
	if maxSpeakers <= 0 || maxSpeakers > len(speakerNames) {
		maxSpeakers = len(speakerNames)
	}
	return &SpeakerTracker{
		maxSpeakers: maxSpeakers,
		labelMap:    make(map[string]string),
		log:         logger.WithComponent("speakers"),
	}
}

// Map resolves a chunk label to its session-wide speaker name and color.
// A label seen before keeps its mapping; a new label claims the next free
// name. Once the cap is reached, new labels fold into the last known
// speaker.
func (t *SpeakerTracker) Map(chunkLabel string) (name, color string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if mapped, ok := t.labelMap[chunkLabel]; ok {
		return mapped, t.colorLocked(mapped)
	}

	idx := len(t.profiles)
	if idx >= t.maxSpeakers {
		fallback := "unknown"
		if len(t.profiles) > 0 {
			fallback = t.profiles[len(t.profiles)-1].Name
		}
		t.log.Warn("speaker cap reached", logger.Fields(
			"max_speakers", t.maxSpeakers,
			"label", chunkLabel,
		))
		t.labelMap[chunkLabel] = fallback
		return fallback, t.colorLocked(fallback)
	}

	p := &SpeakerProfile{Name: speakerNames[idx], Color: speakerColors[idx]}
	t.profiles = append(t.profiles, p)
	t.labelMap[chunkLabel] = p.Name

	t.log.Info("new speaker detected", logger.Fields(
		logger.FieldSpeaker, p.Name,
		"label", chunkLabel,
		"total_speakers", len(t.profiles),
	))
	return p.Name, p.Color
}

// RecordDuration adds speaking time to a tracked speaker.
func (t *SpeakerTracker) RecordDuration(name string, durationMS float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.profiles {
		if p.Name == name {
			p.TotalDurationMS += durationMS
			return
		}
	}
}

// Color returns the speaker's UI color, or the default gray when unknown.
func (t *SpeakerTracker) Color(name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.colorLocked(name)
}

// Count returns the number of unique speakers detected so far.
func (t *SpeakerTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.profiles)
}

// Profiles returns a copy of the tracked speakers in order of appearance.
func (t *SpeakerTracker) Profiles() []SpeakerProfile {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SpeakerProfile, len(t.profiles))
	for i, p := range t.profiles {
		out[i] = *p
	}
	return out
}

func (t *SpeakerTracker) colorLocked(name string) string {
	for _, p := range t.profiles {
		if p.Name == name {
			return p.Color
		}
	}
	return DefaultSpeakerColor
}
