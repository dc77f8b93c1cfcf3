package meeting

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/insight"
	"github.com/meetmind/meetmind/logger"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRecording Status = "recording"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
)

// Allowed lifecycle transitions. Stopped is terminal.
var validTransitions = map[Status][]Status{
	StatusIdle:      {StatusRecording},
	StatusRecording: {StatusPaused, StatusStopped},
	StatusPaused:    {StatusRecording, StatusStopped},
	StatusStopped:   {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Segment is one transcript segment. Partial segments are replaced in place
// until finalized; final segments are immutable.
type Segment struct {
	ID           int64     `json:"id"`
	Speaker      string    `json:"speaker,omitempty"`
	SpeakerColor string    `json:"speaker_color,omitempty"`
	Text         string    `json:"text"`
	Final        bool      `json:"final"`
	Relevant     bool      `json:"relevant"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record is an immutable export of a finished session, handed to the store.
type Record struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Status    Status               `json:"status"`
	StartedAt time.Time            `json:"started_at"`
	EndedAt   time.Time            `json:"ended_at,omitempty"`
	Segments  []Segment            `json:"segments"`
	Insights  []insight.Insight    `json:"insights"`
	Summary   *insight.Summary     `json:"summary,omitempty"`
	Speakers  []SpeakerProfile     `json:"speakers,omitempty"`
	Cost      insight.CostSnapshot `json:"cost"`
}

// Session is the aggregate root for one meeting: identity, lifecycle
// status, the ordered transcript, insights, and the summary. All mutation
// goes through the session lock; at most one non-final segment exists at
// any time.
type Session struct {
	mu        sync.Mutex
	id        string
	title     string
	status    Status
	startedAt time.Time
	endedAt   time.Time
	segments  []Segment
	active    *Segment
	insights  []insight.Insight
	summary   *insight.Summary
	speakers  *SpeakerTracker
	nextID    int64
	log       *logger.Logger
}

// NewSession creates an idle session with a fresh ID.
func NewSession(title string) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		title:    title,
		status:   StatusIdle,
		speakers: NewSpeakerTracker(MaxSpeakers),
		nextID:   1,
		log:      logger.WithComponent("session").WithFields(logger.Fields(logger.FieldMeetingID, id)),
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Title() string             { return s.title }
func (s *Session) Speakers() *SpeakerTracker { return s.speakers }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start moves Idle to Recording.
func (s *Session) Start() error {
	return s.transition(StatusRecording, func() { s.startedAt = time.Now() })
}

// Pause moves Recording to Paused. The capture side stops producing frames
// but the channel stays up.
func (s *Session) Pause() error {
	return s.transition(StatusPaused, nil)
}

// Resume moves Paused back to Recording.
func (s *Session) Resume() error {
	return s.transition(StatusRecording, nil)
}

// Stop moves any non-idle state to Stopped. An active partial at stop time
// is finalized so its text is not lost. After Stop only the summary may
// still change.
func (s *Session) Stop() error {
	return s.transition(StatusStopped, func() {
		s.endedAt = time.Now()
		if s.active != nil {
			s.active.Final = true
			s.segments = append(s.segments, *s.active)
			s.active = nil
		}
	})
}

func (s *Session) transition(to Status, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.status, to) {
		return apperrors.InvalidState(string(s.status), string(to))
	}
	from := s.status
	s.status = to
	if apply != nil {
		apply()
	}
	s.log.Info("session state changed", logger.Fields("from", string(from), "to", string(to)))
	return nil
}

// ApplyPartial replaces the single active partial segment in place, or
// opens one when none is active. Rejected unless the session is Recording.
func (s *Session) ApplyPartial(text, speakerLabel string) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRecording {
		return Segment{}, apperrors.InvalidState(string(s.status), "partial update")
	}

	speaker, color := s.resolveSpeaker(speakerLabel)
	if s.active == nil {
		s.active = &Segment{
			ID:        s.nextID,
			CreatedAt: time.Now(),
		}
		s.nextID++
	}
	s.active.Text = text
	s.active.Speaker = speaker
	s.active.SpeakerColor = color
	return *s.active, nil
}

// ApplyFinal closes the active partial with the finalized text, or appends
// a standalone final segment when none is active. Allowed while Recording
// or Paused (the engine drains its buffer on pause and stop).
func (s *Session) ApplyFinal(text, speakerLabel string) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRecording && s.status != StatusPaused {
		return Segment{}, apperrors.InvalidState(string(s.status), "final update")
	}
	if strings.TrimSpace(text) == "" && s.active == nil {
		return Segment{}, apperrors.InvalidInput("text", "empty final segment")
	}

	speaker, color := s.resolveSpeaker(speakerLabel)
	var seg Segment
	if s.active != nil {
		seg = *s.active
		s.active = nil
	} else {
		seg = Segment{ID: s.nextID, CreatedAt: time.Now()}
		s.nextID++
	}
	if text != "" {
		seg.Text = text
	}
	if speaker != "" {
		seg.Speaker = speaker
		seg.SpeakerColor = color
	}
	seg.Final = true
	s.segments = append(s.segments, seg)
	return seg, nil
}

// MarkScreened records the screening verdict on a finalized segment.
func (s *Session) MarkScreened(segmentID int64, relevant bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.segments {
		if s.segments[i].ID == segmentID {
			s.segments[i].Relevant = relevant
			return
		}
	}
}

// AppendInsight appends an insight in arrival order. Rejected once the
// session is Stopped.
func (s *Session) AppendInsight(ins insight.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusStopped {
		return apperrors.InvalidState(string(s.status), "append insight")
	}
	s.insights = append(s.insights, ins)
	return nil
}

// SetSummary stores the meeting summary, replacing any previous one.
// Permitted after Stop: summary regeneration is the one post-stop mutation.
func (s *Session) SetSummary(sum insight.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &sum
}

// Summary returns the current summary, or nil.
func (s *Session) Summary() *insight.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return nil
	}
	sum := *s.summary
	return &sum
}

// Segments returns a copy of the finalized transcript, with the active
// partial appended last when one exists.
func (s *Session) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Segment, len(s.segments), len(s.segments)+1)
	copy(out, s.segments)
	if s.active != nil {
		out = append(out, *s.active)
	}
	return out
}

// Insights returns a copy of the insights in arrival order.
func (s *Session) Insights() []insight.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]insight.Insight, len(s.insights))
	copy(out, s.insights)
	return out
}

// FullTranscript renders the finalized transcript as speaker-attributed
// lines, the context fed to the copilot and summary stages.
func (s *Session) FullTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, seg := range s.segments {
		if seg.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Snapshot exports the session for persistence.
func (s *Session) Snapshot(cost insight.CostSnapshot) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		ID:        s.id,
		Title:     s.title,
		Status:    s.status,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
		Segments:  make([]Segment, len(s.segments)),
		Insights:  make([]insight.Insight, len(s.insights)),
		Speakers:  s.speakers.Profiles(),
		Cost:      cost,
	}
	copy(rec.Segments, s.segments)
	copy(rec.Insights, s.insights)
	if s.summary != nil {
		sum := *s.summary
		rec.Summary = &sum
	}
	return rec
}

func (s *Session) resolveSpeaker(label string) (name, color string) {
	if label == "" {
		return "", ""
	}
	return s.speakers.Map(label)
}
