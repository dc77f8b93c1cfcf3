package stt

import (
	"context"
	"errors"
	"testing"
)

// fakeRecognizer returns scripted results in order; once the script is
// exhausted it keeps returning the last entry.
type fakeRecognizer struct {
	script []fakeResult
	calls  int
}

type fakeResult struct {
	text string
	lang string
	segs []Segment
	err  error
}

func (f *fakeRecognizer) Name() string                         { return "fake" }
func (f *fakeRecognizer) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeRecognizer) Recognize(ctx context.Context, req Request) (*Result, error) {
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++
	r := f.script[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &Result{Text: r.text, Language: r.lang, Segments: r.segs}, nil
}

func frames(n int, seconds float64) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, int(16000*seconds))
	}
	return out
}

func TestEngine_Push_StepAndRetention(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{text: "hello world", lang: "en"}}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5})

	var updates []Update
	// 2.5 s of audio in 250 ms frames: one pass fires at the 2 s boundary.
	for _, f := range frames(10, 0.25) {
		updates = append(updates, engine.Push(context.Background(), f)...)
	}

	if rec.calls != 1 {
		t.Fatalf("recognition passes = %d, want 1", rec.calls)
	}
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1 partial", len(updates))
	}
	if !updates[0].Partial || updates[0].Text != "hello world" {
		t.Errorf("update = %+v, want partial 'hello world'", updates[0])
	}
	if updates[0].Language != "en" {
		t.Errorf("Language = %q, want en", updates[0].Language)
	}

	// 0.5 s context retained plus the 0.5 s pushed after the pass.
	if got := engine.BufferSeconds(); got != 1.0 {
		t.Errorf("BufferSeconds = %v, want 1.0", got)
	}
}

func TestEngine_Push_BufferBounded(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{text: "steady"}}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5})

	for _, f := range frames(40, 0.25) { // 10 s of audio
		engine.Push(context.Background(), f)
	}

	if got := engine.BufferSeconds(); got > 2.5 {
		t.Errorf("BufferSeconds = %v, want <= step+context (2.5)", got)
	}
}

func TestEngine_SilenceFinalizesSegment(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{text: "same"}, {text: ""}}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5})

	first := engine.Push(context.Background(), make([]float32, 16000*2))
	if len(first) != 1 {
		t.Fatalf("first push updates = %d, want 1", len(first))
	}

	// The next pass recognizes silence and finalizes the segment.
	second := engine.Push(context.Background(), make([]float32, 16000*2))
	if len(second) != 1 {
		t.Fatalf("second push updates = %d, want 1 final", len(second))
	}
	if second[0].Partial {
		t.Error("silence should produce a final update, not a partial")
	}
	if second[0].Text != "same" {
		t.Errorf("final text = %q, want 'same'", second[0].Text)
	}
}

func TestEngine_Push_ContextOverlapNotDuplicated(t *testing.T) {
	// The second pass re-recognizes the retained context ("world") plus the
	// new audio; its overlap with the first pass must not be re-emitted.
	rec := &fakeRecognizer{script: []fakeResult{
		{text: "hello world"},
		{text: "World again"},
		{text: ""},
	}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5})

	first := engine.Push(context.Background(), make([]float32, 16000*2))
	if len(first) != 1 || first[0].Text != "hello world" {
		t.Fatalf("first updates = %+v, want one 'hello world' partial", first)
	}

	second := engine.Push(context.Background(), make([]float32, 16000*2))
	if len(second) != 1 || second[0].Text != "hello world again" {
		t.Fatalf("second updates = %+v, want one 'hello world again' partial", second)
	}

	final := engine.Push(context.Background(), make([]float32, 16000*2))
	if len(final) != 1 || final[0].Partial {
		t.Fatalf("third updates = %+v, want one final", final)
	}
	if final[0].Text != "hello world again" {
		t.Errorf("final text = %q, want 'hello world again'", final[0].Text)
	}
}

func TestStripOverlap(t *testing.T) {
	tests := []struct {
		name string
		prev string
		text string
		want string
	}{
		{"no previous pass", "", "hello world", "hello world"},
		{"no overlap", "hello world", "brand new", "brand new"},
		{"single word overlap", "hello world", "world again", "again"},
		{"multi word overlap", "we will ship", "will ship friday", "friday"},
		{"case differs at boundary", "hello world", "World again", "again"},
		{"full repeat", "steady", "steady", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripOverlap(tt.prev, tt.text); got != tt.want {
				t.Errorf("stripOverlap(%q, %q) = %q, want %q", tt.prev, tt.text, got, tt.want)
			}
		})
	}
}

func TestEngine_Push_FailureRetainsBuffer(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{
		{err: errors.New("sidecar down")},
		{text: "recovered"},
	}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5})

	updates := engine.Push(context.Background(), make([]float32, 16000*2))
	if len(updates) != 0 {
		t.Fatalf("failed pass should produce no updates, got %d", len(updates))
	}
	if got := engine.BufferSeconds(); got != 2.0 {
		t.Errorf("BufferSeconds = %v, want 2.0 retained after failure", got)
	}

	// The retained audio is retried on the next push.
	updates = engine.Push(context.Background(), make([]float32, 16000/2))
	if len(updates) != 1 || updates[0].Text != "recovered" {
		t.Fatalf("retry updates = %+v, want one 'recovered' partial", updates)
	}
}

func TestEngine_Finish(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{text: "first part"}, {text: "tail", lang: "en"}}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5})

	engine.Push(context.Background(), make([]float32, 16000*2))

	updates, stats, err := engine.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if len(updates) != 1 || updates[0].Partial {
		t.Fatalf("Finish updates = %+v, want one final", updates)
	}
	if updates[0].Text != "first part tail" {
		t.Errorf("final text = %q, want 'first part tail'", updates[0].Text)
	}
	if stats.Segments != 1 {
		t.Errorf("Segments = %d, want 1", stats.Segments)
	}
	if stats.Passes != 2 {
		t.Errorf("Passes = %d, want 2", stats.Passes)
	}
	if engine.BufferSeconds() != 0 {
		t.Error("Finish should clear the buffer")
	}
}

func TestEngine_Finish_PropagatesError(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{err: errors.New("down")}}}
	engine := NewEngine(rec, EngineConfig{})

	engine.Push(context.Background(), make([]float32, 16000)) // below step, buffered only

	_, _, err := engine.Finish(context.Background())
	if err == nil {
		t.Fatal("Finish should propagate recognition errors")
	}
}

func TestEngine_MaxSegmentForcesFinal(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{text: "chunk"}}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5, MaxSegmentSeconds: 4.0})

	var finals int
	for _, f := range frames(24, 0.25) { // 6 s of audio
		for _, u := range engine.Push(context.Background(), f) {
			if !u.Partial {
				finals++
			}
		}
	}
	if finals == 0 {
		t.Error("expected at least one forced final after max segment duration")
	}
}

func TestEngine_Push_DominantSpeakerCarried(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{
		text: "two voices",
		segs: []Segment{
			{Start: 0, End: 1.5, Text: "two", Speaker: "SPEAKER_00"},
			{Start: 1.5, End: 2.0, Text: "voices", Speaker: "SPEAKER_01"},
		},
	}}}
	engine := NewEngine(rec, EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5})

	updates := engine.Push(context.Background(), make([]float32, 16000*2))
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	if updates[0].Speaker != "SPEAKER_00" {
		t.Errorf("Speaker = %q, want dominant SPEAKER_00", updates[0].Speaker)
	}
}

func TestEngine_Transcribe(t *testing.T) {
	rec := &fakeRecognizer{script: []fakeResult{{text: "one shot", lang: "en"}}}
	engine := NewEngine(rec, EngineConfig{})

	res, err := engine.Transcribe(context.Background(), make([]float32, 16000))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if res.Text != "one shot" {
		t.Errorf("Text = %q, want 'one shot'", res.Text)
	}
	if engine.BufferSeconds() != 0 {
		t.Error("Transcribe must not touch the streaming buffer")
	}
}
