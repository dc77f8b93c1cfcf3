package session

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetmind/meetmind/audio"
	"github.com/meetmind/meetmind/insight"
	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/meeting"
	"github.com/meetmind/meetmind/stt"
)

// fakeRecognizer returns scripted texts in call order, repeating the last.
type fakeRecognizer struct {
	mu     sync.Mutex
	script []string
	calls  int
}

func (f *fakeRecognizer) Name() string                         { return "fake" }
func (f *fakeRecognizer) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeRecognizer) Recognize(ctx context.Context, req stt.Request) (*stt.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++
	return &stt.Result{Text: f.script[idx], Language: "en"}, nil
}

// fakeProvider returns scripted completions in call order.
type fakeProvider struct {
	mu     sync.Mutex
	script []string
	calls  int
}

func (f *fakeProvider) Name() string                         { return "fake" }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) next() (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++
	return &llm.CompletionResponse{
		Content: f.script[idx],
		Usage:   llm.Usage{PromptTokens: 100, CompletionTokens: 20},
	}, nil
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f.next()
}

func (f *fakeProvider) CompleteStructured(ctx context.Context, req llm.CompletionRequest, schema any) (*llm.CompletionResponse, error) {
	return f.next()
}

// memStore records saved sessions.
type memStore struct {
	mu      sync.Mutex
	records []meeting.Record
}

func (s *memStore) Save(ctx context.Context, rec meeting.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) saved() []meeting.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]meeting.Record, len(s.records))
	copy(out, s.records)
	return out
}

func newTestHub(t *testing.T, rec stt.Recognizer, provider llm.Provider, store Store) (*httptest.Server, string) {
	t.Helper()
	hub := NewHub(rec, provider, store, HubConfig{
		Engine: stt.EngineConfig{StepSeconds: 2.0, ContextSeconds: 0.5},
		Pipeline: insight.PipelineConfig{
			ScreeningModel:      "haiku",
			AnalysisModel:       "sonnet",
			CopilotSimpleModel:  "haiku",
			CopilotComplexModel: "sonnet",
			SummaryModel:        "sonnet",
			BudgetUSD:           1.00,
		},
		FinishTimeout: 5 * time.Second,
	})
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// collectMessages reads server messages by type until quiet or deadline.
func collectMessages(t *testing.T, ws *websocket.Conn, window time.Duration) map[string][]json.RawMessage {
	t.Helper()
	byType := make(map[string][]json.RawMessage)
	deadline := time.Now().Add(window)
	for {
		ws.SetReadDeadline(deadline)
		_, data, err := ws.ReadMessage()
		if err != nil {
			return byType
		}
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		byType[env.Type] = append(byType[env.Type], json.RawMessage(data))
	}
}

func twoSecondsAudio() []byte {
	return audio.EncodeSamples(make([]float32, 32000))
}

func TestHub_TranscriptAndPipelineFlow(t *testing.T) {
	rec := &fakeRecognizer{script: []string{"we will ship friday", ""}}
	provider := &fakeProvider{script: []string{
		`{"relevant": true, "reason": "decision discussed"}`,
		`{"title": "Ship date", "analysis": "Friday it is.", "recommendation": "Confirm scope.", "category": "decision"}`,
	}}
	store := &memStore{}
	_, url := newTestHub(t, rec, provider, store)

	ws := dialWS(t, url)

	var connected ConnectedMessage
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &connected))
	assert.Equal(t, TypeConnected, connected.Type)
	assert.NotEmpty(t, connected.ConnectionID)
	assert.NotEmpty(t, connected.MeetingID)

	// First 2 s of audio: one recognition pass, one partial ack.
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, twoSecondsAudio()))

	var partial TranscriptAckMessage
	_, data, err = ws.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &partial))
	assert.Equal(t, TypeTranscriptAck, partial.Type)
	assert.True(t, partial.Partial)
	assert.Equal(t, "we will ship friday", partial.Text)

	// Next 2 s recognize as silence: the segment finalizes and the
	// pipeline screens then analyzes it.
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, twoSecondsAudio()))

	msgs := collectMessages(t, ws, 2*time.Second)

	require.Len(t, msgs[TypeTranscriptAck], 1)
	var final TranscriptAckMessage
	require.NoError(t, json.Unmarshal(msgs[TypeTranscriptAck][0], &final))
	assert.False(t, final.Partial)
	assert.Equal(t, "we will ship friday", final.Text)
	assert.Equal(t, partial.SegmentID, final.SegmentID)

	require.Len(t, msgs[TypeScreening], 1)
	var screening ScreeningMessage
	require.NoError(t, json.Unmarshal(msgs[TypeScreening][0], &screening))
	assert.True(t, screening.Relevant)
	assert.Equal(t, final.SegmentID, screening.SegmentID)

	require.Len(t, msgs[TypeAnalysis], 1)
	var analysis AnalysisMessage
	require.NoError(t, json.Unmarshal(msgs[TypeAnalysis][0], &analysis))
	assert.Equal(t, "Ship date", analysis.Insight.Title)

	// Screening and analysis each record a billed call.
	assert.Len(t, msgs[TypeCostUpdate], 2)
}

func TestHub_CopilotAndSummary(t *testing.T) {
	rec := &fakeRecognizer{script: []string{""}}
	provider := &fakeProvider{script: []string{
		"Raise the rollback plan.",
		`{"title": "Standup", "summary": "Short sync.", "key_topics": ["release"]}`,
	}}
	store := &memStore{}
	_, url := newTestHub(t, rec, provider, store)

	ws := dialWS(t, url)
	_, _, err := ws.ReadMessage() // connected
	require.NoError(t, err)

	query, _ := json.Marshal(ControlMessage{Type: TypeCopilotQuery, Question: "why is this deploy risky?"})
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, query))

	msgs := collectMessages(t, ws, 2*time.Second)
	require.Len(t, msgs[TypeCopilotResponse], 1)
	var copilot CopilotResponseMessage
	require.NoError(t, json.Unmarshal(msgs[TypeCopilotResponse][0], &copilot))
	assert.False(t, copilot.Error)
	assert.Equal(t, "Raise the rollback plan.", copilot.Answer)

	// Summary over an empty transcript is stubbed without a provider call,
	// so feed one segment first via the engine-free path: ask anyway and
	// accept the stub.
	gen, _ := json.Marshal(ControlMessage{Type: TypeGenerateSummary})
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, gen))

	msgs = collectMessages(t, ws, 2*time.Second)
	require.Len(t, msgs[TypeMeetingSummary], 1)
	var summary MeetingSummaryMessage
	require.NoError(t, json.Unmarshal(msgs[TypeMeetingSummary][0], &summary))
	assert.Empty(t, summary.Error)
	require.NotNil(t, summary.Summary)
	assert.Equal(t, "Empty Meeting", summary.Summary.Title)
}

func TestHub_PingPong(t *testing.T) {
	_, url := newTestHub(t, &fakeRecognizer{script: []string{""}}, &fakeProvider{script: []string{"{}"}}, nil)

	ws := dialWS(t, url)
	_, _, err := ws.ReadMessage() // connected
	require.NoError(t, err)

	ping, _ := json.Marshal(ControlMessage{Type: TypePing})
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, ping))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypePong, env.Type)
}

func TestHub_UnknownControlType(t *testing.T) {
	_, url := newTestHub(t, &fakeRecognizer{script: []string{""}}, &fakeProvider{script: []string{"{}"}}, nil)

	ws := dialWS(t, url)
	_, _, err := ws.ReadMessage() // connected
	require.NoError(t, err)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeError, env.Type)
}

func TestHub_MalformedAudioFrame(t *testing.T) {
	_, url := newTestHub(t, &fakeRecognizer{script: []string{""}}, &fakeProvider{script: []string{"{}"}}, nil)

	ws := dialWS(t, url)
	_, _, err := ws.ReadMessage() // connected
	require.NoError(t, err)

	// Three bytes is less than one float32 sample.
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var errMsg ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, TypeError, errMsg.Type)
	assert.Contains(t, errMsg.Error.Message, "frame")
}

func TestHub_StopPersistsSession(t *testing.T) {
	rec := &fakeRecognizer{script: []string{"quick note", ""}}
	provider := &fakeProvider{script: []string{`{"relevant": false, "reason": "noise"}`}}
	store := &memStore{}
	_, url := newTestHub(t, rec, provider, store)

	ws := dialWS(t, url)
	_, _, err := ws.ReadMessage() // connected
	require.NoError(t, err)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, twoSecondsAudio()))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, twoSecondsAudio()))

	stop, _ := json.Marshal(ControlMessage{Type: TypeStop})
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, stop))

	require.Eventually(t, func() bool {
		return len(store.saved()) == 1
	}, 5*time.Second, 50*time.Millisecond, "session should be persisted on stop")

	recs := store.saved()
	assert.Equal(t, meeting.StatusStopped, recs[0].Status)
	require.NotEmpty(t, recs[0].Segments)
	assert.Equal(t, "quick note", recs[0].Segments[0].Text)
	assert.True(t, recs[0].Segments[0].Final)
}
