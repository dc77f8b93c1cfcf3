package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meetmind/meetmind/audio"
	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/insight"
	"github.com/meetmind/meetmind/llm"
	"github.com/meetmind/meetmind/logger"
	"github.com/meetmind/meetmind/meeting"
	"github.com/meetmind/meetmind/stt"
)

const writeTimeout = 10 * time.Second

// Store persists finished sessions. Save failures are logged, never fatal.
type Store interface {
	Save(ctx context.Context, rec meeting.Record) error
}

// HubConfig configures per-connection resources.
type HubConfig struct {
	Engine         stt.EngineConfig
	Pipeline       insight.PipelineConfig
	AllowedOrigins []string
	// FinishTimeout bounds the final drain on disconnect.
	FinishTimeout time.Duration
}

func (c *HubConfig) applyDefaults() {
	if c.FinishTimeout == 0 {
		c.FinishTimeout = 30 * time.Second
	}
}

// Hub accepts websocket connections and gives each one its own
// transcription engine, insight pipeline, and meeting session. Sessions
// are fully independent; nothing is shared across connections but the
// recognizer and LLM provider, which are stateless per call.
type Hub struct {
	recognizer stt.Recognizer
	provider   llm.Provider
	store      Store
	cfg        HubConfig
	upgrader   websocket.Upgrader
	log        *logger.Logger

	mu    sync.Mutex
	conns map[string]*Conn
}

// NewHub creates a hub. store may be nil to disable persistence.
func NewHub(recognizer stt.Recognizer, provider llm.Provider, store Store, cfg HubConfig) *Hub {
	cfg.applyDefaults()
	h := &Hub{
		recognizer: recognizer,
		provider:   provider,
		store:      store,
		cfg:        cfg,
		conns:      make(map[string]*Conn),
		log:        logger.WithComponent("hub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  32 * 1024,
		WriteBufferSize: 32 * 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleWS upgrades the request and serves the connection until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", logger.ErrorFields("upgrade", err))
		return
	}

	conn := h.newConn(ws, r.URL.Query().Get("title"))
	h.register(conn)
	defer h.unregister(conn)

	conn.serve(r.Context())
}

// ServeHTTP lets the hub mount directly on an HTTP router.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.HandleWS(w, r) }

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) newConn(ws *websocket.Conn, title string) *Conn {
	if title == "" {
		title = "Untitled Meeting"
	}
	c := &Conn{
		id:      uuid.NewString(),
		ws:      ws,
		hub:     h,
		meeting: meeting.NewSession(title),
		engine:  stt.NewEngine(h.recognizer, h.cfg.Engine),
	}
	c.pipeline = insight.NewPipeline(h.provider, h.cfg.Pipeline, c)
	c.log = h.log.WithFields(logger.Fields(
		logger.FieldConnectionID, c.id,
		logger.FieldMeetingID, c.meeting.ID(),
	))
	return c
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	h.log.Info("connection opened", logger.Fields(logger.FieldConnectionID, c.id))
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.id)
	h.mu.Unlock()
	h.log.Info("connection closed", logger.Fields(logger.FieldConnectionID, c.id))
}

// Conn is one live meeting connection. It implements insight.Emitter so
// pipeline events flow straight onto the wire; transcript and insight
// messages share the channel but travel on independent goroutines, so slow
// pipeline calls never block transcript delivery.
type Conn struct {
	id       string
	ws       *websocket.Conn
	writeMu  sync.Mutex
	hub      *Hub
	meeting  *meeting.Session
	engine   *stt.Engine
	pipeline *insight.Pipeline
	log      *logger.Logger
	wg       sync.WaitGroup
}

func (c *Conn) serve(ctx context.Context) {
	defer c.shutdown()

	if err := c.meeting.Start(); err != nil {
		c.log.Error("session start failed", logger.ErrorFields("start", err))
		return
	}
	c.send(ConnectedMessage{
		Type:         TypeConnected,
		ConnectionID: c.id,
		MeetingID:    c.meeting.ID(),
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("read failed", logger.ErrorFields("read", err))
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.handleAudio(ctx, data)
		case websocket.TextMessage:
			if stop := c.handleControl(ctx, data); stop {
				return
			}
		}
	}
}

func (c *Conn) handleAudio(ctx context.Context, data []byte) {
	samples, err := audio.DecodeSamples(data)
	if err != nil {
		c.sendError(apperrors.InvalidInput("frame", "malformed audio frame").WithCause(err))
		return
	}
	c.applyUpdates(ctx, c.engine.Push(ctx, samples))
}

func (c *Conn) applyUpdates(ctx context.Context, updates []stt.Update) {
	for _, u := range updates {
		var (
			seg meeting.Segment
			err error
		)
		if u.Partial {
			seg, err = c.meeting.ApplyPartial(u.Text, u.Speaker)
		} else {
			seg, err = c.meeting.ApplyFinal(u.Text, u.Speaker)
		}
		if err != nil {
			c.log.Warn("transcript update rejected", logger.ErrorFields("apply", err))
			continue
		}

		c.send(TranscriptAckMessage{
			Type:         TypeTranscriptAck,
			SegmentID:    seg.ID,
			Text:         seg.Text,
			Partial:      u.Partial,
			Speaker:      seg.Speaker,
			SpeakerColor: seg.SpeakerColor,
		})

		if !u.Partial {
			transcript := c.meeting.FullTranscript()
			c.wg.Add(1)
			go func(id int64, text string) {
				defer c.wg.Done()
				c.pipeline.ProcessSegment(ctx, id, text, transcript)
			}(seg.ID, seg.Text)
		}
	}
}

// handleControl dispatches a client control message; returns true when the
// client requested a stop.
func (c *Conn) handleControl(ctx context.Context, data []byte) bool {
	msg, err := DecodeControl(data)
	if err != nil {
		c.sendError(err)
		return false
	}

	switch msg.Type {
	case TypePing:
		c.send(PongMessage{Type: TypePong})
	case TypeCopilotQuery:
		transcript := c.meeting.FullTranscript()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.pipeline.HandleCopilot(ctx, msg.Question, transcript)
		}()
	case TypeGenerateSummary:
		transcript := c.meeting.FullTranscript()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.pipeline.GenerateSummary(ctx, transcript)
		}()
	case TypeStop:
		return true
	default:
		c.sendError(apperrors.InvalidInput("type", "unknown message type: "+msg.Type))
	}
	return false
}

// shutdown drains the engine, stops the session, waits for in-flight
// pipeline stages, and persists the record.
func (c *Conn) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.cfg.FinishTimeout)
	defer cancel()

	updates, stats, err := c.engine.Finish(ctx)
	if err != nil {
		c.log.Error("final recognition pass failed", logger.ErrorFields("finish", err))
	}
	c.applyUpdates(ctx, updates)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.log.Warn("pipeline drain timed out")
	}

	if err := c.meeting.Stop(); err != nil {
		c.log.Warn("session stop rejected", logger.ErrorFields("stop", err))
	}

	c.log.Info("session finished", logger.Fields(
		logger.FieldSegments, stats.Segments,
		"passes", stats.Passes,
		"failures", stats.Failures,
		"language", stats.Language,
	))

	if c.hub.store != nil {
		rec := c.meeting.Snapshot(c.pipeline.Ledger().Snapshot())
		if err := c.hub.store.Save(ctx, rec); err != nil {
			c.log.Error("session persistence failed", logger.ErrorFields("save", err))
		}
	}
	c.ws.Close()
}

// EmitScreening implements insight.Emitter.
func (c *Conn) EmitScreening(segmentID int64, v insight.Verdict) {
	c.meeting.MarkScreened(segmentID, v.Relevant)
	c.send(ScreeningMessage{
		Type:      TypeScreening,
		SegmentID: segmentID,
		Relevant:  v.Relevant,
		Reason:    v.Reason,
	})
}

// EmitAnalysis implements insight.Emitter.
func (c *Conn) EmitAnalysis(ins insight.Insight) {
	if err := c.meeting.AppendInsight(ins); err != nil {
		c.log.Warn("insight rejected", logger.ErrorFields("insight", err))
		return
	}
	c.send(AnalysisMessage{Type: TypeAnalysis, Insight: ins})
}

// EmitCopilot implements insight.Emitter.
func (c *Conn) EmitCopilot(resp insight.CopilotResponse) {
	c.send(CopilotResponseMessage{
		Type:      TypeCopilotResponse,
		Answer:    resp.Answer,
		LatencyMS: resp.LatencyMS,
		ModelTier: resp.ModelTier,
		Error:     resp.Error,
	})
}

// EmitSummary implements insight.Emitter.
func (c *Conn) EmitSummary(sum insight.Summary, errMsg string) {
	msg := MeetingSummaryMessage{Type: TypeMeetingSummary, Error: errMsg}
	if errMsg == "" {
		c.meeting.SetSummary(sum)
		msg.Summary = &sum
	}
	c.send(msg)
}

// EmitCostUpdate implements insight.Emitter.
func (c *Conn) EmitCostUpdate(snap insight.CostSnapshot) {
	c.send(CostUpdateMessage{Type: TypeCostUpdate, CostSnapshot: snap})
}

// EmitBudgetExceeded implements insight.Emitter.
func (c *Conn) EmitBudgetExceeded(message string) {
	c.send(BudgetExceededMessage{Type: TypeBudgetExceeded, Message: message})
}

func (c *Conn) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("message marshal failed", logger.ErrorFields("marshal", err))
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Warn("write failed", logger.ErrorFields("write", err))
	}
}

func (c *Conn) sendError(err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	c.send(ErrorMessage{Type: TypeError, Error: appErr.ToResponse().Error})
}
