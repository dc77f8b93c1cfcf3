package session

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/meetmind/meetmind/audio"
	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/logger"
)

// ClientState is the client connection state.
type ClientState int32

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MessageHandler receives every server message: the envelope type plus the
// raw JSON payload.
type MessageHandler func(messageType string, payload []byte)

// StateChangeHandler observes client state transitions.
type StateChangeHandler func(oldState, newState ClientState)

// ClientConfig configures the capture-side client.
type ClientConfig struct {
	URL               string
	MeetingTitle      string
	HandshakeTimeout  time.Duration
	HeartbeatInterval time.Duration
	ReconnectInitial  time.Duration
	ReconnectMax      time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
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

// Client is the reconnecting duplex client. Audio frames go up as binary
// messages; control goes up as JSON; server messages come back through the
// MessageHandler.
//
// The client reconnects with exponential backoff while the session is
// live; frames produced while not connected are dropped and counted, never
// queued. Control messages sent while disconnected synthesize a local
// error response so callers are never left waiting.
type Client struct {
	cfg    ClientConfig
	dialer *websocket.Dialer
	log    *logger.Logger

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	state         atomic.Int32
	stopChan      chan struct{}
	reconnectChan chan struct{}
	closeOnce     sync.Once

	framesSent    atomic.Uint64
	framesDropped atomic.Uint64

	onMessage     MessageHandler
	onStateChange StateChangeHandler
}

// NewClient creates a client; Connect must be called before sending.
func NewClient(cfg ClientConfig) *Client {
	cfg.applyDefaults()
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = cfg.HandshakeTimeout

	return &Client{
		cfg:           cfg,
		dialer:        &dialer,
		stopChan:      make(chan struct{}),
		reconnectChan: make(chan struct{}, 1),
		log:           logger.WithComponent("client"),
	}
}

// SetMessageHandler installs the server-message callback. Must be called
// before Connect.
func (c *Client) SetMessageHandler(handler MessageHandler) { c.onMessage = handler }

// SetStateChangeHandler installs the state-transition callback. Must be
// called before Connect.
func (c *Client) SetStateChangeHandler(handler StateChangeHandler) { c.onStateChange = handler }

// Connect dials the server and starts the read, heartbeat, and reconnect
// loops.
func (c *Client) Connect(ctx context.Context) error {
	if !c.casState(StateDisconnected, StateConnecting) {
		return apperrors.InvalidState(c.State().String(), StateConnecting.String())
	}

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected)
		return apperrors.ChannelDisconnected(c.cfg.URL).WithCause(err)
	}
	c.setState(StateConnected)

	go c.readLoop()
	go c.heartbeatLoop()
	go c.reconnectLoop()
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	target := c.cfg.URL
	if c.cfg.MeetingTitle != "" {
		target += "?title=" + url.QueryEscape(c.cfg.MeetingTitle)
	}
	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// SendFrame ships one audio frame, or drops it when the channel is not
// connected. It reports whether the frame was sent; dropped frames are
// counted, never queued.
func (c *Client) SendFrame(frame audio.Frame) bool {
	if c.State() != StateConnected {
		c.framesDropped.Add(1)
		return false
	}

	data := audio.EncodeSamples(frame.Samples)
	if err := c.write(websocket.BinaryMessage, data); err != nil {
		c.framesDropped.Add(1)
		c.triggerReconnect()
		return false
	}
	c.framesSent.Add(1)
	return true
}

// AskCopilot sends a copilot query. While disconnected, a local error
// copilot_response is synthesized through the message handler.
func (c *Client) AskCopilot(question string) {
	c.sendControl(ControlMessage{Type: TypeCopilotQuery, Question: question}, func() any {
		return CopilotResponseMessage{
			Type:   TypeCopilotResponse,
			Answer: "Not connected to the meeting server.",
			Error:  true,
		}
	})
}

// RequestSummary asks the server to generate the meeting summary. While
// disconnected, a local error meeting_summary is synthesized.
func (c *Client) RequestSummary() {
	c.sendControl(ControlMessage{Type: TypeGenerateSummary}, func() any {
		return MeetingSummaryMessage{
			Type:  TypeMeetingSummary,
			Error: "Not connected to the meeting server.",
		}
	})
}

func (c *Client) sendControl(msg ControlMessage, localError func() any) {
	if c.State() != StateConnected {
		c.deliverLocal(localError())
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.deliverLocal(localError())
		return
	}
	if err := c.write(websocket.TextMessage, data); err != nil {
		c.triggerReconnect()
		c.deliverLocal(localError())
	}
}

func (c *Client) deliverLocal(msg any) {
	if c.onMessage == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	var env Envelope
	json.Unmarshal(data, &env)
	c.onMessage(env.Type, data)
}

// Stop asks the server to finalize the session, then closes the client.
// No reconnect happens after an intentional stop.
func (c *Client) Stop() error {
	if c.State() == StateConnected {
		data, _ := json.Marshal(ControlMessage{Type: TypeStop})
		c.write(websocket.TextMessage, data)
	}
	return c.Close()
}

// Close tears the client down. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.stopChan)

		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()

		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// State returns the current connection state.
func (c *Client) State() ClientState { return ClientState(c.state.Load()) }

// FramesSent returns the count of frames delivered to the server.
func (c *Client) FramesSent() uint64 { return c.framesSent.Load() }

// FramesDropped returns the count of frames dropped while not connected.
func (c *Client) FramesDropped() uint64 { return c.framesDropped.Load() }

func (c *Client) write(messageType int, data []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return apperrors.ChannelDisconnected(c.cfg.URL)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}

func (c *Client) readLoop() {
	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		if c.State() != StateConnected {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()
		if conn == nil {
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.triggerReconnect()
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("malformed server message", logger.ErrorFields("decode", err))
			continue
		}
		if env.Type == TypePong {
			continue
		}
		if c.onMessage != nil {
			c.onMessage(env.Type, data)
		}
	}
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			if c.State() != StateConnected {
				continue
			}
			data, _ := json.Marshal(ControlMessage{Type: TypePing})
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.triggerReconnect()
			}
		}
	}
}

func (c *Client) reconnectLoop() {
	for {
		select {
		case <-c.stopChan:
			return
		case <-c.reconnectChan:
			c.doReconnect()
		}
	}
}

func (c *Client) triggerReconnect() {
	if !c.casState(StateConnected, StateReconnecting) {
		return
	}
	select {
	case c.reconnectChan <- struct{}{}:
	default:
	}
}

func (c *Client) doReconnect() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectInitial
	bo.MaxInterval = c.cfg.ReconnectMax
	bo.MaxElapsedTime = 0 // retry until the client is closed

	err := backoff.Retry(func() error {
		return c.dial(ctx)
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		// Only happens when the client was closed mid-retry.
		c.casState(StateReconnecting, StateDisconnected)
		return
	}
	if !c.casState(StateReconnecting, StateConnected) {
		// A concurrent Close won the race; it may have missed the conn the
		// dial just stored, so close it here.
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()
		return
	}
	c.log.Info("reconnected", logger.Fields("url", c.cfg.URL))
}

func (c *Client) setState(newState ClientState) {
	oldState := ClientState(c.state.Swap(int32(newState)))
	if oldState != newState && c.onStateChange != nil {
		c.onStateChange(oldState, newState)
	}
}

func (c *Client) casState(oldState, newState ClientState) bool {
	swapped := c.state.CompareAndSwap(int32(oldState), int32(newState))
	if swapped && c.onStateChange != nil {
		c.onStateChange(oldState, newState)
	}
	return swapped
}
