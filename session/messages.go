package session

import (
	"encoding/json"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/insight"
)

// Wire message types. Audio travels as binary frames; everything else is a
// JSON object with a "type" field.
const (
	// Server to client.
	TypeConnected       = "connected"
	TypeTranscriptAck   = "transcript_ack"
	TypeScreening       = "screening"
	TypeAnalysis        = "analysis"
	TypeCopilotResponse = "copilot_response"
	TypeMeetingSummary  = "meeting_summary"
	TypeCostUpdate      = "cost_update"
	TypeBudgetExceeded  = "budget_exceeded"
	TypePong            = "pong"
	TypeError           = "error"

	// Client to server.
	TypeCopilotQuery    = "copilot_query"
	TypeGenerateSummary = "generate_summary"
	TypePing            = "ping"
	TypeStop            = "stop"
)

// Envelope carries just the type discriminator for dispatch.
type Envelope struct {
	Type string `json:"type"`
}

// ConnectedMessage is the first message after the upgrade.
type ConnectedMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	MeetingID    string `json:"meeting_id"`
}

// TranscriptAckMessage delivers a partial or final transcript update.
type TranscriptAckMessage struct {
	Type         string `json:"type"`
	SegmentID    int64  `json:"segment_id"`
	Text         string `json:"text"`
	Partial      bool   `json:"partial"`
	Speaker      string `json:"speaker,omitempty"`
	SpeakerColor string `json:"speaker_color,omitempty"`
}

// ScreeningMessage reports the relevance verdict for a finalized segment.
type ScreeningMessage struct {
	Type      string `json:"type"`
	SegmentID int64  `json:"segment_id"`
	Relevant  bool   `json:"relevant"`
	Reason    string `json:"reason"`
}

// AnalysisMessage delivers one insight.
type AnalysisMessage struct {
	Type    string          `json:"type"`
	Insight insight.Insight `json:"insight"`
}

// CopilotResponseMessage answers a copilot_query.
type CopilotResponseMessage struct {
	Type      string  `json:"type"`
	Answer    string  `json:"answer"`
	LatencyMS float64 `json:"latency_ms"`
	ModelTier string  `json:"model_tier,omitempty"`
	Error     bool    `json:"error,omitempty"`
}

// MeetingSummaryMessage delivers the structured summary, or an error.
type MeetingSummaryMessage struct {
	Type    string           `json:"type"`
	Summary *insight.Summary `json:"summary,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// CostUpdateMessage is a ledger snapshot, sent after every billed call.
type CostUpdateMessage struct {
	Type string `json:"type"`
	insight.CostSnapshot
}

// BudgetExceededMessage is the one-time hard-stop notification.
type BudgetExceededMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
}

// ErrorMessage reports a protocol-level failure to the client.
type ErrorMessage struct {
	Type  string              `json:"type"`
	Error apperrors.ErrorBody `json:"error"`
}

// ControlMessage is the client-to-server control set. Question is only set
// for copilot_query.
type ControlMessage struct {
	Type     string `json:"type"`
	Question string `json:"question,omitempty"`
}

// DecodeControl parses a client control message.
func DecodeControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, apperrors.InvalidInput("message", "malformed JSON control message").WithCause(err)
	}
	if msg.Type == "" {
		return ControlMessage{}, apperrors.InvalidInput("type", "missing message type")
	}
	return msg, nil
}
