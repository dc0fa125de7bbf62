// Package protocol defines the wire messages exchanged over a Sentra
// streaming session and the codec that moves them on and off text frames.
//
// Inbound decoding is deliberately permissive: frames whose type field is
// missing or unknown, and frames that do not parse as JSON, are skipped so
// that server-added event kinds do not break older clients. Audio never
// passes through this package; it travels as opaque binary frames.
package protocol

import (
	"encoding/json"
	"strings"
)

// Client message types.
const (
	TypeConfig = "config"
	TypeEnd    = "end"
)

// Server message types.
const (
	TypeReady          = "ready"
	TypeTranscription  = "transcription"
	TypeAlert          = "alert"
	TypeSessionSummary = "session_summary"
	TypeConfigUpdated  = "config_updated"
	TypeError          = "error"
)

// SessionConfig is the effective session configuration as reported by the
// server in ready and config_updated frames.
type SessionConfig struct {
	IntervalSeconds int            `json:"interval_seconds"`
	AnalysisTypes   []string       `json:"analysis_types"`
	Context         map[string]any `json:"context,omitempty"`
}

// ClientConfig requests a configuration change. Optional fields that are nil
// are absent from the payload entirely; the server treats a present key as
// "update this field" and an absent key as "leave unchanged".
type ClientConfig struct {
	Type            string         `json:"type"`
	IntervalSeconds *int           `json:"interval_seconds,omitempty"`
	AnalysisTypes   []string       `json:"analysis_types,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
}

func (ClientConfig) clientMessageType() string { return TypeConfig }

// ClientEnd requests a graceful session end; the server answers with a
// session_summary frame.
type ClientEnd struct {
	Type string `json:"type"`
}

func (ClientEnd) clientMessageType() string { return TypeEnd }

type ServerReady struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	Config    SessionConfig `json:"config"`
}

func (ServerReady) serverMessageType() string { return TypeReady }

// Segment is one time-aligned slice of a transcription.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type ServerTranscription struct {
	Type       string    `json:"type"`
	Text       string    `json:"text"`
	Segments   []Segment `json:"segments"`
	FlushIndex int       `json:"flush_index"`
}

func (ServerTranscription) serverMessageType() string { return TypeTranscription }

type ServerAlert struct {
	Type       string         `json:"type"`
	Category   string         `json:"category"`
	Severity   string         `json:"severity"`
	RiskScore  float64        `json:"risk_score"`
	Details    map[string]any `json:"details,omitempty"`
	FlushIndex int            `json:"flush_index"`
}

func (ServerAlert) serverMessageType() string { return TypeAlert }

type ServerSessionSummary struct {
	Type             string  `json:"type"`
	SessionID        string  `json:"session_id"`
	DurationSeconds  float64 `json:"duration_seconds"`
	OverallRisk      string  `json:"overall_risk"`
	OverallRiskScore float64 `json:"overall_risk_score"`
	TotalFlushes     int     `json:"total_flushes"`
	Transcript       string  `json:"transcript"`
}

func (ServerSessionSummary) serverMessageType() string { return TypeSessionSummary }

type ServerConfigUpdated struct {
	Type   string        `json:"type"`
	Config SessionConfig `json:"config"`
}

func (ServerConfigUpdated) serverMessageType() string { return TypeConfigUpdated }

type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ServerError) serverMessageType() string { return TypeError }

// ClientMessage is a control message sent to the server on a text frame.
type ClientMessage interface {
	clientMessageType() string
}

// ServerMessage is a decoded inbound text frame.
type ServerMessage interface {
	serverMessageType() string
}

// EncodeClientMessage serializes a control message to its text frame payload.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeServerMessage parses an inbound text frame. The second return value
// is false when the frame should be skipped: payload not parseable as JSON,
// type field missing, type unknown, or a known type whose body does not
// decode. Unknown extra fields within a known type are ignored.
func DecodeServerMessage(data []byte) (ServerMessage, bool) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}

	switch strings.TrimSpace(envelope.Type) {
	case TypeReady:
		var msg ServerReady
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, false
		}
		return msg, true
	case TypeTranscription:
		var msg ServerTranscription
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, false
		}
		return msg, true
	case TypeAlert:
		var msg ServerAlert
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, false
		}
		return msg, true
	case TypeSessionSummary:
		var msg ServerSessionSummary
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, false
		}
		return msg, true
	case TypeConfigUpdated:
		var msg ServerConfigUpdated
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, false
		}
		return msg, true
	case TypeError:
		var msg ServerError
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, false
		}
		return msg, true
	default:
		return nil, false
	}
}
