package sentra

import (
	"github.com/sentra-ai/sentra-go/pkg/stream/protocol"
)

// SessionConfig is an alias for the effective server-side session
// configuration reported in ready and config_updated frames.
type SessionConfig = protocol.SessionConfig

// TranscriptSegment is an alias for one time-aligned transcription slice.
type TranscriptSegment = protocol.Segment

// StreamEvent is an analysis event emitted by a streaming session.
type StreamEvent interface {
	streamEventType() string
}

// ReadyEvent confirms session establishment and carries the server-assigned
// session identifier and the effective configuration.
type ReadyEvent struct {
	SessionID string
	Config    SessionConfig
}

func (e ReadyEvent) streamEventType() string { return protocol.TypeReady }

// TranscriptionEvent carries the transcript of one flushed audio window.
type TranscriptionEvent struct {
	Text       string
	Segments   []TranscriptSegment
	FlushIndex int
}

func (e TranscriptionEvent) streamEventType() string { return protocol.TypeTranscription }

// AlertEvent reports a safety finding in a flushed audio window.
type AlertEvent struct {
	Category   string
	Severity   string
	RiskScore  float64
	Details    map[string]any
	FlushIndex int
}

func (e AlertEvent) streamEventType() string { return protocol.TypeAlert }

// SessionSummaryEvent is the terminal analysis report for the session.
type SessionSummaryEvent struct {
	SessionID        string
	DurationSeconds  float64
	OverallRisk      string
	OverallRiskScore float64
	TotalFlushes     int
	Transcript       string
}

func (e SessionSummaryEvent) streamEventType() string { return protocol.TypeSessionSummary }

// ConfigUpdatedEvent confirms an in-band configuration change.
type ConfigUpdatedEvent struct {
	Config SessionConfig
}

func (e ConfigUpdatedEvent) streamEventType() string { return protocol.TypeConfigUpdated }

// ErrorEvent is a fault reported by the server, or a local connection fault
// (code "connection_error") when no blocking call was pending to receive it.
// It does not by itself terminate the session.
type ErrorEvent struct {
	Code    string
	Message string
}

func (e ErrorEvent) streamEventType() string { return protocol.TypeError }

// StreamHandlers registers at most one callback per event kind. Handlers run
// sequentially on the session's receive loop, so a slow handler delays
// delivery of subsequent events. Unset handlers silently drop their events;
// ready and session_summary are always observed internally for lifecycle
// rendezvous regardless of registration. Handlers cannot be swapped once the
// session is connected.
type StreamHandlers struct {
	OnReady          func(ReadyEvent)
	OnTranscription  func(TranscriptionEvent)
	OnAlert          func(AlertEvent)
	OnSessionSummary func(SessionSummaryEvent)
	OnConfigUpdated  func(ConfigUpdatedEvent)
	OnError          func(ErrorEvent)

	// OnClose receives the peer's close frame code and reason verbatim.
	OnClose func(code int, reason string)
}
