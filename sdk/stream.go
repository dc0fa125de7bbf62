package sentra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentra-ai/sentra-go/pkg/core"
	"github.com/sentra-ai/sentra-go/pkg/stream/protocol"
)

// StreamService opens real-time analysis sessions over the /v1/stream
// WebSocket endpoint.
type StreamService struct {
	client *Client
}

// StreamConfig is an outbound configuration patch. Nil optional fields are
// omitted from the wire payload entirely, which the server reads as "leave
// unchanged"; use Int for IntervalSeconds.
type StreamConfig struct {
	IntervalSeconds *int
	AnalysisTypes   []string
	Context         map[string]any
}

func (c StreamConfig) clientMessage() protocol.ClientConfig {
	return protocol.ClientConfig{
		Type:            protocol.TypeConfig,
		IntervalSeconds: c.IntervalSeconds,
		AnalysisTypes:   c.AnalysisTypes,
		Context:         c.Context,
	}
}

// StreamRequest configures a streaming session.
type StreamRequest struct {
	// Config, when set, is sent as the first outbound frame before any audio.
	Config *StreamConfig

	Handlers StreamHandlers
}

// SessionState is the lifecycle state of a streaming session.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateConnecting
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StreamSession is one live analysis conversation. It owns the WebSocket
// connection and the single receive loop that dispatches inbound events.
type StreamSession struct {
	conn     *websocket.Conn
	handlers StreamHandlers
	logger   *slog.Logger

	mu        sync.Mutex
	state     SessionState
	sessionID string
	config    SessionConfig
	ended     bool

	// One-shot rendezvous slots; each is written at most once (first write
	// wins) by the receive loop and drained at most once by a blocked caller.
	readyCh     chan ReadyEvent
	readyOnce   sync.Once
	summaryCh   chan SessionSummaryEvent
	summaryOnce sync.Once

	// done closes when the receive loop exits; every pending rendezvous
	// selects on it so Close can never strand a blocked caller.
	done    chan struct{}
	waiters atomic.Int32

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Connect opens a streaming session and blocks until the server's ready
// frame arrives or the connection fails. The context bounds both the dial
// and the ready rendezvous; there is no built-in timeout beyond the dial
// default, so callers wanting a bounded wait should pass a deadline.
func (s *StreamService) Connect(ctx context.Context, req *StreamRequest) (*StreamSession, error) {
	if s == nil || s.client == nil {
		return nil, core.NewInvalidRequestError("stream service is not initialized")
	}
	if req == nil {
		req = &StreamRequest{}
	}

	wsURL, err := s.client.websocketEndpoint("/v1/stream")
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	if s.client.apiKey != "" {
		headers.Set("Authorization", "Bearer "+s.client.apiKey)
	}

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, s.client.connectTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, &TransportError{Op: "GET", URL: wsURL, Err: fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)}
		}
		return nil, &TransportError{Op: "GET", URL: wsURL, Err: err}
	}

	session := &StreamSession{
		conn:      conn,
		handlers:  req.Handlers,
		logger:    s.client.logger,
		state:     StateConnecting,
		readyCh:   make(chan ReadyEvent, 1),
		summaryCh: make(chan SessionSummaryEvent, 1),
		done:      make(chan struct{}),
	}

	if req.Config != nil {
		if err := session.writeControl(req.Config.clientMessage()); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("send initial config: %w", err)
		}
	}

	go session.readLoop()

	if _, err := session.awaitReady(ctx); err != nil {
		_ = session.Close()
		return nil, err
	}
	return session, nil
}

func (c *Client) websocketEndpoint(path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.baseURL, "/") + path)
	if err != nil {
		return "", core.NewInvalidRequestError("invalid base URL")
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already websocket scheme.
	default:
		return "", core.NewInvalidRequestError("base URL must use http(s) or ws(s)")
	}
	return u.String(), nil
}

// ID returns the server-assigned session identifier. It is empty until the
// ready frame is observed and immutable afterwards.
func (s *StreamSession) ID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// IsActive reports whether the session is in the active state.
func (s *StreamSession) IsActive() bool {
	return s.State() == StateActive
}

// State returns the current lifecycle state.
func (s *StreamSession) State() SessionState {
	if s == nil {
		return StateClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Config returns the most recent effective configuration reported by the
// server (from ready or config_updated).
func (s *StreamSession) Config() SessionConfig {
	if s == nil {
		return SessionConfig{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SendAudio transmits one opaque binary audio frame. It is valid only while
// the session is active; calling it before ready or after close fails with a
// precondition error and sends nothing. The call blocks while the transport
// applies backpressure; audio is otherwise fire-and-forget.
func (s *StreamSession) SendAudio(data []byte) error {
	if s == nil {
		return core.NewInvalidRequestError("session must not be nil")
	}
	if s.State() != StateActive {
		return core.NewInvalidRequestError("not connected")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// UpdateConfig sends a config control message. It does not wait for the
// server's config_updated confirmation; that event arrives asynchronously
// through the handler registry like any other.
func (s *StreamSession) UpdateConfig(cfg StreamConfig) error {
	if s == nil {
		return core.NewInvalidRequestError("session must not be nil")
	}
	if s.State() != StateActive {
		return core.NewInvalidRequestError("not connected")
	}
	return s.writeControl(cfg.clientMessage())
}

// End sends the end control message and blocks until the server's session
// summary arrives, the connection closes, or ctx is done. The summary
// rendezvous is filled once and drained once: a second End after the summary
// has been consumed fails fast with an invalid_request_error instead of
// waiting on a slot that can never fill again.
func (s *StreamSession) End(ctx context.Context) (*SessionSummaryEvent, error) {
	if s == nil {
		return nil, core.NewInvalidRequestError("session must not be nil")
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil, core.NewInvalidRequestError("not connected")
	}
	if s.ended {
		s.mu.Unlock()
		return nil, core.NewInvalidRequestError("session already ended")
	}
	s.ended = true
	s.mu.Unlock()

	s.waiters.Add(1)
	defer s.waiters.Add(-1)

	if err := s.writeControl(protocol.ClientEnd{Type: protocol.TypeEnd}); err != nil {
		return nil, err
	}

	select {
	case summary := <-s.summaryCh:
		return &summary, nil
	case <-s.done:
		return nil, s.closedBefore("session summary")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the connection, cancels the receive loop, and releases
// all resources. It is idempotent and callable from any state; a Connect or
// End blocked on a rendezvous observes a connection error rather than
// hanging when Close races it.
func (s *StreamSession) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.mu.Lock()
		if s.state != StateClosed {
			s.state = StateClosing
		}
		s.mu.Unlock()

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	s.setState(StateClosed)
	return nil
}

// Err returns the terminal connection error (if any) once the receive loop
// has exited. Closures initiated by the caller's own Close are not errors.
func (s *StreamSession) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	return s.takeErr()
}

func (s *StreamSession) awaitReady(ctx context.Context) (ReadyEvent, error) {
	s.waiters.Add(1)
	defer s.waiters.Add(-1)

	select {
	case ready := <-s.readyCh:
		return ready, nil
	case <-s.done:
		return ReadyEvent{}, s.closedBefore("ready")
	case <-ctx.Done():
		return ReadyEvent{}, ctx.Err()
	}
}

func (s *StreamSession) closedBefore(what string) error {
	if err := s.takeErr(); err != nil {
		return core.NewConnectionError(fmt.Sprintf("connection closed before %s: %v", what, err))
	}
	return core.NewConnectionError("connection closed before " + what)
}

func (s *StreamSession) writeControl(msg protocol.ClientMessage) error {
	data, err := protocol.EncodeClientMessage(msg)
	if err != nil {
		return fmt.Errorf("encode control message: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *StreamSession) readLoop() {
	defer close(s.done)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}
		if messageType != websocket.TextMessage {
			// Only text frames carry events in the inbound direction.
			continue
		}

		msg, ok := protocol.DecodeServerMessage(data)
		if !ok {
			s.logger.Debug("skipping unrecognized stream frame", "session_id", s.ID())
			continue
		}
		s.dispatch(msg)
	}
}

// handleReadError reports a terminal connection fault exactly once: to the
// pending Connect/End when one is waiting, otherwise to the error handler.
// A close frame from the peer goes to the close handler verbatim instead.
func (s *StreamSession) handleReadError(err error) {
	s.setState(StateClosed)

	if s.closed.Load() {
		// Teardown requested by our own Close; not a fault.
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.setErr(err)
		}
		if s.handlers.OnClose != nil {
			s.handlers.OnClose(closeErr.Code, closeErr.Text)
		}
		return
	}

	s.setErr(err)
	if s.waiters.Load() == 0 && s.handlers.OnError != nil {
		s.handlers.OnError(ErrorEvent{Code: "connection_error", Message: err.Error()})
	}
}

// dispatch resolves internal rendezvous first, then invokes the registered
// handler for the event kind. Duplicate ready/summary frames from the peer
// are no-ops for the rendezvous slots.
func (s *StreamSession) dispatch(msg protocol.ServerMessage) {
	switch m := msg.(type) {
	case protocol.ServerReady:
		event := ReadyEvent{SessionID: m.SessionID, Config: m.Config}
		s.mu.Lock()
		if s.sessionID == "" {
			s.sessionID = m.SessionID
		}
		s.config = m.Config
		if s.state == StateConnecting {
			s.state = StateActive
		}
		s.mu.Unlock()
		s.readyOnce.Do(func() { s.readyCh <- event })
		if s.handlers.OnReady != nil {
			s.handlers.OnReady(event)
		}
	case protocol.ServerTranscription:
		if s.handlers.OnTranscription != nil {
			s.handlers.OnTranscription(TranscriptionEvent{
				Text:       m.Text,
				Segments:   m.Segments,
				FlushIndex: m.FlushIndex,
			})
		}
	case protocol.ServerAlert:
		if s.handlers.OnAlert != nil {
			s.handlers.OnAlert(AlertEvent{
				Category:   m.Category,
				Severity:   m.Severity,
				RiskScore:  m.RiskScore,
				Details:    m.Details,
				FlushIndex: m.FlushIndex,
			})
		}
	case protocol.ServerSessionSummary:
		event := SessionSummaryEvent{
			SessionID:        m.SessionID,
			DurationSeconds:  m.DurationSeconds,
			OverallRisk:      m.OverallRisk,
			OverallRiskScore: m.OverallRiskScore,
			TotalFlushes:     m.TotalFlushes,
			Transcript:       m.Transcript,
		}
		s.summaryOnce.Do(func() { s.summaryCh <- event })
		if s.handlers.OnSessionSummary != nil {
			s.handlers.OnSessionSummary(event)
		}
	case protocol.ServerConfigUpdated:
		s.mu.Lock()
		s.config = m.Config
		s.mu.Unlock()
		if s.handlers.OnConfigUpdated != nil {
			s.handlers.OnConfigUpdated(ConfigUpdatedEvent{Config: m.Config})
		}
	case protocol.ServerError:
		if s.handlers.OnError != nil {
			s.handlers.OnError(ErrorEvent{Code: m.Code, Message: m.Message})
		}
	}
}

func (s *StreamSession) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		// closed is terminal.
		return
	}
	s.state = state
}

func (s *StreamSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *StreamSession) takeErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
