// Package chat maintains the live chat connection to the Atlas gateway: the
// WebSocket session, the per-scope message timeline and the presence roster.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// ErrSessionClosed is returned by Send after the session has ended.
var ErrSessionClosed = errors.New("chat session closed")

// EventType discriminates inbound frames.
type EventType string

const (
	EventMessage  EventType = "message"
	EventPresence EventType = "presence_update"
	EventError    EventType = "error"
)

// Event is a decoded inbound frame.
type Event struct {
	Type    EventType
	Message *domain.Message // set for EventMessage
	Error   string          // set for EventError
}

// inbound is the wire envelope. Message frames carry the message fields at
// the top level next to "type".
type inbound struct {
	Type string `json:"type"`
	domain.Message
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Outbound is a message frame sent by the client.
type Outbound struct {
	Type        string     `json:"type"`
	Content     string     `json:"content"`
	ChannelID   *domain.ID `json:"channel_id"`
	RecipientID *domain.ID `json:"recipient_id"`
	ClientNonce string     `json:"client_nonce,omitempty"`
}

const eventBuffer = 64

// Session is one WebSocket connection. It does not reconnect; once Done is
// closed a new session must be dialed.
type Session struct {
	conn   *websocket.Conn
	logger *slog.Logger
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	writeMu   sync.Mutex
	errMu     sync.Mutex
	err       error
	closing   atomic.Bool
	closeOnce sync.Once
}

// Dial opens a chat session. url must carry the token query parameter.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial chat websocket: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	readCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:   conn,
		logger: logger,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.readLoop(readCtx)
	logger.Info("Chat session connected")
	return s, nil
}

// Events delivers inbound frames in transport order. It is closed when the
// session ends.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the session, or nil for a normal close.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Send writes an outbound frame.
func (s *Session) Send(ctx context.Context, msg Outbound) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	if msg.Type == "" {
		msg.Type = string(EventMessage)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode chat frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send chat frame: %w", err)
	}
	return nil
}

// Close ends the session and waits for the read loop to exit.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		err = s.conn.Close(websocket.StatusNormalClosure, "view closed")
		s.cancel()
	})
	<-s.done
	if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
		s.logger.Debug("Failed to close chat websocket", "error", err)
	}
	return nil
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch {
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway,
				ctx.Err() != nil,
				s.closing.Load():
				s.logger.Info("Chat session closed")
			default:
				s.logger.Warn("Chat websocket read error", "error", err)
				s.setErr(err)
			}
			return
		}

		ev, ok := decodeEvent(data)
		if !ok {
			s.logger.Debug("Ignoring chat frame", "bytes", len(data))
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func decodeEvent(data []byte) (Event, bool) {
	var env inbound
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, false
	}
	switch EventType(env.Type) {
	case EventMessage:
		msg := env.Message
		return Event{Type: EventMessage, Message: &msg}, true
	case EventPresence:
		return Event{Type: EventPresence}, true
	case EventError:
		text := env.Error
		if text == "" {
			text = env.Detail
		}
		if text == "" {
			text = env.Content
		}
		return Event{Type: EventError, Error: text}, true
	}
	return Event{}, false
}
