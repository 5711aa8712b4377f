package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// ErrNotConnected is returned when sending without an open chat view.
var ErrNotConnected = errors.New("chat is not connected")

// Dialer opens a new session.
type Dialer func(ctx context.Context) (*Session, error)

// TokenDialer returns a Dialer that reads the token from provider on every
// dial and builds the socket URL with urlFor. A missing token fails with
// credential.ErrMissingCredential before any network I/O.
func TokenDialer(provider credential.Provider, urlFor func(token string) (string, error), logger *slog.Logger) Dialer {
	return func(ctx context.Context) (*Session, error) {
		token, err := credential.AccessToken(provider)
		if err != nil {
			return nil, err
		}
		u, err := urlFor(token)
		if err != nil {
			return nil, err
		}
		return Dial(ctx, u, logger)
	}
}

// History fetches past messages for a scope.
type History interface {
	ListChannelMessages(ctx context.Context, channelID domain.ID) ([]domain.Message, error)
	ListDirectMessages(ctx context.Context, userID domain.ID) ([]domain.Message, error)
}

// ChangeKind says what part of the chat state changed.
type ChangeKind string

const (
	ChangeMessages   ChangeKind = "messages"
	ChangePresence   ChangeKind = "presence"
	ChangeConnection ChangeKind = "connection"
	ChangeError      ChangeKind = "error"
)

// Listener is notified after chat state changes.
type Listener func(kind ChangeKind, state State)

// State is the chat view as served to local consumers.
type State struct {
	Connected bool                `json:"connected"`
	Scope     Scope               `json:"scope"`
	Messages  []Entry             `json:"messages"`
	Online    []domain.OnlineUser `json:"online_users"`
	LastError string              `json:"last_error,omitempty"`
}

// Manager owns at most one chat session and the timeline of the selected
// scope. Closing the view closes the socket; nothing reconnects on its own.
type Manager struct {
	dial     Dialer
	history  History
	roster   *Roster
	selfID   domain.ID
	logger   *slog.Logger
	listener Listener

	mu       sync.Mutex
	session  *Session
	timeline *Timeline
	lastErr  string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSelfID sets the local user's ID for echo reconciliation.
func WithSelfID(id domain.ID) ManagerOption {
	return func(m *Manager) { m.selfID = id }
}

// WithListener registers a change listener.
func WithListener(l Listener) ManagerOption {
	return func(m *Manager) { m.listener = l }
}

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager with no open session.
func NewManager(dial Dialer, history History, roster *Roster, opts ...ManagerOption) *Manager {
	m := &Manager{
		dial:    dial,
		history: history,
		roster:  roster,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open connects if needed and selects scope.
func (m *Manager) Open(ctx context.Context, scope Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	connected := m.session != nil
	m.mu.Unlock()

	if !connected {
		sess, err := m.dial(ctx)
		if err != nil {
			m.setErr(err.Error())
			return fmt.Errorf("open chat: %w", err)
		}

		m.mu.Lock()
		if m.session != nil {
			m.mu.Unlock()
			_ = sess.Close()
		} else {
			m.session = sess
			m.lastErr = ""
			m.mu.Unlock()
			go m.pump(sess)

			if err := m.roster.Refresh(ctx); err != nil {
				m.logger.Warn("Failed to load online users", "error", err)
			}
			m.notify(ChangeConnection)
		}
	}

	return m.SetScope(ctx, scope)
}

// SetScope switches the timeline to scope and loads its history.
func (m *Manager) SetScope(ctx context.Context, scope Scope) error {
	tl, err := NewTimeline(scope, m.selfID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.timeline = tl
	m.mu.Unlock()
	m.notify(ChangeMessages)

	var history []domain.Message
	if scope.IsDirect() {
		history, err = m.history.ListDirectMessages(ctx, scope.RecipientID)
	} else {
		history, err = m.history.ListChannelMessages(ctx, scope.ChannelID)
	}
	if err != nil {
		m.logger.Warn("Failed to load chat history", "channel_id", scope.ChannelID, "recipient_id", scope.RecipientID, "error", err)
		return fmt.Errorf("load chat history: %w", err)
	}

	tl.Load(history)
	m.notify(ChangeMessages)
	return nil
}

// SendMessage sends content to the selected scope. The message appears as
// pending until the gateway echoes it.
func (m *Manager) SendMessage(ctx context.Context, content string) (Outbound, error) {
	m.mu.Lock()
	sess, tl := m.session, m.timeline
	m.mu.Unlock()
	if sess == nil || tl == nil {
		return Outbound{}, ErrNotConnected
	}

	out, err := tl.Send(content)
	if err != nil {
		return Outbound{}, err
	}
	m.notify(ChangeMessages)

	if err := sess.Send(ctx, out); err != nil {
		tl.Drop(out.ClientNonce)
		m.notify(ChangeMessages)
		return Outbound{}, err
	}
	return out, nil
}

// CloseView closes the socket and forgets the timeline.
func (m *Manager) CloseView() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.timeline = nil
	m.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
		m.logger.Info("Chat view closed")
	}
	m.notify(ChangeConnection)
}

// State returns the current chat view.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	st := State{
		Connected: m.session != nil,
		Messages:  []Entry{},
		Online:    m.roster.Users(),
		LastError: m.lastErr,
	}
	if st.Online == nil {
		st.Online = []domain.OnlineUser{}
	}
	if m.timeline != nil {
		st.Scope = m.timeline.Scope()
		st.Messages = m.timeline.Entries()
	}
	return st
}

func (m *Manager) setErr(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
	m.notify(ChangeError)
}

func (m *Manager) notify(kind ChangeKind) {
	if m.listener == nil {
		return
	}
	m.listener(kind, m.State())
}

func (m *Manager) pump(sess *Session) {
	for ev := range sess.Events() {
		switch ev.Type {
		case EventMessage:
			m.mu.Lock()
			tl := m.timeline
			current := m.session == sess
			m.mu.Unlock()
			if current && tl != nil && tl.Receive(*ev.Message) {
				m.notify(ChangeMessages)
			}
		case EventPresence:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := m.roster.Refresh(ctx)
			cancel()
			if err != nil {
				m.logger.Warn("Failed to refresh online users", "error", err)
				continue
			}
			m.notify(ChangePresence)
		case EventError:
			m.logger.Warn("Chat gateway error", "error", ev.Error)
			m.setErr(ev.Error)
		}
	}

	m.mu.Lock()
	ended := m.session == sess
	if ended {
		m.session = nil
		if err := sess.Err(); err != nil {
			m.lastErr = err.Error()
		}
	}
	m.mu.Unlock()
	if ended {
		m.logger.Info("Chat session ended")
		m.notify(ChangeConnection)
	}
}
