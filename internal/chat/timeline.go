package chat

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

var (
	// ErrEmptyMessage rejects blank content.
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrInvalidScope rejects a scope that is not exactly one of channel or
	// recipient.
	ErrInvalidScope = errors.New("scope must name exactly one channel or recipient")
)

// Scope selects a conversation: a channel or a direct peer, never both.
type Scope struct {
	ChannelID   domain.ID `json:"channel_id,omitempty"`
	RecipientID domain.ID `json:"recipient_id,omitempty"`
}

// ChannelScope scopes to a channel.
func ChannelScope(id domain.ID) Scope { return Scope{ChannelID: id} }

// DirectScope scopes to a direct conversation with a user.
func DirectScope(userID domain.ID) Scope { return Scope{RecipientID: userID} }

// Validate checks the channel/recipient exclusivity.
func (s Scope) Validate() error {
	if s.ChannelID.IsZero() == s.RecipientID.IsZero() {
		return ErrInvalidScope
	}
	return nil
}

// IsZero reports whether no conversation is selected.
func (s Scope) IsZero() bool { return s.ChannelID.IsZero() && s.RecipientID.IsZero() }

// IsDirect reports whether s is a direct conversation.
func (s Scope) IsDirect() bool { return !s.RecipientID.IsZero() }

// Matches reports whether msg belongs to this conversation. A direct message
// matches when the peer is either its sender or its recipient.
func (s Scope) Matches(msg domain.Message) bool {
	if !s.ChannelID.IsZero() {
		return msg.ChannelID != nil && *msg.ChannelID == s.ChannelID
	}
	if s.RecipientID.IsZero() || msg.ChannelID != nil {
		return false
	}
	return msg.SenderID == s.RecipientID ||
		(msg.RecipientID != nil && *msg.RecipientID == s.RecipientID)
}

// Entry is a timeline message. Pending entries were sent locally and have
// not been echoed back yet.
type Entry struct {
	domain.Message
	Pending bool `json:"pending"`
}

// Timeline is the ordered message list of one scope. Order is transport
// delivery order; a locally sent message is shown immediately and replaced in
// place by its echo.
type Timeline struct {
	mu       sync.RWMutex
	scope    Scope
	selfID   domain.ID
	entries  []Entry
	newNonce func() string
}

// NewTimeline creates an empty timeline. selfID may be empty when the local
// user is unknown.
func NewTimeline(scope Scope, selfID domain.ID) (*Timeline, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return &Timeline{
		scope:    scope,
		selfID:   selfID,
		newNonce: uuid.NewString,
	}, nil
}

// Scope returns the timeline's conversation.
func (t *Timeline) Scope() Scope { return t.scope }

// Load replaces the history. Entries received or sent while the history was
// being fetched are kept after it unless the history already contains them.
// A pending entry is dropped when the history holds its echo.
func (t *Timeline) Load(history []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rest := slices.Clone(t.entries)
	entries := make([]Entry, 0, len(history)+len(rest))
	seen := make(map[domain.ID]struct{}, len(history))
	for _, m := range history {
		if !t.scope.Matches(m) {
			continue
		}
		if i := t.pendingMatch(rest, m); i >= 0 {
			rest = slices.Delete(rest, i, i+1)
		}
		entries = append(entries, Entry{Message: m})
		if !m.ID.IsZero() {
			seen[m.ID] = struct{}{}
		}
	}
	for _, e := range rest {
		if _, dup := seen[e.ID]; dup && !e.ID.IsZero() {
			continue
		}
		entries = append(entries, e)
	}
	t.entries = entries
}

// Send appends a pending message and returns the frame to put on the wire.
func (t *Timeline) Send(content string) (Outbound, error) {
	if strings.TrimSpace(content) == "" {
		return Outbound{}, ErrEmptyMessage
	}

	out := Outbound{
		Type:        string(EventMessage),
		Content:     content,
		ClientNonce: t.newNonce(),
	}
	msg := domain.Message{
		SenderID:    t.selfID,
		Content:     content,
		ClientNonce: out.ClientNonce,
	}
	if t.scope.IsDirect() {
		id := t.scope.RecipientID
		out.RecipientID = &id
		msg.RecipientID = &id
	} else {
		id := t.scope.ChannelID
		out.ChannelID = &id
		msg.ChannelID = &id
	}

	t.mu.Lock()
	t.entries = append(t.entries, Entry{Message: msg, Pending: true})
	t.mu.Unlock()
	return out, nil
}

// Drop removes a pending entry, used when the frame could not be sent.
func (t *Timeline) Drop(nonce string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.IndexFunc(t.entries, func(e Entry) bool {
		return e.Pending && e.ClientNonce == nonce
	})
	if i < 0 {
		return false
	}
	t.entries = slices.Delete(t.entries, i, i+1)
	return true
}

// Receive applies an inbound message. It returns false when the message
// belongs to another scope. An echo of a pending message replaces it in
// place, matched by nonce or else by the oldest pending entry with the same
// sender and content. A repeated delivery of a known ID only retires the
// matching pending entry.
func (t *Timeline) Receive(msg domain.Message) bool {
	if !t.scope.Matches(msg) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.pendingMatch(t.entries, msg)
	if !msg.ID.IsZero() && slices.ContainsFunc(t.entries, func(e Entry) bool { return e.ID == msg.ID }) {
		if i >= 0 {
			t.entries = slices.Delete(t.entries, i, i+1)
		}
		return true
	}
	if i >= 0 {
		t.entries[i] = Entry{Message: msg}
		return true
	}
	t.entries = append(t.entries, Entry{Message: msg})
	return true
}

func (t *Timeline) pendingMatch(entries []Entry, msg domain.Message) int {
	if msg.ClientNonce != "" {
		if i := slices.IndexFunc(entries, func(e Entry) bool {
			return e.Pending && e.ClientNonce == msg.ClientNonce
		}); i >= 0 {
			return i
		}
	}
	if !t.selfID.IsZero() && msg.SenderID != t.selfID {
		return -1
	}
	if t.scope.IsDirect() && msg.SenderID == t.scope.RecipientID {
		return -1
	}
	return slices.IndexFunc(entries, func(e Entry) bool {
		return e.Pending && e.Content == msg.Content
	})
}

// Entries returns a copy of the timeline.
func (t *Timeline) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.entries)
}

// PendingCount returns the number of unacknowledged sends.
func (t *Timeline) PendingCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.entries {
		if e.Pending {
			n++
		}
	}
	return n
}
