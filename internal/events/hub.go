// Package events pushes board, chat and notification changes to local
// WebSocket subscribers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Type discriminates pushed events.
type Type string

const (
	TypeBoard         Type = "board"
	TypeToast         Type = "toast"
	TypeChat          Type = "chat"
	TypePresence      Type = "presence"
	TypeRisks         Type = "risks"
	TypeNotifications Type = "notifications"
	TypeHello         Type = "hello"
	TypePong          Type = "pong"
)

// Event is the JSON envelope written to subscribers.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data,omitempty"`
}

// Toast is the payload of a toast event.
type Toast struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// clientMessage is what subscribers may send.
type clientMessage struct {
	Type string `json:"type"`
}

const sendBuffer = 32

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub is the registry of connected subscribers.
type Hub struct {
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger

	mu      sync.RWMutex
	clients map[string]*subscriber
	snap    func() []Event
}

// NewHub creates a hub. allowedOrigin "*" or isDev accepts any origin.
func NewHub(allowedOrigin string, isDev bool, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
		clients:       make(map[string]*subscriber),
	}
}

// SetSnapshot registers a function producing the events sent to a
// subscriber right after it connects.
func (h *Hub) SetSnapshot(fn func() []Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = fn
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues ev for every subscriber. A subscriber whose queue is full
// is disconnected.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	var slow []*subscriber
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow event subscriber", "subscriber_id", c.id)
		_ = c.conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
	}
}

// Toast broadcasts a user-facing notice.
func (h *Hub) Toast(kind, message string) {
	h.Broadcast(Event{Type: TypeToast, Data: Toast{Kind: kind, Message: message}})
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, id)
	}
}

// register queues the hello and snapshot events and adds c to the registry
// under one lock, so every later broadcast is queued behind the snapshot.
func (h *Hub) register(c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	initial := []Event{{Type: TypeHello, Data: map[string]string{"subscriber_id": c.id}}}
	if h.snap != nil {
		initial = append(initial, h.snap()...)
	}
	for _, ev := range initial {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Initial events exceed subscriber buffer", "subscriber_id", c.id)
		}
	}

	h.clients[c.id] = c
	h.logger.Info("Event subscriber registered", "subscriber_id", c.id)
}

func (h *Hub) unregister(c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
		h.logger.Info("Event subscriber unregistered", "subscriber_id", c.id)
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "subscription ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	c := &subscriber{id: uuid.NewString(), conn: ws, send: make(chan []byte, sendBuffer)}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.register(c)
	defer h.unregister(c)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		h.readLoop(ctx, c)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, c)
	}()

	wg.Wait()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || h.allowedOrigin == "" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Hub) readLoop(ctx context.Context, c *subscriber) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("Event subscriber closed", "subscriber_id", c.id)
			} else if ctx.Err() == nil {
				h.logger.Debug("Event subscriber read error", "subscriber_id", c.id, "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			pong, _ := json.Marshal(Event{Type: TypePong})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					h.logger.Debug("Event write error", "subscriber_id", c.id, "error", err)
				}
				return
			}
		}
	}
}
