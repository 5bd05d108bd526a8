// Package broadcast fans entity change notifications out to every connected push session.
package broadcast

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Relay forwards encoded envelopes to other server instances.
type Relay interface {
	PublishChange(body []byte) error
}

// Session is one connected push-channel client.
type Session struct {
	UserID string
	send   chan []byte
}

// Messages yields encoded messages for this session. It is closed on Unregister.
func (s *Session) Messages() <-chan []byte {
	return s.send
}

// HubConfig controls hub behaviour.
type HubConfig struct {
	// SendBuffer is the number of messages queued per session before drops start.
	SendBuffer int
	// Filter restricts delivery to sessions whose user is in the message audience.
	Filter bool
}

// Hub is the in-process broadcast bus. Publish never blocks on a slow session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	cfg      HubConfig
	relay    Relay
	origin   string
}

type envelope struct {
	Origin   string          `json:"origin"`
	Audience []string        `json:"audience,omitempty"`
	Message  json.RawMessage `json:"message"`
}

// NewHub creates a hub with no sessions.
func NewHub(cfg HubConfig) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return &Hub{
		sessions: make(map[*Session]struct{}),
		cfg:      cfg,
		origin:   uuid.New().String(),
	}
}

// SetRelay attaches a cross-instance relay. Call before serving traffic.
func (h *Hub) SetRelay(r Relay) {
	h.relay = r
}

// Register adds a session for userID.
func (h *Hub) Register(userID string) *Session {
	s := &Session{UserID: userID, send: make(chan []byte, h.cfg.SendBuffer)}
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unregister removes a session and closes its message channel. Safe to call twice.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		close(s.send)
	}
}

// Sessions returns the number of connected sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Publish delivers msg to local sessions and hands it to the relay, if any.
// Failures are logged and never returned.
func (h *Hub) Publish(msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast: failed to encode %s/%s: %v", msg.Event, msg.Action, err)
		return
	}
	h.deliver(body, msg)

	if h.relay == nil {
		return
	}
	env, err := json.Marshal(envelope{Origin: h.origin, Audience: msg.Audience, Message: body})
	if err != nil {
		log.Printf("broadcast: failed to encode relay envelope: %v", err)
		return
	}
	if err := h.relay.PublishChange(env); err != nil {
		log.Printf("broadcast: relay publish failed for %s/%s: %v", msg.Event, msg.Action, err)
	}
}

// HandleRelayed delivers an envelope received from another instance.
// Envelopes this hub published itself are ignored.
func (h *Hub) HandleRelayed(body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode relay envelope: %w", err)
	}
	if env.Origin == h.origin {
		return nil
	}
	var msg Message
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return fmt.Errorf("failed to decode relayed message: %w", err)
	}
	msg.Audience = env.Audience
	h.deliver(env.Message, msg)
	return nil
}

// Close drops every session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		delete(h.sessions, s)
		close(s.send)
	}
}

func (h *Hub) deliver(body []byte, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if h.cfg.Filter && !msg.RelevantTo(s.UserID) {
			continue
		}
		select {
		case s.send <- body:
		default:
			log.Printf("broadcast: dropping %s/%s for slow session of user %s", msg.Event, msg.Action, s.UserID)
		}
	}
}
