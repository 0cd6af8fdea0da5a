// Package notify fans committed negotiation events out to the affected
// participant's live sessions. It is not a message broker: delivery is
// best-effort, at-most-once per connected session, with no retries and no
// durability — the slot and swap request records remain the source of
// truth.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
)

const sessionBuffer = 16

// Session is one live subscription of a participant. Events arrive on
// Events() in the order they were published for that participant.
type Session struct {
	userID string
	events chan model.Notification
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Events() <-chan model.Notification {
	return s.events
}

// Hub is the per-participant session registry. Safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Session]struct{}),
		logger:   logger,
	}
}

// Subscribe registers a new session for the participant. The caller must
// drain Events() and call Unsubscribe when done.
func (h *Hub) Subscribe(userID string) *Session {
	sess := &Session{
		userID: userID,
		events: make(chan model.Notification, sessionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Session]struct{})
	}
	h.sessions[userID][sess] = struct{}{}
	return sess
}

// Unsubscribe removes the session and closes its event channel.
func (h *Hub) Unsubscribe(sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[sess.userID]
	if !ok {
		return
	}
	if _, ok := set[sess]; !ok {
		return
	}
	delete(set, sess)
	if len(set) == 0 {
		delete(h.sessions, sess.userID)
	}
	close(sess.events)
}

// Publish delivers the event to every session of the recipient. It never
// blocks: a session whose buffer is full misses the event, and a recipient
// with no sessions misses it entirely.
func (h *Hub) Publish(recipientID string, n model.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sess := range h.sessions[recipientID] {
		select {
		case sess.events <- n:
		default:
			h.logger.Warn("Notification dropped, session buffer full",
				zap.String("recipient_id", recipientID),
				zap.String("kind", string(n.Kind)),
			)
		}
	}
}

// SessionCount reports how many live sessions the recipient has.
func (h *Hub) SessionCount(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[recipientID])
}
