// Package realtime fans appended messages out to websocket subscribers of
// each conversation.
package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Barunkrsingh/chat-application/internal/metrics"
	"github.com/Barunkrsingh/chat-application/internal/models"
)

// Subscription receives the messages of one conversation. C is closed when
// the subscription ends, including when the hub drops a slow consumer.
type Subscription struct {
	C              <-chan models.Message
	conversationID string
	ch             chan models.Message
	once           sync.Once
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub tracks subscribers per conversation. It implements store.Publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	logger zerolog.Logger
}

// NewHub creates a Hub. buffer is the per-subscriber backlog before a
// subscriber is considered too slow and dropped.
func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger.With().Str("component", "realtime").Logger(),
	}
}

// Subscribe registers a subscriber for conversationID. It returns nil after
// Close.
func (h *Hub) Subscribe(conversationID string) *Subscription {
	ch := make(chan models.Message, h.buffer)
	sub := &Subscription{C: ch, conversationID: conversationID, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	set, ok := h.subs[conversationID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[conversationID] = set
	}
	set[sub] = struct{}{}
	metrics.StreamSubscribers.Inc()
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	h.remove(sub)
	h.mu.Unlock()
}

// remove requires h.mu held for writing.
func (h *Hub) remove(sub *Subscription) {
	set, ok := h.subs[sub.conversationID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.conversationID)
	}
	sub.close()
	metrics.StreamSubscribers.Dec()
}

// Publish delivers msg to every subscriber of its conversation without
// blocking. Subscribers whose buffer is full are dropped.
func (h *Hub) Publish(msg models.Message) {
	var slow []*Subscription

	h.mu.RLock()
	for sub := range h.subs[msg.ConversationID] {
		select {
		case sub.ch <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, sub := range slow {
		h.remove(sub)
	}
	h.mu.Unlock()

	h.logger.Warn().
		Str("conversation_id", msg.ConversationID).
		Int("dropped", len(slow)).
		Msg("dropped slow subscribers")
}

// Subscribers returns the number of subscribers of conversationID.
func (h *Hub) Subscribers(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[conversationID])
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			h.remove(sub)
		}
	}
}
