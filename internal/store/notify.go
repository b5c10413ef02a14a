package store

import (
	"context"

	"github.com/Barunkrsingh/chat-application/internal/models"
)

// Publisher receives every message after it is durably appended.
type Publisher interface {
	Publish(msg models.Message)
}

// NotifyingStore wraps a MessageStore and publishes each appended message.
type NotifyingStore struct {
	MessageStore
	pub Publisher
}

// WithPublisher returns a MessageStore that notifies pub on every append.
func WithPublisher(ms MessageStore, pub Publisher) *NotifyingStore {
	return &NotifyingStore{MessageStore: ms, pub: pub}
}

// Append appends through the wrapped store, then publishes.
func (s *NotifyingStore) Append(ctx context.Context, conversationID, sender, content string, kind models.MessageKind) (*models.Message, error) {
	msg, err := s.MessageStore.Append(ctx, conversationID, sender, content, kind)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(*msg)
	return msg, nil
}
