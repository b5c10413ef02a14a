package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Barunkrsingh/chat-application/internal/metrics"
	"github.com/Barunkrsingh/chat-application/internal/models"
	"github.com/Barunkrsingh/chat-application/internal/store"
)

// AIProfile is the synthetic sender shown for AI-authored messages.
type AIProfile struct {
	Name        string
	TextAvatar  string // avatar for text replies
	ImageAvatar string // avatar for any other kind
}

func (p AIProfile) author(kind models.MessageKind) *Author {
	avatar := p.ImageAvatar
	if kind == models.KindText {
		avatar = p.TextAvatar
	}
	return &Author{ID: models.AISender, Name: p.Name, Image: avatar, IsAI: true}
}

// Author is the display identity attached to a message.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	IsAI  bool   `json:"is_ai"`
}

// ResolvedMessage is a stored message with its sender resolved. Author is nil
// when the sender no longer exists.
type ResolvedMessage struct {
	models.Message
	Author *Author `json:"author"`
}

// senderCache memoizes user lookups for one read. Misses are stored as nil.
type senderCache map[string]*models.User

// Reader materializes conversation history with sender identities.
type Reader struct {
	identities store.IdentityStore
	messages   store.MessageStore
	ai         AIProfile
	logger     zerolog.Logger
}

// NewReader creates a Reader.
func NewReader(identities store.IdentityStore, messages store.MessageStore, ai AIProfile, logger zerolog.Logger) *Reader {
	return &Reader{
		identities: identities,
		messages:   messages,
		ai:         ai,
		logger:     logger.With().Str("component", "reader").Logger(),
	}
}

// GetMessages returns the conversation's messages in creation order. Each
// distinct user sender is looked up at most once per call.
func (r *Reader) GetMessages(ctx context.Context, identity, conversationID string) ([]ResolvedMessage, error) {
	if identity == "" {
		return nil, ErrUnauthenticated
	}

	msgs, err := r.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	cache := make(senderCache)
	out := make([]ResolvedMessage, 0, len(msgs))
	for _, m := range msgs {
		author, err := r.resolve(ctx, cache, m)
		if err != nil {
			return nil, err
		}
		out = append(out, ResolvedMessage{Message: m, Author: author})
	}

	r.logger.Debug().
		Str("conversation_id", conversationID).
		Int("messages", len(out)).
		Int("senders", len(cache)).
		Msg("conversation read")
	return out, nil
}

func (r *Reader) resolve(ctx context.Context, cache senderCache, m models.Message) (*Author, error) {
	if m.IsFromAI() {
		return r.ai.author(m.Kind), nil
	}

	user, ok := cache[m.Sender]
	if ok {
		metrics.SenderLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.SenderLookups.WithLabelValues("miss").Inc()
		var err error
		user, err = r.lookup(ctx, m.Sender)
		if err != nil {
			return nil, err
		}
		cache[m.Sender] = user
	}

	if user == nil {
		return nil, nil
	}
	return &Author{ID: user.ID.String(), Name: user.Name, Image: user.Image}, nil
}

func (r *Reader) lookup(ctx context.Context, sender string) (*models.User, error) {
	id, err := uuid.Parse(sender)
	if err != nil {
		r.logger.Warn().Str("sender", sender).Msg("message has malformed sender")
		return nil, nil
	}
	user, err := r.identities.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup sender: %w", err)
	}
	return user, nil
}
