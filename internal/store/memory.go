package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/Barunkrsingh/chat-application/internal/models"
)

// MemoryIdentityStore keeps users and conversations in process memory.
// It backs local development and tests.
type MemoryIdentityStore struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*models.User
	byToken       map[string]uuid.UUID
	conversations map[uuid.UUID]*models.Conversation
}

// NewMemoryIdentityStore creates an empty in-memory identity store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		users:         make(map[uuid.UUID]*models.User),
		byToken:       make(map[string]uuid.UUID),
		conversations: make(map[uuid.UUID]*models.Conversation),
	}
}

func (s *MemoryIdentityStore) Close()                         {}
func (s *MemoryIdentityStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryIdentityStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryIdentityStore) GetUserByToken(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.byToken[tokenIdentifier]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.GetUser(ctx, id)
}

func (s *MemoryIdentityStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if id, ok := s.byToken[user.TokenIdentifier]; ok {
		existing := s.users[id]
		existing.Name = user.Name
		existing.Image = user.Image
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}

	u := &models.User{
		ID:              user.ID,
		TokenIdentifier: user.TokenIdentifier,
		Name:            user.Name,
		Image:           user.Image,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if u.ID == uuid.Nil {
		u.ID = newID()
	}
	s.users[u.ID] = u
	s.byToken[u.TokenIdentifier] = u.ID

	cp := *u
	return &cp, nil
}

func (s *MemoryIdentityStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Participants = append([]uuid.UUID(nil), c.Participants...)
	return &cp, nil
}

func (s *MemoryIdentityStore) CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	s.mu.Lock()
	c := *conv
	if c.ID == uuid.Nil {
		c.ID = newID()
	}
	c.Participants = append([]uuid.UUID(nil), conv.Participants...)
	c.CreatedAt = time.Now()
	s.conversations[c.ID] = &c
	s.mu.Unlock()

	return s.GetConversation(ctx, c.ID)
}

// conversationLog is one conversation's ordered messages. Each log has its
// own lock so appends to different conversations never contend.
type conversationLog struct {
	mu       sync.Mutex
	seq      int64
	messages []models.Message
}

// MemoryMessageStore is an in-process MessageStore.
type MemoryMessageStore struct {
	mu   sync.RWMutex
	logs map[string]*conversationLog
}

// NewMemoryMessageStore creates an empty in-memory message store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{logs: make(map[string]*conversationLog)}
}

func (s *MemoryMessageStore) Close() error                   { return nil }
func (s *MemoryMessageStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryMessageStore) log(conversationID string, create bool) *conversationLog {
	s.mu.RLock()
	l, ok := s.logs[conversationID]
	s.mu.RUnlock()
	if ok || !create {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.logs[conversationID]; !ok {
		l = &conversationLog{}
		s.logs[conversationID] = l
	}
	return l
}

// Append stores a message under the conversation's own lock.
func (s *MemoryMessageStore) Append(ctx context.Context, conversationID, sender, content string, kind models.MessageKind) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := s.log(conversationID, true)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	msg := models.Message{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Kind:           kind,
		Seq:            l.seq,
		Timestamp:      time.Now().UnixMilli(),
	}
	l.messages = append(l.messages, msg)

	return &msg, nil
}

// ListByConversation returns a copy of the conversation's messages.
func (s *MemoryMessageStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	l := s.log(conversationID, false)
	if l == nil {
		return []models.Message{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]models.Message(nil), l.messages...), nil
}
