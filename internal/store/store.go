package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Barunkrsingh/chat-application/internal/models"
)

// IdentityStore defines durable storage for users and conversations.
// PostgresStore, SQLiteStore and MemoryIdentityStore implement this interface.
// Lookups return (nil, nil) when the record does not exist.
type IdentityStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByToken(ctx context.Context, tokenIdentifier string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)

	// Conversation operations
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
}

// MessageStore is the append-only message log, indexed by conversation.
// RedisStore and MemoryMessageStore implement this interface.
type MessageStore interface {
	Close() error
	Ping(ctx context.Context) error

	// Append stores a new message and assigns its ID, timestamp and
	// per-conversation sequence number.
	Append(ctx context.Context, conversationID, sender, content string, kind models.MessageKind) (*models.Message, error)

	// ListByConversation returns every message of a conversation in Seq order.
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}

// BlobStore resolves uploaded media to retrievable URLs.
type BlobStore interface {
	ResolveURL(ctx context.Context, blobID string) (string, error)
}

// newID returns a time-ordered UUID (v7) so rows sort by creation.
func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
