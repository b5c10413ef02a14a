package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Barunkrsingh/chat-application/internal/metrics"
	"github.com/Barunkrsingh/chat-application/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	token_identifier TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS conversations (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	participants UUID[] NOT NULL,
	is_group BOOLEAN NOT NULL DEFAULT FALSE,
	group_name TEXT NOT NULL DEFAULT '',
	group_image TEXT NOT NULL DEFAULT '',
	admin UUID REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_conversations_participants ON conversations USING GIN (participants);
`

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates tables and indexes if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const userColumns = `id, token_identifier, name, image, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.TokenIdentifier,
		&user.Name,
		&user.Image,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer metrics.ObserveSince(metrics.PostgresLatency, time.Now())

	return scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
}

// GetUserByToken retrieves a user by the identity provider's token identifier.
func (s *PostgresStore) GetUserByToken(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	defer metrics.ObserveSince(metrics.PostgresLatency, time.Now())

	return scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE token_identifier = $1
	`, tokenIdentifier))
}

// UpsertUser inserts a user or refreshes the profile of an existing one.
func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	defer metrics.ObserveSince(metrics.PostgresLatency, time.Now())

	return scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (id, token_identifier, name, image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_identifier) DO UPDATE
		SET name = EXCLUDED.name, image = EXCLUDED.image, updated_at = NOW()
		RETURNING `+userColumns,
		newID(), user.TokenIdentifier, user.Name, user.Image))
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var participants []string
	var admin *string
	err := row.Scan(
		&conv.ID,
		&participants,
		&conv.IsGroup,
		&conv.GroupName,
		&conv.GroupImage,
		&admin,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	conv.Participants, err = parseUUIDs(participants)
	if err != nil {
		return nil, err
	}
	if admin != nil {
		id, err := uuid.Parse(*admin)
		if err != nil {
			return nil, err
		}
		conv.Admin = &id
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	defer metrics.ObserveSince(metrics.PostgresLatency, time.Now())

	return scanConversation(s.pool.QueryRow(ctx, `
		SELECT id, participants::text[], is_group, group_name, group_image, admin::text, created_at
		FROM conversations WHERE id = $1
	`, id))
}

// CreateConversation creates a new conversation.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	defer metrics.ObserveSince(metrics.PostgresLatency, time.Now())

	var admin *string
	if conv.Admin != nil {
		a := conv.Admin.String()
		admin = &a
	}

	return scanConversation(s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, participants, is_group, group_name, group_image, admin)
		VALUES ($1, $2::uuid[], $3, $4, $5, $6::uuid)
		RETURNING id, participants::text[], is_group, group_name, group_image, admin::text, created_at
	`, newID(), formatUUIDs(conv.Participants), conv.IsGroup, conv.GroupName, conv.GroupImage, admin))
}

func parseUUIDs(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func formatUUIDs(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
