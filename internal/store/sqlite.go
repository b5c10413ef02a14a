package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Barunkrsingh/chat-application/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chat.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		token_identifier TEXT UNIQUE NOT NULL,
		name TEXT DEFAULT '',
		image TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		is_group INTEGER DEFAULT 0,
		group_name TEXT DEFAULT '',
		group_image TEXT DEFAULT '',
		admin TEXT REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversation_participants (
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (conversation_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_participants_user ON conversation_participants(user_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) queryUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token_identifier, name, image, created_at, updated_at
		FROM users WHERE `+where+` = ?
	`, arg).Scan(
		&idStr,
		&user.TokenIdentifier,
		&user.Name,
		&user.Image,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.queryUser(ctx, "id", id.String())
}

// GetUserByToken retrieves a user by token identifier.
func (s *SQLiteStore) GetUserByToken(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	return s.queryUser(ctx, "token_identifier", tokenIdentifier)
}

// UpsertUser inserts a user or refreshes the profile of an existing one.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, token_identifier, name, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_identifier) DO UPDATE
		SET name = excluded.name, image = excluded.image, updated_at = excluded.updated_at
	`, newID().String(), user.TokenIdentifier, user.Name, user.Image, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetUserByToken(ctx, user.TokenIdentifier)
}

// GetConversation retrieves a conversation and its participants.
func (s *SQLiteStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{ID: id}
	var isGroup int
	var admin sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT is_group, group_name, group_image, admin, created_at
		FROM conversations WHERE id = ?
	`, id.String()).Scan(
		&isGroup,
		&conv.GroupName,
		&conv.GroupImage,
		&admin,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	conv.IsGroup = isGroup == 1

	if admin.Valid {
		adminID, err := uuid.Parse(admin.String)
		if err != nil {
			return nil, err
		}
		conv.Admin = &adminID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY position
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		ids = append(ids, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conv.Participants, err = parseUUIDs(ids)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateConversation creates a conversation with its participant rows.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	id := newID()

	var adminStr *string
	if conv.Admin != nil {
		str := conv.Admin.String()
		adminStr = &str
	}

	isGroupInt := 0
	if conv.IsGroup {
		isGroupInt = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, is_group, group_name, group_image, admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.String(), isGroupInt, conv.GroupName, conv.GroupImage, adminStr, time.Now())
	if err != nil {
		return nil, err
	}

	for i, p := range conv.Participants {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, position)
			VALUES (?, ?, ?)
		`, id.String(), p.String(), i)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetConversation(ctx, id)
}
