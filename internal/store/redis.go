package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Barunkrsingh/chat-application/internal/metrics"
	"github.com/Barunkrsingh/chat-application/internal/models"
)

// appendScript assigns the next sequence number and inserts the message in
// one atomic step, so concurrent writers to a conversation never share or
// skip a position.
var appendScript = redis.NewScript(`
local seq = redis.call('INCR', KEYS[1])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return seq
`)

// RedisStore handles Redis operations for the message log and job claims.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // 0 keeps messages until an external retention job removes them
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string, retention time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisStoreWithClient(client, retention), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: retention}
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// conversationMessagesKey returns the key for a conversation's message sorted set.
func conversationMessagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

// conversationSeqKey returns the key for a conversation's sequence counter.
func conversationSeqKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:seq", conversationID)
}

// claimKey returns the key for a one-shot claim.
func claimKey(key string) string {
	return fmt.Sprintf("claim:%s", key)
}

// Append stores a message. The sorted set score is the sequence number; the
// member JSON omits it and ListByConversation restores it from the score.
func (s *RedisStore) Append(ctx context.Context, conversationID, sender, content string, kind models.MessageKind) (*models.Message, error) {
	defer metrics.ObserveSince(metrics.RedisLatency, time.Now())

	msg := &models.Message{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Kind:           kind,
		Timestamp:      time.Now().UnixMilli(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	seq, err := appendScript.Run(ctx, s.client,
		[]string{conversationSeqKey(conversationID), conversationMessagesKey(conversationID)},
		string(data), s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return nil, err
	}

	msg.Seq = seq
	return msg, nil
}

// ListByConversation retrieves all messages of a conversation, oldest first.
func (s *RedisStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	defer metrics.ObserveSince(metrics.RedisLatency, time.Now())

	results, err := s.client.ZRangeWithScores(ctx, conversationMessagesKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(member), &msg); err != nil {
			continue
		}
		msg.Seq = int64(z.Score)
		messages = append(messages, msg)
	}

	return messages, nil
}

// Claim records key for ttl and reports whether this caller was first.
func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, claimKey(key), "1", ttl).Result()
}

// Release deletes a claim so the key can be claimed again.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, claimKey(key)).Err()
}
