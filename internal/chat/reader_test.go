package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barunkrsingh/chat-application/internal/models"
	"github.com/Barunkrsingh/chat-application/internal/store"
)

// countingIdentities records GetUser calls per user.
type countingIdentities struct {
	*store.MemoryIdentityStore

	mu    sync.Mutex
	calls map[uuid.UUID]int
	err   error
}

func (c *countingIdentities) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	c.mu.Lock()
	c.calls[id]++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.MemoryIdentityStore.GetUser(ctx, id)
}

var testProfile = AIProfile{
	Name:        "Gemini AI",
	TextAvatar:  "/gemini.png",
	ImageAvatar: "/gemini-image.png",
}

func newCountingReader(f *fixture) (*Reader, *countingIdentities) {
	ids := &countingIdentities{MemoryIdentityStore: f.identities, calls: map[uuid.UUID]int{}}
	return NewReader(ids, f.messages, testProfile, zerolog.Nop()), ids
}

func TestGetMessagesResolvesEachSenderOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.conv.ID.String()

	const k = 10
	for i := 0; i < k; i++ {
		_, err := f.svc.SendMessage(ctx, f.alice.TokenIdentifier, convID, "again")
		require.NoError(t, err)
	}
	_, err := f.svc.SendMessage(ctx, f.bob.TokenIdentifier, convID, "stop")
	require.NoError(t, err)

	reader, ids := newCountingReader(f)
	msgs, err := reader.GetMessages(ctx, f.bob.TokenIdentifier, convID)
	require.NoError(t, err)

	require.Len(t, msgs, k+1)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
		require.NotNil(t, m.Author)
	}
	assert.Equal(t, "alice", msgs[0].Author.Name)
	assert.Equal(t, f.alice.Image, msgs[k-1].Author.Image)
	assert.Equal(t, "bob", msgs[k].Author.Name)

	assert.Equal(t, 1, ids.calls[f.alice.ID])
	assert.Equal(t, 1, ids.calls[f.bob.ID])
}

func TestGetMessagesCacheIsPerCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, f.alice.TokenIdentifier, f.conv.ID.String(), "hi")
	require.NoError(t, err)

	reader, ids := newCountingReader(f)
	for i := 0; i < 3; i++ {
		_, err := reader.GetMessages(ctx, f.alice.TokenIdentifier, f.conv.ID.String())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ids.calls[f.alice.ID])
}

func TestGetMessagesAIProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.conv.ID.String()

	_, err := f.messages.Append(ctx, convID, models.AISender, "a reply", models.KindText)
	require.NoError(t, err)
	_, err = f.messages.Append(ctx, convID, models.AISender, "https://media.example.com/files/x", models.KindImage)
	require.NoError(t, err)

	reader, ids := newCountingReader(f)
	msgs, err := reader.GetMessages(ctx, f.alice.TokenIdentifier, convID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, &Author{ID: models.AISender, Name: "Gemini AI", Image: "/gemini.png", IsAI: true}, msgs[0].Author)
	assert.Equal(t, "/gemini-image.png", msgs[1].Author.Image)
	assert.Empty(t, ids.calls, "AI senders never hit the identity store")
}

func TestGetMessagesMissingSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	convID := f.conv.ID.String()

	ghost := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := f.messages.Append(ctx, convID, ghost.String(), "boo", models.KindText)
		require.NoError(t, err)
	}

	reader, ids := newCountingReader(f)
	msgs, err := reader.GetMessages(ctx, f.alice.TokenIdentifier, convID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Nil(t, m.Author)
	}
	assert.Equal(t, 1, ids.calls[ghost], "misses are cached too")
}

func TestGetMessagesErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reader, ids := newCountingReader(f)

	_, err := reader.GetMessages(ctx, "", f.conv.ID.String())
	require.ErrorIs(t, err, ErrUnauthenticated)

	msgs, err := reader.GetMessages(ctx, f.alice.TokenIdentifier, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = f.svc.SendMessage(ctx, f.alice.TokenIdentifier, f.conv.ID.String(), "hi")
	require.NoError(t, err)

	boom := errors.New("db down")
	ids.err = boom
	_, err = reader.GetMessages(ctx, f.alice.TokenIdentifier, f.conv.ID.String())
	require.ErrorIs(t, err, boom)
}
