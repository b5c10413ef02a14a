package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barunkrsingh/chat-application/internal/models"
)

func TestURLBlobStore(t *testing.T) {
	s, err := NewURLBlobStore("https://media.example.com/files/")
	require.NoError(t, err)

	url, err := s.ResolveURL(context.Background(), "kg2abc")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/files/kg2abc", url)

	for _, id := range []string{"", "  ", "a/b", "..", "x..y"} {
		_, err := s.ResolveURL(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidBlobID, "id %q", id)
	}

	_, err = NewURLBlobStore("/relative")
	assert.Error(t, err)
}

type recordingPublisher struct {
	msgs []models.Message
}

func (p *recordingPublisher) Publish(msg models.Message) {
	p.msgs = append(p.msgs, msg)
}

func TestNotifyingStorePublishesAppends(t *testing.T) {
	pub := &recordingPublisher{}
	s := WithPublisher(NewMemoryMessageStore(), pub)
	ctx := context.Background()

	msg, err := s.Append(ctx, "c1", "u1", "hi", models.KindText)
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, *msg, pub.msgs[0])

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Append(cctx, "c1", "u1", "lost", models.KindText)
	require.Error(t, err)
	assert.Len(t, pub.msgs, 1, "failed appends are not published")

	msgs, err := s.ListByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
