package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barunkrsingh/chat-application/internal/claim"
	"github.com/Barunkrsingh/chat-application/internal/models"
	"github.com/Barunkrsingh/chat-application/internal/store"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	delay   time.Duration
}

func (g *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func newTestWorker(gen *fakeGenerator, cfg WorkerConfig) (*Worker, *store.MemoryMessageStore) {
	ms := store.NewMemoryMessageStore()
	w := NewWorker(ms, gen, claim.NewMemory(128, time.Hour), cfg, zerolog.Nop())
	return w, ms
}

func aiMessages(t *testing.T, ms *store.MemoryMessageStore, conversationID string) []models.Message {
	t.Helper()
	msgs, err := ms.ListByConversation(context.Background(), conversationID)
	require.NoError(t, err)
	var out []models.Message
	for _, m := range msgs {
		if m.IsFromAI() {
			out = append(out, m)
		}
	}
	return out
}

func TestWorkerHandleOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		gen         *fakeGenerator
		kind        JobKind
		wantOutcome Outcome
		wantContent string
		wantCalls   int
	}{
		{"success", &fakeGenerator{reply: "Hello!"}, JobTextCompletion, OutcomeSuccess, "Hello!", 1},
		{"empty reply", &fakeGenerator{reply: "  "}, JobTextCompletion, OutcomeEmpty, ReplyEmpty, 1},
		{"provider error", &fakeGenerator{err: errors.New("503")}, JobTextCompletion, OutcomeProviderError, ReplyFailed, 1},
		{"image unsupported", &fakeGenerator{reply: "unused"}, JobImageCompletion, OutcomeUnsupported, ReplyUnsupported, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ms := newTestWorker(tt.gen, WorkerConfig{})

			outcome := w.Handle(context.Background(), Job{ID: "m1", ConversationID: "c1", Content: "@gemini hi", Kind: tt.kind})
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantCalls, tt.gen.calls())

			replies := aiMessages(t, ms, "c1")
			require.Len(t, replies, 1)
			assert.Equal(t, tt.wantContent, replies[0].Content)
			assert.Equal(t, models.KindText, replies[0].Kind)
			assert.Equal(t, models.AISender, replies[0].Sender)
		})
	}
}

func TestWorkerTimeoutBecomesFailureReply(t *testing.T) {
	gen := &fakeGenerator{reply: "too late", delay: time.Second}
	w, ms := newTestWorker(gen, WorkerConfig{Timeout: 20 * time.Millisecond})

	outcome := w.Handle(context.Background(), Job{ID: "m1", ConversationID: "c1", Kind: JobTextCompletion})
	assert.Equal(t, OutcomeProviderError, outcome)

	replies := aiMessages(t, ms, "c1")
	require.Len(t, replies, 1)
	assert.Equal(t, ReplyFailed, replies[0].Content)
}

func TestWorkerDuplicateJobRepliesOnce(t *testing.T) {
	gen := &fakeGenerator{reply: "once", delay: 20 * time.Millisecond}
	w, ms := newTestWorker(gen, WorkerConfig{})

	job := Job{ID: "m1", ConversationID: "c1", Content: "@gemini hi", Kind: JobTextCompletion}

	var wg sync.WaitGroup
	var duplicates atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.Handle(context.Background(), job) == OutcomeDuplicate {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), duplicates.Load())
	assert.Equal(t, 1, gen.calls())
	assert.Len(t, aiMessages(t, ms, "c1"), 1)
}

func TestWorkerRunDrainsQueue(t *testing.T) {
	gen := &fakeGenerator{reply: "pong"}
	w, ms := newTestWorker(gen, WorkerConfig{Concurrency: 3})
	q := NewQueue(16)

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, q.Enqueue(context.Background(), 0, Job{
			ID:             id,
			ConversationID: "c1",
			Content:        "@gemini ping",
			Kind:           JobKind(1 + i%2),
		}))
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), q) }()

	require.Eventually(t, func() bool {
		return len(aiMessages(t, ms, "c1")) == 5
	}, 2*time.Second, 10*time.Millisecond)

	q.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestWorkerRunAnswersJobsQueuedBeforeClose(t *testing.T) {
	gen := &fakeGenerator{reply: "pong"}
	w, ms := newTestWorker(gen, WorkerConfig{Concurrency: 2})
	q := NewQueue(16)

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, q.Enqueue(context.Background(), 0, Job{
			ID:             fmt.Sprintf("job-%d", i),
			ConversationID: "c1",
			Content:        "@gemini ping",
			Kind:           JobTextCompletion,
		}))
	}
	q.Close()

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), q) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after draining")
	}
	assert.Len(t, aiMessages(t, ms, "c1"), n)
}
